package assignment

import (
	"context"
	"sync"

	"assetdesk/internal/domain"
	domainerrors "assetdesk/pkg/domain-errors"
)

// InventoryView is the read-only slice of the inventory cache the picker
// consumes. The picker never mutates accessories through it.
type InventoryView interface {
	SetScope(ctx context.Context, categoryID int64) error
	Scope() int64
	Accessories() []domain.Accessory
}

// Picker builds an assignment draft step by step. Accessory selection is
// scope-dependent: choosing a category rescopes the candidate list, and
// changing category clears any previously chosen accessory so a
// cross-category reference can never be submitted.
type Picker struct {
	inventory InventoryView

	mu          sync.Mutex
	userID      int64
	categoryID  int64
	accessoryID int64
	assignedAt  string
	status      domain.AssignmentStatus
}

func NewPicker(inventory InventoryView) *Picker {
	return &Picker{
		inventory: inventory,
		status:    domain.AssignmentAssigned,
	}
}

func (p *Picker) SelectUser(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userID = userID
}

// SelectCategory rescopes the candidate accessory list and clears the
// previously chosen accessory.
func (p *Picker) SelectCategory(ctx context.Context, categoryID int64) error {
	p.mu.Lock()
	p.categoryID = categoryID
	p.accessoryID = 0
	p.mu.Unlock()
	return p.inventory.SetScope(ctx, categoryID)
}

// SelectAccessory records the chosen accessory. The accessory must be
// visible in the currently scoped candidate list, which pins it to the
// selected category.
func (p *Picker) SelectAccessory(accessoryID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.categoryID == 0 {
		return domainerrors.New(domainerrors.CodeBadRequest, "Select a category first")
	}
	for _, a := range p.inventory.Accessories() {
		if a.ID == accessoryID && a.CategoryID == p.categoryID {
			p.accessoryID = accessoryID
			return nil
		}
	}
	return domainerrors.New(domainerrors.CodeBadRequest, "Accessory does not belong to the selected category")
}

func (p *Picker) SetAssignedAt(date string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assignedAt = date
}

func (p *Picker) SetStatus(status domain.AssignmentStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

// Candidates returns the accessories eligible for selection under the
// current category.
func (p *Picker) Candidates() []domain.Accessory {
	p.mu.Lock()
	categoryID := p.categoryID
	p.mu.Unlock()
	if categoryID == 0 {
		return nil
	}
	return p.inventory.Accessories()
}

// Draft snapshots the current selections. Validation is the ledger's job.
func (p *Picker) Draft() Draft {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Draft{
		UserID:      p.userID,
		CategoryID:  p.categoryID,
		AccessoryID: p.accessoryID,
		AssignedAt:  p.assignedAt,
		Status:      p.status,
	}
}

// Reset clears all selections back to their initial state.
func (p *Picker) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userID = 0
	p.categoryID = 0
	p.accessoryID = 0
	p.assignedAt = ""
	p.status = domain.AssignmentAssigned
}
