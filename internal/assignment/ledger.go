// Package assignment owns the assignment ledger: records linking one
// accessory to one employee, listed across all categories. The ledger holds
// only references to accessories and employees, never copies it mutates.
package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"assetdesk/internal/domain"
	"assetdesk/internal/notify"
	domainerrors "assetdesk/pkg/domain-errors"
)

// Client is the slice of the API client the ledger needs.
type Client interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Draft is the assignment creation payload.
type Draft struct {
	UserID      int64                   `json:"user_id"`
	CategoryID  int64                   `json:"category_id"`
	AccessoryID int64                   `json:"accessory_id"`
	AssignedAt  string                  `json:"assigned_at"`
	Status      domain.AssignmentStatus `json:"status"`
}

// Validate enforces the required fields. Incomplete drafts never reach the
// network.
func (d Draft) Validate() error {
	switch {
	case d.UserID == 0:
		return domainerrors.New(domainerrors.CodeBadRequest, "The user field is required")
	case d.AccessoryID == 0:
		return domainerrors.New(domainerrors.CodeBadRequest, "The accessory field is required")
	case d.AssignedAt == "":
		return domainerrors.New(domainerrors.CodeBadRequest, "The assigned at field is required")
	}
	return nil
}

// Patch carries partial assignment updates; nil fields are left untouched.
// Status accepts any enumerated value at any time: there is no transition
// table, and no conflict check against other assignments of the same
// accessory.
type Patch struct {
	UserID      *int64                   `json:"user_id,omitempty"`
	CategoryID  *int64                   `json:"category_id,omitempty"`
	AccessoryID *int64                   `json:"accessory_id,omitempty"`
	AssignedAt  *string                  `json:"assigned_at,omitempty"`
	Status      *domain.AssignmentStatus `json:"status,omitempty"`
}

// Ledger holds the assignment snapshot. Mutations follow the same
// canonical-refetch discipline as the other stores. Creating an assignment
// never touches the referenced accessory's status; ledger and inventory are
// independent state machines.
type Ledger struct {
	api      Client
	notifier notify.Notifier
	logger   *slog.Logger

	mu          sync.RWMutex
	assignments []domain.Assignment
	loading     bool
	lastErr     error
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func New(api Client, notifier notify.Notifier, opts ...Option) *Ledger {
	l := &Ledger{
		api:      api,
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Assignments returns a copy of the current snapshot.
func (l *Ledger) Assignments() []domain.Assignment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Assignment(nil), l.assignments...)
}

func (l *Ledger) Loading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

func (l *Ledger) LastError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

// List refetches the canonical assignment collection and atomically replaces
// the snapshot.
func (l *Ledger) List(ctx context.Context) error {
	l.mu.Lock()
	l.loading = true
	l.mu.Unlock()

	var fetched []domain.Assignment
	err := l.api.Get(ctx, "/assignments", &fetched)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if err != nil {
		l.lastErr = err
		return fmt.Errorf("listing assignments: %w", err)
	}
	l.assignments = fetched
	l.lastErr = nil
	return nil
}

// AccessoryIndex fetches the unscoped accessory collection. Selection
// surfaces use it to render referents for assignments whose category is not
// the active inventory scope. The result is returned, not cached; the scoped
// inventory cache stays the only accessory snapshot holder.
func (l *Ledger) AccessoryIndex(ctx context.Context) ([]domain.Accessory, error) {
	var out []domain.Accessory
	if err := l.api.Get(ctx, "/accessories", &out); err != nil {
		return nil, fmt.Errorf("listing accessories: %w", err)
	}
	return out, nil
}

// Create submits a new assignment, then refetches the ledger. Any
// enumerated status is accepted, including assigning an accessory that
// already carries an active assignment.
func (l *Ledger) Create(ctx context.Context, draft Draft) error {
	if err := draft.Validate(); err != nil {
		l.mu.Lock()
		l.lastErr = err
		l.mu.Unlock()
		return err
	}
	if draft.Status == "" {
		draft.Status = domain.AssignmentAssigned
	}
	if err := l.api.Post(ctx, "/assignments", draft, nil); err != nil {
		l.fail(err)
		return fmt.Errorf("creating assignment: %w", err)
	}
	return l.settle(ctx, "Accessory assigned successfully")
}

// Update patches an assignment, then refetches the ledger.
func (l *Ledger) Update(ctx context.Context, id int64, patch Patch) error {
	if err := l.api.Put(ctx, fmt.Sprintf("/assignments/%d", id), patch, nil); err != nil {
		l.fail(err)
		return fmt.Errorf("updating assignment %d: %w", id, err)
	}
	return l.settle(ctx, "Assignment updated successfully")
}

// Delete removes an assignment, then refetches the ledger. The referenced
// accessory keeps whatever status it had.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	if err := l.api.Delete(ctx, fmt.Sprintf("/assignments/%d", id)); err != nil {
		l.fail(err)
		return fmt.Errorf("deleting assignment %d: %w", id, err)
	}
	return l.settle(ctx, "Assignment deleted successfully")
}

func (l *Ledger) settle(ctx context.Context, message string) error {
	if err := l.List(ctx); err != nil {
		l.logger.Warn("assignment resync after mutation failed", "error", err)
		return err
	}
	l.notifier.ShowAlert(notify.Success(message))
	return nil
}

func (l *Ledger) fail(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
	l.logger.Warn("assignment mutation failed", "error", err)
	l.notifier.ShowAlert(notify.Failure(domainerrors.MessageOf(err)))
}
