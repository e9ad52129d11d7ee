// Package employee is the read-only employee directory backing assignment
// display and selection. Employees are owned elsewhere; this store only
// lists them.
package employee

import (
	"context"
	"fmt"
	"sync"

	"assetdesk/internal/domain"
)

// Client is the slice of the API client the directory needs.
type Client interface {
	Get(ctx context.Context, path string, out any) error
}

type Directory struct {
	api Client

	mu        sync.RWMutex
	employees []domain.Employee
	loading   bool
	lastErr   error
}

func New(api Client) *Directory {
	return &Directory{api: api}
}

// Employees returns a copy of the current snapshot.
func (d *Directory) Employees() []domain.Employee {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]domain.Employee(nil), d.employees...)
}

func (d *Directory) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading
}

func (d *Directory) LastError() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// List refetches the employee collection and atomically replaces the
// snapshot.
func (d *Directory) List(ctx context.Context) error {
	d.mu.Lock()
	d.loading = true
	d.mu.Unlock()

	var fetched []domain.Employee
	err := d.api.Get(ctx, "/employees", &fetched)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false
	if err != nil {
		d.lastErr = err
		return fmt.Errorf("listing employees: %w", err)
	}
	d.employees = fetched
	d.lastErr = nil
	return nil
}

// Find returns the employee with the given id from the current snapshot.
func (d *Directory) Find(id int64) (domain.Employee, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, e := range d.employees {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Employee{}, false
}
