// Package workspace composes the stores behind one entry point and handles
// the initial warm-up. The inventory cache is deliberately left cold: it
// loads on first scope selection, not at startup.
package workspace

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"assetdesk/internal/apiclient"
	"assetdesk/internal/assignment"
	"assetdesk/internal/category"
	"assetdesk/internal/employee"
	"assetdesk/internal/inventory"
	invmetrics "assetdesk/internal/inventory/metrics"
	"assetdesk/internal/notify"
)

type Workspace struct {
	Categories  *category.Registry
	Inventory   *inventory.Cache
	Assignments *assignment.Ledger
	Employees   *employee.Directory
	Picker      *assignment.Picker
}

type Option func(*options)

type options struct {
	logger           *slog.Logger
	inventoryMetrics *invmetrics.Metrics
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithInventoryMetrics(m *invmetrics.Metrics) Option {
	return func(o *options) { o.inventoryMetrics = m }
}

func New(api *apiclient.Client, notifier notify.Notifier, opts ...Option) *Workspace {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	inv := inventory.New(api, notifier,
		inventory.WithLogger(o.logger),
		inventory.WithMetrics(o.inventoryMetrics),
	)
	return &Workspace{
		Categories:  category.New(api, notifier, category.WithLogger(o.logger)),
		Inventory:   inv,
		Assignments: assignment.New(api, notifier, assignment.WithLogger(o.logger)),
		Employees:   employee.New(api),
		Picker:      assignment.NewPicker(inv),
	}
}

// Preload fetches the scope-independent collections concurrently with shared
// cancellation on first failure.
func (w *Workspace) Preload(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Categories.List(ctx) })
	g.Go(func() error { return w.Assignments.List(ctx) })
	g.Go(func() error { return w.Employees.List(ctx) })
	return g.Wait()
}
