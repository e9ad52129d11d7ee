// Package category owns the full category list. It is independent of the
// inventory cache and the assignment ledger; they only consult it for key
// validity, never for accessory data.
package category

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"assetdesk/internal/domain"
	"assetdesk/internal/notify"
	domainerrors "assetdesk/pkg/domain-errors"
)

// Client is the slice of the API client the registry needs.
type Client interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Patch carries partial category updates; nil fields are left untouched.
type Patch struct {
	Name *string `json:"name,omitempty"`
	Code *string `json:"code,omitempty"`
}

// Registry holds the authoritative category snapshot. Every successful
// mutation refetches the full list rather than splicing locally, so the
// server-maintained in_stock_count aggregate is never stale.
type Registry struct {
	api      Client
	notifier notify.Notifier
	logger   *slog.Logger

	mu         sync.RWMutex
	categories []domain.Category
	loading    bool
	lastErr    error
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func New(api Client, notifier notify.Notifier, opts ...Option) *Registry {
	r := &Registry{
		api:      api,
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Categories returns a copy of the current snapshot.
func (r *Registry) Categories() []domain.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Category(nil), r.categories...)
}

func (r *Registry) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

// LastError reports the most recent failure, cleared by the next successful
// fetch.
func (r *Registry) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// List refetches the canonical category collection and atomically replaces
// the snapshot. Fetch failures set the error state without emitting an alert.
func (r *Registry) List(ctx context.Context) error {
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()

	var fetched []domain.Category
	err := r.api.Get(ctx, "/categories", &fetched)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
	if err != nil {
		r.lastErr = err
		return fmt.Errorf("listing categories: %w", err)
	}
	r.categories = fetched
	r.lastErr = nil
	return nil
}

// Get fetches a single category, bypassing the snapshot. Used to prefill
// edit forms with server-fresh data.
func (r *Registry) Get(ctx context.Context, id int64) (domain.Category, error) {
	var out domain.Category
	if err := r.api.Get(ctx, fmt.Sprintf("/categories/%d", id), &out); err != nil {
		return domain.Category{}, fmt.Errorf("fetching category %d: %w", id, err)
	}
	return out, nil
}

// Create registers a new category, then refetches the full list.
func (r *Registry) Create(ctx context.Context, name, code string) error {
	if name == "" {
		err := domainerrors.New(domainerrors.CodeBadRequest, "Category name is required")
		r.fail(err)
		return err
	}
	body := map[string]string{"name": name}
	if code != "" {
		body["code"] = code
	}
	if err := r.api.Post(ctx, "/categories", body, nil); err != nil {
		r.fail(err)
		return fmt.Errorf("creating category: %w", err)
	}
	return r.settle(ctx, "Category added successfully")
}

// Update patches an existing category, then refetches the full list.
func (r *Registry) Update(ctx context.Context, id int64, patch Patch) error {
	if err := r.api.Put(ctx, fmt.Sprintf("/categories/%d", id), patch, nil); err != nil {
		r.fail(err)
		return fmt.Errorf("updating category %d: %w", id, err)
	}
	return r.settle(ctx, "Category updated successfully")
}

// Delete removes a category. The server is permissive about dependent
// accessories; no referential cleanup happens client-side.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	if err := r.api.Delete(ctx, fmt.Sprintf("/categories/%d", id)); err != nil {
		r.fail(err)
		return fmt.Errorf("deleting category %d: %w", id, err)
	}
	return r.settle(ctx, "Category deleted successfully")
}

// settle resynchronizes after a successful mutation and emits the success
// alert. A failed resync is reported as an error state, not as a success.
func (r *Registry) settle(ctx context.Context, message string) error {
	if err := r.List(ctx); err != nil {
		r.logger.Warn("category resync after mutation failed", "error", err)
		return err
	}
	r.notifier.ShowAlert(notify.Success(message))
	return nil
}

func (r *Registry) fail(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
	r.logger.Warn("category mutation failed", "error", err)
	r.notifier.ShowAlert(notify.Failure(domainerrors.MessageOf(err)))
}
