// Package inventory holds the accessory snapshot for exactly one active
// category scope. The snapshot is transient: it is rebuilt from the server
// on every scope entry and after every mutation, never merged in place.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"assetdesk/internal/apiclient"
	"assetdesk/internal/domain"
	"assetdesk/internal/inventory/metrics"
	"assetdesk/internal/notify"
	domainerrors "assetdesk/pkg/domain-errors"
)

// Client is the slice of the API client the cache needs. Accessory creation
// goes over multipart because the payload may carry image attachments.
type Client interface {
	Get(ctx context.Context, path string, out any) error
	PostMultipart(ctx context.Context, path string, fields url.Values, files []apiclient.File, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Draft is the client-side accessory creation payload. AccessoryNo and the
// stock aggregate are server-assigned and deliberately absent.
type Draft struct {
	BrandName      string
	CategoryID     int64
	VendorName     string
	Condition      string
	PurchaseDate   string
	Amount         decimal.Decimal
	WarrantyMonths int
	StockQuantity  int
	Status         domain.AccessoryStatus
	Note           string
	Images         []apiclient.File
}

func (d Draft) validate() error {
	missing := ""
	switch {
	case d.BrandName == "":
		missing = "brand name"
	case d.CategoryID == 0:
		missing = "category id"
	case d.VendorName == "":
		missing = "vendor name"
	case d.Condition == "":
		missing = "condition"
	case d.PurchaseDate == "":
		missing = "purchase date"
	case d.Amount.IsZero():
		missing = "amount"
	}
	if missing != "" {
		return domainerrors.New(domainerrors.CodeBadRequest, "The "+missing+" field is required")
	}
	return nil
}

func (d Draft) fields() url.Values {
	fields := url.Values{}
	fields.Set("brand_name", d.BrandName)
	fields.Set("category_id", strconv.FormatInt(d.CategoryID, 10))
	fields.Set("vendor_name", d.VendorName)
	fields.Set("condition", d.Condition)
	fields.Set("purchase_date", d.PurchaseDate)
	fields.Set("amount", d.Amount.String())
	if d.WarrantyMonths > 0 {
		fields.Set("warranty_months", strconv.Itoa(d.WarrantyMonths))
	}
	if d.StockQuantity > 0 {
		fields.Set("stock_quantity", strconv.Itoa(d.StockQuantity))
	}
	status := d.Status
	if status == "" {
		status = domain.AccessoryAvailable
	}
	fields.Set("status", string(status))
	if d.Note != "" {
		fields.Set("note", d.Note)
	}
	return fields
}

// Patch carries partial accessory updates; nil fields are left untouched.
type Patch struct {
	BrandName      *string                 `json:"brand_name,omitempty"`
	VendorName     *string                 `json:"vendor_name,omitempty"`
	Condition      *string                 `json:"condition,omitempty"`
	PurchaseDate   *string                 `json:"purchase_date,omitempty"`
	Amount         *decimal.Decimal        `json:"amount,omitempty"`
	WarrantyMonths *int                    `json:"warranty_months,omitempty"`
	StockQuantity  *int                    `json:"stock_quantity,omitempty"`
	Status         *domain.AccessoryStatus `json:"status,omitempty"`
	Note           *string                 `json:"note,omitempty"`
}

// Cache is the scoped inventory store. It is the sole mutator of its
// snapshot; cross-store consumers only read copies.
//
// Every scope fetch carries a token taken under the lock. When the fetch
// settles, the result is committed only if the token still matches, so a
// response for an abandoned scope can never overwrite the active one.
// Superseded fetches are additionally cancelled through their context.
type Cache struct {
	api      Client
	notifier notify.Notifier
	logger   *slog.Logger
	meter    *metrics.Metrics

	mu          sync.Mutex
	scope       int64
	token       uint64
	cancel      context.CancelFunc
	accessories []domain.Accessory
	loading     bool
	err         error
}

type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.meter = m }
}

func New(api Client, notifier notify.Notifier, opts ...Option) *Cache {
	c := &Cache{
		api:      api,
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Accessories returns a copy of the current snapshot.
func (c *Cache) Accessories() []domain.Accessory {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Accessory(nil), c.accessories...)
}

// Scope returns the active category key, zero when no scope is selected.
func (c *Cache) Scope() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

func (c *Cache) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err reports the most recent fetch failure, cleared by the next successful
// fetch.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// SetScope selects the active category and fetches its accessory collection,
// atomically replacing the snapshot once settled. A result arriving after
// the scope moved on is discarded without surfacing anything; switching
// scope also cancels the superseded in-flight fetch.
func (c *Cache) SetScope(ctx context.Context, categoryID int64) error {
	if categoryID == 0 {
		err := domainerrors.New(domainerrors.CodeBadRequest, "missing category id")
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.token++
	token := c.token
	c.scope = categoryID
	c.loading = true
	if c.cancel != nil {
		c.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	if c.meter != nil {
		c.meter.IncrementScopeChanges()
	}

	start := time.Now()
	var fetched []domain.Accessory
	err := c.api.Get(fetchCtx, fmt.Sprintf("/accessories/%d", categoryID), &fetched)
	if c.meter != nil {
		c.meter.ObserveScopeLoad(start)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token {
		// A newer scope superseded this fetch while it was in flight.
		cancel()
		if c.meter != nil {
			c.meter.IncrementStaleDiscarded()
		}
		c.logger.Debug("discarded stale scope fetch", "category_id", categoryID)
		return nil
	}
	cancel()
	c.cancel = nil
	c.loading = false
	if err != nil {
		c.err = err
		return fmt.Errorf("loading accessories for category %d: %w", categoryID, err)
	}
	c.accessories = fetched
	c.err = nil
	return nil
}

// Create registers a new accessory, then resynchronizes the draft's scope
// rather than appending locally, so server-assigned fields (accessory
// number, stock) are reflected exactly.
func (c *Cache) Create(ctx context.Context, draft Draft) error {
	if err := draft.validate(); err != nil {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}
	if err := c.api.PostMultipart(ctx, "/accessories", draft.fields(), draft.Images, nil); err != nil {
		c.fail(err)
		return fmt.Errorf("creating accessory: %w", err)
	}
	return c.settle(ctx, draft.CategoryID, "Accessory added successfully")
}

// Update patches an accessory and resynchronizes the given scope.
func (c *Cache) Update(ctx context.Context, id int64, patch Patch, scopeID int64) error {
	if scopeID == 0 {
		err := domainerrors.New(domainerrors.CodeBadRequest, "missing category id")
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}
	if err := c.api.Put(ctx, fmt.Sprintf("/accessories/%d", id), patch, nil); err != nil {
		c.fail(err)
		return fmt.Errorf("updating accessory %d: %w", id, err)
	}
	return c.settle(ctx, scopeID, "Accessory updated successfully")
}

// Delete removes an accessory and resynchronizes the current scope.
func (c *Cache) Delete(ctx context.Context, id int64) error {
	scope := c.Scope()
	if scope == 0 {
		err := domainerrors.New(domainerrors.CodeBadRequest, "missing category id")
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}
	if err := c.api.Delete(ctx, fmt.Sprintf("/accessories/%d", id)); err != nil {
		c.fail(err)
		return fmt.Errorf("deleting accessory %d: %w", id, err)
	}
	return c.settle(ctx, scope, "Accessory deleted successfully")
}

func (c *Cache) settle(ctx context.Context, scopeID int64, message string) error {
	if err := c.SetScope(ctx, scopeID); err != nil {
		c.logger.Warn("inventory resync after mutation failed", "error", err)
		return err
	}
	c.notifier.ShowAlert(notify.Success(message))
	return nil
}

func (c *Cache) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.logger.Warn("accessory mutation failed", "error", err)
	c.notifier.ShowAlert(notify.Failure(domainerrors.MessageOf(err)))
}
