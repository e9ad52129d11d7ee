package inventory

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"assetdesk/internal/apiclient"
	"assetdesk/internal/credential"
	"assetdesk/internal/domain"
	"assetdesk/internal/notify"
	domainerrors "assetdesk/pkg/domain-errors"
	"assetdesk/pkg/testutil"
)

type CacheSuite struct {
	suite.Suite
	ctx    context.Context
	server *testutil.APIServer
	api    *apiclient.Client
	feed   *notify.Feed
	cache  *Cache
}

func (s *CacheSuite) SetupTest() {
	s.ctx = context.Background()
	s.server = testutil.NewAPIServer(s.T())
	s.api = apiclient.New(s.server.URL(), credential.NewStatic(testutil.Token))
	s.feed = notify.NewFeed(16)
	s.cache = New(s.api, s.feed)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) seedLaptopScope() {
	s.server.SeedCategory(domain.Category{ID: 1, Name: "Laptop"})
	s.server.SeedAccessory(domain.Accessory{
		ID: 10, BrandName: "Dell XPS", CategoryID: 1,
		VendorName: "Dell", Condition: "good", PurchaseDate: "2024-11-05",
		Amount: decimal.NewFromInt(1400), StockQuantity: 1,
		Status: domain.AccessoryAvailable,
	})
}

func (s *CacheSuite) validDraft() Draft {
	return Draft{
		BrandName:    "Logi Mouse",
		CategoryID:   1,
		VendorName:   "Logitech",
		Condition:    "new",
		PurchaseDate: "2025-01-02",
		Amount:       decimal.NewFromInt(25),
	}
}

func (s *CacheSuite) TestMissingScopeShortCircuits() {
	err := s.cache.SetScope(s.ctx, 0)
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeBadRequest))
	s.Equal(0, s.server.TotalRequests())
	s.Require().Error(s.cache.Err())
}

func (s *CacheSuite) TestMissingCredentialShortCircuits() {
	cache := New(apiclient.New(s.server.URL(), credential.NewStatic("")), s.feed)
	err := cache.SetScope(s.ctx, 1)
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
	s.Equal(0, s.server.TotalRequests())
}

func (s *CacheSuite) TestScopeLoadThenCreate() {
	s.seedLaptopScope()

	s.Require().NoError(s.cache.SetScope(s.ctx, 1))
	got := s.cache.Accessories()
	s.Require().Len(got, 1)
	s.Equal("Dell XPS", got[0].BrandName)
	s.Equal(int64(1), got[0].CategoryID)

	s.Require().NoError(s.cache.Create(s.ctx, s.validDraft()))

	got = s.cache.Accessories()
	s.Require().Len(got, 2)
	for _, a := range got {
		s.Equal(int64(1), a.CategoryID)
	}

	// The new record carries server-assigned fields, proving the snapshot
	// came from a resync rather than a local append.
	s.NotEmpty(got[1].AccessoryNo)
	s.Equal(1, got[1].StockQuantity)

	alert := <-s.feed.Alerts()
	s.Equal(notify.VariantSuccess, alert.Variant)
	s.Equal("Accessory added successfully", alert.Message)
}

func (s *CacheSuite) TestCanonicalRefetchEquivalence() {
	s.seedLaptopScope()
	s.Require().NoError(s.cache.SetScope(s.ctx, 1))
	s.Require().NoError(s.cache.Create(s.ctx, s.validDraft()))

	var fresh []domain.Accessory
	s.Require().NoError(s.api.Get(s.ctx, "/accessories/1", &fresh))
	s.Equal(fresh, s.cache.Accessories())
}

func (s *CacheSuite) TestScopePurityAcrossSwitches() {
	s.seedLaptopScope()
	s.server.SeedCategory(domain.Category{ID: 2, Name: "Mouse"})
	s.server.SeedAccessory(domain.Accessory{ID: 20, BrandName: "MX Master", CategoryID: 2, StockQuantity: 3})

	for _, scope := range []int64{1, 2, 1, 2} {
		s.Require().NoError(s.cache.SetScope(s.ctx, scope))
		s.Equal(scope, s.cache.Scope())
		for _, a := range s.cache.Accessories() {
			s.Equal(scope, a.CategoryID)
		}
	}
}

func (s *CacheSuite) TestIdempotentRead() {
	s.seedLaptopScope()
	s.server.SeedAccessory(domain.Accessory{ID: 11, BrandName: "ThinkPad", CategoryID: 1, StockQuantity: 2})

	s.Require().NoError(s.cache.SetScope(s.ctx, 1))
	first := s.cache.Accessories()
	s.Require().NoError(s.cache.SetScope(s.ctx, 1))
	second := s.cache.Accessories()
	s.Equal(first, second)
}

// TestStaleResponseRejection provokes the A→B ordering race: scope A's fetch
// is stalled at the server while scope B is selected and settles. Whatever
// scope A's fetch returns must never become the visible snapshot.
func (s *CacheSuite) TestStaleResponseRejection() {
	s.seedLaptopScope()
	s.server.SeedCategory(domain.Category{ID: 2, Name: "Mouse"})
	s.server.SeedAccessory(domain.Accessory{ID: 20, BrandName: "MX Master", CategoryID: 2, StockQuantity: 3})

	release := make(chan struct{})
	var once sync.Once
	s.server.Intercept(func(_, path string) {
		if path == "/accessories/1" {
			once.Do(func() { <-release })
		}
	})

	staleDone := make(chan error, 1)
	go func() {
		staleDone <- s.cache.SetScope(s.ctx, 1)
	}()

	// Wait for scope A's request to reach the server before switching.
	s.Require().Eventually(func() bool {
		return s.server.RequestCount(http.MethodGet, "/accessories/1") == 1
	}, time.Second, time.Millisecond)

	s.Require().NoError(s.cache.SetScope(s.ctx, 2))
	close(release)

	s.Require().NoError(<-staleDone, "superseded fetch must settle silently")

	s.Equal(int64(2), s.cache.Scope())
	s.Require().NoError(s.cache.Err())
	got := s.cache.Accessories()
	s.Require().Len(got, 1)
	s.Equal("MX Master", got[0].BrandName)
	s.Equal(int64(2), got[0].CategoryID)

	// Stale settling must not leak an alert either.
	select {
	case alert := <-s.feed.Alerts():
		s.Failf("unexpected alert", "%+v", alert)
	default:
	}
}

func (s *CacheSuite) TestMutationFailureKeepsSnapshot() {
	s.seedLaptopScope()
	s.Require().NoError(s.cache.SetScope(s.ctx, 1))
	before := s.cache.Accessories()

	s.server.FailWith(http.MethodPut, "/accessories/10", http.StatusUnprocessableEntity,
		`{"errors":{"brand_name":["The brand name field is required."]}}`)

	brand := ""
	err := s.cache.Update(s.ctx, 10, Patch{BrandName: &brand}, 1)
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeBadRequest))
	s.Equal(before, s.cache.Accessories())

	alert := <-s.feed.Alerts()
	s.Equal(notify.VariantError, alert.Variant)
	s.Equal("The brand name field is required.", alert.Message)
}

func (s *CacheSuite) TestUpdateResyncsScope() {
	s.seedLaptopScope()
	s.Require().NoError(s.cache.SetScope(s.ctx, 1))

	brand := "Dell XPS 15"
	s.Require().NoError(s.cache.Update(s.ctx, 10, Patch{BrandName: &brand}, 1))

	got := s.cache.Accessories()
	s.Require().Len(got, 1)
	s.Equal("Dell XPS 15", got[0].BrandName)
	s.Equal(2, s.server.RequestCount(http.MethodGet, "/accessories/1"))
}

func (s *CacheSuite) TestDeleteResyncsCurrentScope() {
	s.seedLaptopScope()
	s.Require().NoError(s.cache.SetScope(s.ctx, 1))
	s.Require().NoError(s.cache.Delete(s.ctx, 10))
	s.Empty(s.cache.Accessories())

	alert := <-s.feed.Alerts()
	s.Equal("Accessory deleted successfully", alert.Message)
}

func (s *CacheSuite) TestDeleteWithoutScopeShortCircuits() {
	err := s.cache.Delete(s.ctx, 10)
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeBadRequest))
	s.Equal(0, s.server.TotalRequests())
}

func (s *CacheSuite) TestCreateValidationShortCircuits() {
	draft := s.validDraft()
	draft.VendorName = ""
	err := s.cache.Create(s.ctx, draft)
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeBadRequest))
	s.Equal(0, s.server.TotalRequests())
}

func (s *CacheSuite) TestCreateWithImages() {
	s.seedLaptopScope()
	s.Require().NoError(s.cache.SetScope(s.ctx, 1))

	draft := s.validDraft()
	draft.Images = []apiclient.File{
		{Field: "images", Name: "front.jpg", Content: []byte{0xff, 0xd8, 0xff}},
	}
	s.Require().NoError(s.cache.Create(s.ctx, draft))

	got := s.cache.Accessories()
	s.Require().Len(got, 2)
	s.Equal([]string{"front.jpg"}, got[1].Images)
}
