package assignment

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"

	"assetdesk/internal/apiclient"
	"assetdesk/internal/credential"
	"assetdesk/internal/domain"
	"assetdesk/internal/notify"
	domainerrors "assetdesk/pkg/domain-errors"
	"assetdesk/pkg/testutil"
)

type LedgerSuite struct {
	suite.Suite
	ctx    context.Context
	server *testutil.APIServer
	api    *apiclient.Client
	feed   *notify.Feed
	ledger *Ledger
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.server = testutil.NewAPIServer(s.T())
	s.api = apiclient.New(s.server.URL(), credential.NewStatic(testutil.Token))
	s.feed = notify.NewFeed(16)
	s.ledger = New(s.api, s.feed)
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) seedReferents() {
	s.server.SeedEmployee(domain.Employee{ID: 7, Name: "Ada"})
	s.server.SeedCategory(domain.Category{ID: 1, Name: "Laptop"})
	s.server.SeedAccessory(domain.Accessory{
		ID: 10, BrandName: "Dell XPS", CategoryID: 1,
		StockQuantity: 1, Status: domain.AccessoryAvailable,
	})
}

func (s *LedgerSuite) TestDraftValidation() {
	cases := []struct {
		name    string
		draft   Draft
		message string
	}{
		{"missing user", Draft{AccessoryID: 10, AssignedAt: "2025-05-01"}, "The user field is required"},
		{"missing accessory", Draft{UserID: 7, AssignedAt: "2025-05-01"}, "The accessory field is required"},
		{"missing date", Draft{UserID: 7, AccessoryID: 10}, "The assigned at field is required"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			err := tc.draft.Validate()
			s.Require().Error(err)
			s.True(domainerrors.HasCode(err, domainerrors.CodeBadRequest))
			s.Equal(tc.message, domainerrors.MessageOf(err))
		})
	}
	s.NoError(Draft{UserID: 7, AccessoryID: 10, AssignedAt: "2025-05-01"}.Validate())
}

func (s *LedgerSuite) TestCreateIncompleteDraftNeverReachesNetwork() {
	s.seedReferents()
	s.Require().NoError(s.ledger.List(s.ctx))
	s.Equal(1, s.server.TotalRequests())

	err := s.ledger.Create(s.ctx, Draft{UserID: 7, AssignedAt: "2025-05-01"})
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeBadRequest))
	s.Equal(1, s.server.TotalRequests(), "incomplete draft must not generate traffic")
	s.Empty(s.ledger.Assignments())
	s.Require().Error(s.ledger.LastError())
}

func (s *LedgerSuite) TestCreateLeavesAccessoryStatusUntouched() {
	s.seedReferents()

	draft := Draft{UserID: 7, CategoryID: 1, AccessoryID: 10, AssignedAt: "2025-05-01"}
	s.Require().NoError(s.ledger.Create(s.ctx, draft))

	got := s.ledger.Assignments()
	s.Require().Len(got, 1)
	s.Equal(domain.AssignmentAssigned, got[0].Status, "status defaults to assigned")
	s.Equal(int64(7), got[0].UserID)
	s.Equal(int64(10), got[0].AccessoryID)

	// Listings are decorated with read-only referent views.
	s.Require().NotNil(got[0].User)
	s.Equal("Ada", got[0].User.Name)
	s.Require().NotNil(got[0].Accessory)
	s.Equal("Dell XPS", got[0].Accessory.BrandName)

	// The ledger and the inventory are independent state machines: assigning
	// must not flip the accessory's own status.
	status, ok := s.server.AccessoryStatus(10)
	s.Require().True(ok)
	s.Equal(domain.AccessoryAvailable, status)

	alert := <-s.feed.Alerts()
	s.Equal(notify.VariantSuccess, alert.Variant)
	s.Equal("Accessory assigned successfully", alert.Message)
}

func (s *LedgerSuite) TestCreateAllowsDoubleAssignment() {
	s.seedReferents()
	s.server.SeedEmployee(domain.Employee{ID: 8, Name: "Grace"})

	draft := Draft{UserID: 7, CategoryID: 1, AccessoryID: 10, AssignedAt: "2025-05-01"}
	s.Require().NoError(s.ledger.Create(s.ctx, draft))
	draft.UserID = 8
	s.Require().NoError(s.ledger.Create(s.ctx, draft))

	s.Len(s.ledger.Assignments(), 2, "no client-side uniqueness constraint")
}

func (s *LedgerSuite) TestAccessoryIndexSpansCategories() {
	s.seedReferents()
	s.server.SeedCategory(domain.Category{ID: 2, Name: "Mouse"})
	s.server.SeedAccessory(domain.Accessory{ID: 20, BrandName: "MX Master", CategoryID: 2, StockQuantity: 1})

	got, err := s.ledger.AccessoryIndex(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	seen := map[int64]bool{}
	for _, a := range got {
		seen[a.CategoryID] = true
	}
	s.True(seen[1])
	s.True(seen[2])
}

func (s *LedgerSuite) TestCreateServerValidationFailure() {
	s.server.FailWith(http.MethodPost, "/assignments", http.StatusUnprocessableEntity,
		`{"errors":{"accessory_id":["The selected accessory is invalid."]}}`)

	err := s.ledger.Create(s.ctx, Draft{UserID: 7, AccessoryID: 99, AssignedAt: "2025-05-01"})
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeBadRequest))
	s.Empty(s.ledger.Assignments())

	alert := <-s.feed.Alerts()
	s.Equal(notify.VariantError, alert.Variant)
	s.Equal("The selected accessory is invalid.", alert.Message)
}

func (s *LedgerSuite) TestUpdateStatusFreely() {
	s.seedReferents()
	seeded := s.server.SeedAssignment(domain.Assignment{
		UserID: 7, CategoryID: 1, AccessoryID: 10,
		AssignedAt: "2025-05-01", Status: domain.AssignmentAssigned,
	})

	status := domain.AssignmentLost
	s.Require().NoError(s.ledger.Update(s.ctx, seeded.ID, Patch{Status: &status}))

	got := s.ledger.Assignments()
	s.Require().Len(got, 1)
	s.Equal(domain.AssignmentLost, got[0].Status, "any enumerated status is accepted, no transition table")

	alert := <-s.feed.Alerts()
	s.Equal("Assignment updated successfully", alert.Message)
}

func (s *LedgerSuite) TestDeleteRefetchesLedger() {
	s.seedReferents()
	seeded := s.server.SeedAssignment(domain.Assignment{
		UserID: 7, CategoryID: 1, AccessoryID: 10,
		AssignedAt: "2025-05-01", Status: domain.AssignmentAssigned,
	})

	s.Require().NoError(s.ledger.Delete(s.ctx, seeded.ID))
	s.Empty(s.ledger.Assignments())

	status, ok := s.server.AccessoryStatus(10)
	s.Require().True(ok)
	s.Equal(domain.AccessoryAvailable, status, "deleting an assignment leaves the accessory alone")

	alert := <-s.feed.Alerts()
	s.Equal("Assignment deleted successfully", alert.Message)
}

func (s *LedgerSuite) TestMissingCredentialShortCircuits() {
	ledger := New(apiclient.New(s.server.URL(), credential.NewStatic("")), s.feed)

	err := ledger.List(s.ctx)
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
	s.Equal(0, s.server.TotalRequests())
}
