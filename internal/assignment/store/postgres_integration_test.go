//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"revenuehub/internal/assignment/models"
	"revenuehub/internal/assignment/store"
	businessmodels "revenuehub/internal/business/models"
	businessstore "revenuehub/internal/business/store"
	identity "revenuehub/internal/identity/models"
	userstore "revenuehub/internal/identity/store"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/sentinel"
	"revenuehub/pkg/testutil/containers"
)

type PostgresAssignmentStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *store.PostgresStore
	collector id.UserID
	business  id.BusinessID
	start     time.Time
}

func TestPostgresAssignmentStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAssignmentStoreSuite))
}

func (s *PostgresAssignmentStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.start = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
}

func (s *PostgresAssignmentStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "assignments", "businesses", "users"))

	u, err := identity.NewUser(id.UserID(uuid.New()), "kofi@example.com", "Kofi", id.RoleCollector, "Accra Metropolitan", "", "hash", s.start)
	s.Require().NoError(err)
	s.Require().NoError(userstore.NewPostgres(s.postgres.DB).Create(ctx, u))
	s.collector = u.ID

	b, err := businessmodels.NewBusiness(id.BusinessID(uuid.New()), id.NewReference(id.PrefixBusiness), "Makola Stores", "Ama",
		"Retail", "0244000000", "Accra Metropolitan", "", s.start)
	s.Require().NoError(err)
	s.Require().NoError(businessstore.NewPostgres(s.postgres.DB).Create(ctx, b))
	s.business = b.ID
}

func (s *PostgresAssignmentStoreSuite) create(business *id.BusinessID, zone string, end *time.Time) *models.Assignment {
	a, err := models.NewAssignment(id.AssignmentID(uuid.New()), id.NewReference(id.PrefixAssignment), s.collector, business, zone,
		s.start, end, id.UserID(uuid.New()), "Accra Metropolitan", s.start)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), a))
	return a
}

func (s *PostgresAssignmentStoreSuite) TestRoundTrip() {
	end := s.start.AddDate(0, 1, 0)
	a := s.create(&s.business, "", &end)

	found, err := s.store.FindByID(context.Background(), a.ID)
	s.Require().NoError(err)
	s.Equal(a.Code, found.Code)
	s.Require().NotNil(found.BusinessID)
	s.Equal(s.business, *found.BusinessID)
	s.Require().NotNil(found.EndDate)
	s.True(end.Equal(*found.EndDate))
}

func (s *PostgresAssignmentStoreSuite) TestActiveBusinessIDs() {
	ctx := context.Background()
	s.create(&s.business, "", nil)
	s.create(&s.business, "", nil)
	s.create(nil, "Makola Market", nil)

	ids, err := s.store.ActiveBusinessIDs(ctx, s.collector, s.start.AddDate(0, 0, 1))
	s.Require().NoError(err)
	s.Equal([]id.BusinessID{s.business}, ids)

	ids, err = s.store.ActiveBusinessIDs(ctx, s.collector, s.start.Add(-time.Hour))
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *PostgresAssignmentStoreSuite) TestExecuteListAndDelete() {
	ctx := context.Background()
	a := s.create(nil, "Osu", nil)

	off := false
	updated, err := s.store.Execute(ctx, a.ID,
		func(*models.Assignment) error { return nil },
		func(a *models.Assignment) { a.ApplyUpdate(models.AssignmentUpdate{IsActive: &off}, s.start) },
	)
	s.Require().NoError(err)
	s.False(updated.IsActive)

	active, err := s.store.List(ctx, store.Filter{CollectorID: &s.collector, ActiveOnly: true})
	s.Require().NoError(err)
	s.Empty(active)

	s.Require().NoError(s.store.Delete(ctx, a.ID))
	_, err = s.store.FindByID(ctx, a.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
