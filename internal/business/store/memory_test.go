package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"revenuehub/internal/business/models"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/sentinel"
)

type InMemoryBusinessStoreSuite struct {
	suite.Suite
	store *InMemory
}

func TestInMemoryBusinessStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBusinessStoreSuite))
}

func (s *InMemoryBusinessStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func newBusiness(name, district, category string) *models.Business {
	b, _ := models.NewBusiness(id.BusinessID(uuid.New()), id.NewReference(id.PrefixBusiness), name, "Owner", category, "0244000000", district, "", time.Now())
	return b
}

func (s *InMemoryBusinessStoreSuite) TestCreateRejectsDuplicateCode() {
	ctx := context.Background()
	b := newBusiness("Accra Bakery", "Accra Metropolitan", "Bakery")
	s.Require().NoError(s.store.Create(ctx, b))

	dup := newBusiness("Other", "Accra Metropolitan", "Bakery")
	dup.Code = b.Code
	s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrConflict)
}

func (s *InMemoryBusinessStoreSuite) TestListFilters() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	bakery := newBusiness("Accra Bakery", "Accra Metropolitan", "Bakery")
	bakery.OwnerUserID = &owner
	hardware := newBusiness("Tema Hardware", "Tema Metropolitan", "Hardware")
	boutique := newBusiness("Osu Boutique", "Accra Metropolitan", "Fashion")
	boutique.Status = models.BusinessStatusSuspended
	for _, b := range []*models.Business{bakery, hardware, boutique} {
		s.Require().NoError(s.store.Create(ctx, b))
	}

	cases := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"everything", Filter{}, 3},
		{"no districts", Filter{Districts: []string{}}, 0},
		{"one district", Filter{Districts: []string{"Accra Metropolitan"}}, 2},
		{"district names match exactly", Filter{Districts: []string{"ACCRA METROPOLITAN"}}, 0},
		{"by ids", Filter{IDs: []id.BusinessID{hardware.ID}}, 1},
		{"empty ids", Filter{IDs: []id.BusinessID{}}, 0},
		{"by owner", Filter{OwnerID: &owner}, 1},
		{"by status", Filter{Status: models.BusinessStatusSuspended}, 1},
		{"by category ignoring case", Filter{Category: "bakery"}, 1},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			got, err := s.store.List(ctx, tc.filter)
			s.Require().NoError(err)
			s.Len(got, tc.want)
		})
	}
}

func (s *InMemoryBusinessStoreSuite) TestExecuteRecordPaymentAndDelete() {
	ctx := context.Background()
	b := newBusiness("Accra Bakery", "Accra Metropolitan", "Bakery")
	s.Require().NoError(s.store.Create(ctx, b))

	name := "Accra Bakery Ltd"
	updated, err := s.store.Execute(ctx, b.ID,
		func(*models.Business) error { return nil },
		func(b *models.Business) { b.ApplyUpdate(models.BusinessUpdate{Name: &name}, time.Now()) },
	)
	s.Require().NoError(err)
	s.Equal(name, updated.Name)

	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.RecordPayment(ctx, b.ID, at))
	found, err := s.store.FindByID(ctx, b.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.LastPaymentAt)
	s.Equal(at, *found.LastPaymentAt)

	s.Require().NoError(s.store.Delete(ctx, b.ID))
	_, err = s.store.FindByID(ctx, b.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, b.ID), sentinel.ErrNotFound)

	again := newBusiness("Reuse", "Accra Metropolitan", "Bakery")
	again.Code = b.Code
	s.NoError(s.store.Create(ctx, again), "deleted codes are released")
}

type referrersFunc func(ctx context.Context, businessID id.BusinessID) (bool, error)

func (f referrersFunc) ReferencesBusiness(ctx context.Context, businessID id.BusinessID) (bool, error) {
	return f(ctx, businessID)
}

func (s *InMemoryBusinessStoreSuite) TestDeleteRefusesReferencedBusiness() {
	ctx := context.Background()
	paid := newBusiness("Accra Bakery", "Accra Metropolitan", "Bakery")
	s.store = NewInMemory(WithReferrers(referrersFunc(func(_ context.Context, businessID id.BusinessID) (bool, error) {
		return businessID == paid.ID, nil
	})))
	s.Require().NoError(s.store.Create(ctx, paid))

	s.ErrorIs(s.store.Delete(ctx, paid.ID), sentinel.ErrConflict)
	found, err := s.store.FindByID(ctx, paid.ID)
	s.Require().NoError(err)
	s.Equal(paid.Code, found.Code)

	dup := newBusiness("Copy", "Accra Metropolitan", "Bakery")
	dup.Code = paid.Code
	s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrConflict, "refused delete keeps the code reserved")
}
