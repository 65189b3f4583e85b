//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	businessmodels "revenuehub/internal/business/models"
	businessstore "revenuehub/internal/business/store"
	"revenuehub/internal/collection/models"
	"revenuehub/internal/collection/store"
	revenuemodels "revenuehub/internal/revenue/models"
	revenuestore "revenuehub/internal/revenue/store"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/sentinel"
	"revenuehub/pkg/testutil/containers"
)

type PostgresCollectionStoreSuite struct {
	suite.Suite
	postgres    *containers.PostgresContainer
	store       *store.PostgresStore
	business    id.BusinessID
	revenueType id.RevenueTypeID
	now         time.Time
}

func TestPostgresCollectionStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresCollectionStoreSuite))
}

func (s *PostgresCollectionStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresCollectionStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "collections", "revenue_types", "businesses"))

	b, err := businessmodels.NewBusiness(id.BusinessID(uuid.New()), id.NewReference(id.PrefixBusiness), "Makola Stores", "Ama",
		"Retail", "0244000000", "Accra Metropolitan", "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(businessstore.NewPostgres(s.postgres.DB).Create(ctx, b))
	s.business = b.ID

	rt, err := revenuemodels.NewRevenueType(id.RevenueTypeID(uuid.New()), "MKT", "Market toll", decimal.NewFromInt(5),
		revenuemodels.FrequencyDaily, revenuemodels.CategoryToll, "Accra Metropolitan", s.now)
	s.Require().NoError(err)
	s.Require().NoError(revenuestore.NewPostgres(s.postgres.DB).Create(ctx, rt))
	s.revenueType = rt.ID
}

func (s *PostgresCollectionStoreSuite) create(amount string, at time.Time) *models.Collection {
	c, err := models.NewCollection(id.CollectionID(uuid.New()), id.NewDatedReference(id.PrefixReceipt, at), s.business, s.revenueType,
		decimal.RequireFromString(amount), models.PaymentMethodMomo, at, "Accra Metropolitan", s.now)
	s.Require().NoError(err)
	collector := id.UserID(uuid.New())
	c.CollectorID = &collector
	c.ClientIP = "41.66.1.10"
	c.DeviceInfo = "Android 14 / Chrome 120"
	s.Require().NoError(s.store.Create(context.Background(), c))
	return c
}

func (s *PostgresCollectionStoreSuite) TestRoundTrip() {
	c := s.create("1250.75", s.now)

	found, err := s.store.FindByID(context.Background(), c.ID)
	s.Require().NoError(err)
	s.Equal(c.ReceiptCode, found.ReceiptCode)
	s.True(found.Amount.Equal(decimal.RequireFromString("1250.75")))
	s.Require().NotNil(found.CollectorID)
	s.Equal(*c.CollectorID, *found.CollectorID)
	s.Nil(found.PaidBy)
	s.Nil(found.ValidatedAt)
	s.Equal("Android 14 / Chrome 120", found.DeviceInfo)
}

func (s *PostgresCollectionStoreSuite) TestValidateFlagAndFilter() {
	ctx := context.Background()
	c := s.create("20", s.now.AddDate(0, 0, -3))
	s.create("30", s.now)

	validator := id.UserID(uuid.New())
	validated, err := s.store.Execute(ctx, c.ID,
		func(c *models.Collection) error { return c.CanValidate() },
		func(c *models.Collection) {
			c.ApplyValidation(validator, s.now)
			c.ApplyFlag("late entry", models.RiskMedium, validator, s.now)
		},
	)
	s.Require().NoError(err)
	s.Equal(models.StatusPaid, validated.Status)

	paid, err := s.store.List(ctx, store.Filter{Status: models.StatusPaid})
	s.Require().NoError(err)
	s.Require().Len(paid, 1)
	s.Require().NotNil(paid[0].ValidatedBy)
	s.Equal(validator, *paid[0].ValidatedBy)
	s.Equal(models.RiskMedium, paid[0].RiskLevel)

	recent, err := s.store.List(ctx, store.Filter{From: s.now.AddDate(0, 0, -1), BusinessIDs: []id.BusinessID{s.business}})
	s.Require().NoError(err)
	s.Len(recent, 1)

	_, err = s.store.Execute(ctx, id.CollectionID(uuid.New()), func(*models.Collection) error { return nil }, func(*models.Collection) {})
	s.ErrorIs(err, sentinel.ErrNotFound)
}
