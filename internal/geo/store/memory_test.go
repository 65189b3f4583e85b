package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"revenuehub/internal/geo"
	"revenuehub/internal/geo/models"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/sentinel"
)

type DistrictStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *DistrictStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestDistrictStoreSuite(t *testing.T) {
	suite.Run(t, new(DistrictStoreSuite))
}

func (s *DistrictStoreSuite) newDistrict(name, code, region string) *models.District {
	d, err := models.NewDistrict(id.DistrictID(uuid.New()), name, code, region, time.Now())
	s.Require().NoError(err)
	return d
}

func (s *DistrictStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds district by ID and name", func() {
		d := s.newDistrict("Accra Metropolitan", "ama", "Greater Accra")
		s.Require().NoError(s.store.Create(s.ctx, d))

		found, err := s.store.FindByID(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal("AMA", found.Code)

		found, err = s.store.FindByName(s.ctx, "accra metropolitan")
		s.Require().NoError(err)
		s.Equal(d.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.DistrictID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate name and code", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newDistrict("Ho Municipal", "HMA", "Volta")))
		err := s.store.Create(s.ctx, s.newDistrict("HO MUNICIPAL", "HMA2", "Volta"))
		s.ErrorIs(err, sentinel.ErrConflict)
		err = s.store.Create(s.ctx, s.newDistrict("Hohoe Municipal", "HMA", "Volta"))
		s.ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *DistrictStoreSuite) TestList() {
	s.Require().NoError(s.store.Create(s.ctx, s.newDistrict("Tema Metropolitan", "TMA", "Greater Accra")))
	s.Require().NoError(s.store.Create(s.ctx, s.newDistrict("Kumasi Metropolitan", "KMA", "Ashanti")))

	s.Run("nil names lists everything sorted", func() {
		all, err := s.store.List(s.ctx, nil)
		s.Require().NoError(err)
		s.Require().Len(all, 2)
		s.Equal("Kumasi Metropolitan", all[0].Name)
	})

	s.Run("empty names lists nothing", func() {
		none, err := s.store.List(s.ctx, []string{})
		s.Require().NoError(err)
		s.NotNil(none)
		s.Empty(none)
	})

	s.Run("restricts to names", func() {
		some, err := s.store.List(s.ctx, []string{"Tema Metropolitan"})
		s.Require().NoError(err)
		s.Require().Len(some, 1)
		s.Equal("TMA", some[0].Code)
	})
}

func (s *DistrictStoreSuite) TestExecute() {
	d := s.newDistrict("Wa Municipal", "WMA", "Upper West")
	s.Require().NoError(s.store.Create(s.ctx, d))

	s.Run("validation failure leaves record untouched", func() {
		boom := errors.New("nope")
		_, err := s.store.Execute(s.ctx, d.ID,
			func(*models.District) error { return boom },
			func(d *models.District) { d.ApplyDeactivation(time.Now()) },
		)
		s.ErrorIs(err, boom)
		found, _ := s.store.FindByID(s.ctx, d.ID)
		s.True(found.IsActive())
	})

	s.Run("applies mutation", func() {
		updated, err := s.store.Execute(s.ctx, d.ID,
			func(d *models.District) error { return d.CanDeactivate() },
			func(d *models.District) { d.ApplyDeactivation(time.Now()) },
		)
		s.Require().NoError(err)
		s.False(updated.IsActive())
	})

	s.Run("code change colliding with another district conflicts", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newDistrict("Lawra Municipal", "LMA", "Upper West")))
		code := "LMA"
		_, err := s.store.Execute(s.ctx, d.ID,
			func(*models.District) error { return nil },
			func(d *models.District) { d.ApplyUpdate(models.DistrictUpdate{Code: &code}, time.Now()) },
		)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown id", func() {
		_, err := s.store.Execute(s.ctx, id.DistrictID(uuid.New()),
			func(*models.District) error { return nil },
			func(*models.District) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *DistrictStoreSuite) TestSeedFromCatalog() {
	catalog := geo.NewCatalog(map[string][]string{
		"Greater Accra": {"Tema Metropolitan"},
		"Northern":      {"Tamale Metropolitan"},
	})
	created, err := SeedFromCatalog(s.ctx, s.store, catalog, time.Now())
	s.Require().NoError(err)
	s.Equal(2, created)

	tamale, err := s.store.FindByName(s.ctx, "Tamale Metropolitan")
	s.Require().NoError(err)
	s.Equal("TMA2", tamale.Code, "colliding codes get a numeric suffix")

	again, err := SeedFromCatalog(s.ctx, s.store, catalog, time.Now())
	s.Require().NoError(err)
	s.Zero(again)
}

func TestAssemblyCode(t *testing.T) {
	cases := map[string]string{
		"Accra Metropolitan":            "AMA",
		"Ga East Municipal":             "GEMA",
		"Sekondi-Takoradi Metropolitan": "STMA",
	}
	for name, want := range cases {
		if got := AssemblyCode(name); got != want {
			t.Errorf("AssemblyCode(%q) = %q, want %q", name, got, want)
		}
	}
}
