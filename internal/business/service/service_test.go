package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"revenuehub/internal/business/models"
	"revenuehub/internal/business/store"
	collection "revenuehub/internal/collection/models"
	collectionstore "revenuehub/internal/collection/store"
	"revenuehub/internal/geo"
	geoservice "revenuehub/internal/geo/service"
	geostore "revenuehub/internal/geo/store"
	identity "revenuehub/internal/identity/models"
	userstore "revenuehub/internal/identity/store"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/platform/audit/publisher"
	auditmemory "revenuehub/pkg/platform/audit/store/memory"
	"revenuehub/pkg/requestcontext"
)

const (
	accra = "Accra Metropolitan"
	tema  = "Tema Metropolitan"
)

type assignmentsFunc func(ctx context.Context, collectorID id.UserID, at time.Time) ([]id.BusinessID, error)

func (f assignmentsFunc) ActiveBusinessIDs(ctx context.Context, collectorID id.UserID, at time.Time) ([]id.BusinessID, error) {
	return f(ctx, collectorID, at)
}

type BusinessServiceSuite struct {
	suite.Suite
	store       *store.InMemory
	collections *collectionstore.InMemory
	users       *userstore.InMemory
	audit       *auditmemory.InMemoryStore
	assigned    map[id.UserID][]id.BusinessID
	service     *Service
	now         time.Time
}

func TestBusinessServiceSuite(t *testing.T) {
	suite.Run(t, new(BusinessServiceSuite))
}

func (s *BusinessServiceSuite) SetupTest() {
	ctx := context.Background()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.collections = collectionstore.NewInMemory()
	s.store = store.NewInMemory(store.WithReferrers(s.collections))
	s.users = userstore.NewInMemory()
	s.audit = auditmemory.NewInMemoryStore()
	s.assigned = make(map[id.UserID][]id.BusinessID)

	catalog := geo.NewGhanaCatalog()
	districts := geostore.NewInMemory()
	_, err := geostore.SeedFromCatalog(ctx, districts, catalog, s.now)
	s.Require().NoError(err)

	s.service = New(s.store, catalog,
		WithOwners(s.users),
		WithDistrictChecker(geoservice.New(districts, catalog)),
		WithAssignments(assignmentsFunc(func(_ context.Context, collectorID id.UserID, _ time.Time) ([]id.BusinessID, error) {
			return s.assigned[collectorID], nil
		})),
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
	)
}

func (s *BusinessServiceSuite) as(userID id.UserID, role id.Role, district, region string) context.Context {
	ctx := requestcontext.WithPrincipal(context.Background(), userID, role, district, region)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *BusinessServiceSuite) officer() context.Context {
	return s.as(id.UserID(uuid.New()), id.RoleBusinessRegistrationOfficer, accra, "Greater Accra")
}

func (s *BusinessServiceSuite) register(ctx context.Context, name, district string) *models.Business {
	b, err := s.service.Register(ctx, RegisterInput{
		Name: name, OwnerName: "Ama Mensah", Category: "Retail", Phone: "0244000001", District: district,
	})
	s.Require().NoError(err)
	return b
}

func (s *BusinessServiceSuite) newOwner(role id.Role) id.UserID {
	u, err := identity.NewUser(id.UserID(uuid.New()), uuid.NewString()+"@example.com", "Owner", role, accra, "", "hash", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u.ID
}

func (s *BusinessServiceSuite) TestRegister() {
	s.Run("officer registers into own district", func() {
		b := s.register(s.officer(), "Accra Bakery", "")
		s.Regexp(`^BUS-[0-9A-F]{6}$`, b.Code)
		s.Equal(accra, b.District)
		s.Equal(models.BusinessStatusActive, b.Status)
		s.Equal(s.now, b.RegistrationDate)
	})

	s.Run("officer cannot register elsewhere", func() {
		_, err := s.service.Register(s.officer(), RegisterInput{
			Name: "X", OwnerName: "Y", Category: "Retail", Phone: "1", District: tema,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unrestricted registrar must name an active district", func() {
		admin := s.as(id.UserID(uuid.New()), id.RoleSuperAdmin, "", "")
		_, err := s.service.Register(admin, RegisterInput{Name: "X", OwnerName: "Y", Category: "Retail", Phone: "1"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.Register(admin, RegisterInput{Name: "X", OwnerName: "Y", Category: "Retail", Phone: "1", District: "Gotham"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("district is stored with its catalog spelling", func() {
		admin := s.as(id.UserID(uuid.New()), id.RoleSuperAdmin, "", "")
		b := s.register(admin, "Osu Night Market", "  accra metropolitan ")
		s.Equal(accra, b.District)

		accraAdmin := s.as(id.UserID(uuid.New()), id.RoleMMDAAdmin, accra, "")
		list, err := s.service.List(accraAdmin, ListFilter{Search: "osu night"})
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(b.ID, list[0].ID)
		_, err = s.service.Get(accraAdmin, b.ID)
		s.NoError(err)
	})

	s.Run("missing fields are validation errors", func() {
		_, err := s.service.Register(s.officer(), RegisterInput{Name: "X", Category: "Retail", Phone: "1"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("owner account must be a business owner", func() {
		collector := s.newOwner(id.RoleCollector)
		_, err := s.service.Register(s.officer(), RegisterInput{
			Name: "X", OwnerName: "Y", Category: "Retail", Phone: "1", OwnerUserID: &collector,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		owner := s.newOwner(id.RoleBusinessOwner)
		b, err := s.service.Register(s.officer(), RegisterInput{
			Name: "Owned", OwnerName: "Y", Category: "Retail", Phone: "1", OwnerUserID: &owner,
		})
		s.Require().NoError(err)
		s.True(b.OwnedBy(owner))
	})

	events, err := s.audit.Search(context.Background(), audit.Query{Action: audit.ActionBusinessRegistered})
	s.Require().NoError(err)
	s.Len(events, 3)
}

func (s *BusinessServiceSuite) TestListIsScopedAndFiltered() {
	s.register(s.officer(), "Accra Bakery", "")
	s.register(s.officer(), "Makola Fabrics", "")
	s.register(s.as(id.UserID(uuid.New()), id.RoleBusinessRegistrationOfficer, tema, ""), "Tema Hardware", "")

	list, err := s.service.List(s.officer(), ListFilter{})
	s.Require().NoError(err)
	s.Len(list, 2)
	for _, b := range list {
		s.Equal(accra, b.District)
	}

	list, err = s.service.List(s.as(id.UserID(uuid.New()), id.RoleRegionalAdmin, "", "Greater Accra"), ListFilter{Search: "hardware"})
	s.Require().NoError(err)
	s.Len(list, 1)

	list, err = s.service.List(s.as(id.UserID(uuid.New()), id.RoleAuditor, "", ""), ListFilter{Category: "retail"})
	s.Require().NoError(err)
	s.Len(list, 3)

	list, err = s.service.List(s.as(id.UserID(uuid.New()), id.RoleFinance, "", ""), ListFilter{})
	s.Require().NoError(err)
	s.Empty(list, "restricted role without jurisdiction sees nothing")
}

func (s *BusinessServiceSuite) TestMineAndGet() {
	owner := s.newOwner(id.RoleBusinessOwner)
	collector := id.UserID(uuid.New())

	owned, err := s.service.Register(s.officer(), RegisterInput{
		Name: "Owned", OwnerName: "Y", Category: "Retail", Phone: "1", OwnerUserID: &owner,
	})
	s.Require().NoError(err)
	other := s.register(s.officer(), "Other", "")
	assigned := s.register(s.as(id.UserID(uuid.New()), id.RoleMMDAAdmin, tema, ""), "Assigned", "")
	s.assigned[collector] = []id.BusinessID{assigned.ID}

	ownerCtx := s.as(owner, id.RoleBusinessOwner, accra, "")
	collectorCtx := s.as(collector, id.RoleCollector, accra, "")

	s.Run("owner sees owned businesses", func() {
		mine, err := s.service.Mine(ownerCtx)
		s.Require().NoError(err)
		s.Require().Len(mine, 1)
		s.Equal(owned.ID, mine[0].ID)

		_, err = s.service.Get(ownerCtx, owned.ID)
		s.NoError(err)
		_, err = s.service.Get(ownerCtx, other.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("collector sees assigned businesses", func() {
		mine, err := s.service.Mine(collectorCtx)
		s.Require().NoError(err)
		s.Require().Len(mine, 1)
		s.Equal(assigned.ID, mine[0].ID)

		_, err = s.service.Get(collectorCtx, assigned.ID)
		s.NoError(err, "assigned outside home district")
		_, err = s.service.Get(collectorCtx, other.ID)
		s.NoError(err, "in home district with view_business")
	})

	s.Run("collector without assignments has none", func() {
		mine, err := s.service.Mine(s.as(id.UserID(uuid.New()), id.RoleCollector, accra, ""))
		s.Require().NoError(err)
		s.Empty(mine)
	})

	s.Run("unknown business", func() {
		_, err := s.service.Get(ownerCtx, id.BusinessID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *BusinessServiceSuite) TestUpdateAndDelete() {
	b := s.register(s.officer(), "Accra Bakery", "")
	temaAdmin := s.as(id.UserID(uuid.New()), id.RoleMMDAAdmin, tema, "")
	accraAdmin := s.as(id.UserID(uuid.New()), id.RoleMMDAAdmin, accra, "")

	s.Run("update in jurisdiction", func() {
		status := models.BusinessStatusSuspended
		phone := "0200000000"
		updated, err := s.service.Update(accraAdmin, b.ID, models.BusinessUpdate{Status: &status, Phone: &phone})
		s.Require().NoError(err)
		s.Equal(models.BusinessStatusSuspended, updated.Status)
		s.Equal(phone, updated.Phone)
		s.Equal(b.Code, updated.Code)
	})

	s.Run("empty update", func() {
		_, err := s.service.Update(accraAdmin, b.ID, models.BusinessUpdate{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("update out of jurisdiction", func() {
		name := "Hijacked"
		_, err := s.service.Update(temaAdmin, b.ID, models.BusinessUpdate{Name: &name})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("delete out of jurisdiction", func() {
		s.True(dErrors.HasCode(s.service.Delete(temaAdmin, b.ID), dErrors.CodeForbidden))
	})

	s.Run("delete with recorded collections", func() {
		c, err := collection.NewCollection(id.CollectionID(uuid.New()), "RCP-20260301-AB12CD", b.ID, id.RevenueTypeID(uuid.New()),
			decimal.RequireFromString("50"), collection.PaymentMethodCash, s.now, accra, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.collections.Create(context.Background(), c))

		err = s.service.Delete(accraAdmin, b.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		_, err = s.service.Get(accraAdmin, b.ID)
		s.Require().NoError(err, "business survives the refused delete")
	})

	s.Run("delete", func() {
		other := s.register(s.officer(), "Accra Florist", "")
		s.Require().NoError(s.service.Delete(accraAdmin, other.ID))
		s.True(dErrors.HasCode(s.service.Delete(accraAdmin, other.ID), dErrors.CodeNotFound))
		s.True(dErrors.HasCode(s.service.Delete(accraAdmin, b.ID), dErrors.CodeNotFound))
	})
}
