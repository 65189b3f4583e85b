package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"revenuehub/internal/geo"
	geoservice "revenuehub/internal/geo/service"
	geostore "revenuehub/internal/geo/store"
	"revenuehub/internal/identity/models"
	"revenuehub/internal/identity/revocation"
	"revenuehub/internal/identity/secrets"
	"revenuehub/internal/identity/store"
	"revenuehub/internal/identity/token"
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

type UserAdminSuite struct {
	suite.Suite
	users   *store.InMemory
	audit   *auditmemory.InMemoryStore
	service *Service
	now     time.Time
}

func TestUserAdminSuite(t *testing.T) {
	suite.Run(t, new(UserAdminSuite))
}

func (s *UserAdminSuite) SetupTest() {
	s.users = store.NewInMemory()
	s.audit = auditmemory.NewInMemoryStore()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.service = New(
		s.users,
		token.NewJWTService("test-signing-key", "revenuehub", time.Hour),
		revocation.NewInMemoryTRL(),
		geo.NewGhanaCatalog(),
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
	)
}

func (s *UserAdminSuite) as(role id.Role, district, region string) context.Context {
	return s.asUser(id.UserID(uuid.New()), role, district, region)
}

func (s *UserAdminSuite) asUser(userID id.UserID, role id.Role, district, region string) context.Context {
	ctx := requestcontext.WithPrincipal(context.Background(), userID, role, district, region)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *UserAdminSuite) seedUser(email string, role id.Role, district, region string) *models.User {
	hash, err := secrets.Hash("Secret123!")
	s.Require().NoError(err)
	u, err := models.NewUser(id.UserID(uuid.New()), email, email, role, district, region, hash, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u
}

func (s *UserAdminSuite) TestCreateUser() {
	admin := s.as(id.RoleMMDAAdmin, accra, "Greater Accra")

	s.Run("district admin creates a collector in their own district", func() {
		created, err := s.service.CreateUser(admin, CreateUserInput{
			Email: "Kofi@Example.com", Name: "Kofi", Role: id.RoleCollector, Password: "Collect123",
		})
		s.Require().NoError(err)
		s.Equal("kofi@example.com", created.User.Email)
		s.Equal(accra, created.User.District)
		s.Equal("Greater Accra", created.User.Region)
		s.Empty(created.TemporaryPassword)
	})

	s.Run("district admin cannot place a user elsewhere", func() {
		_, err := s.service.CreateUser(admin, CreateUserInput{
			Email: "ama@example.com", Name: "Ama", Role: id.RoleCollector, District: tema,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("district admin cannot grant privileged roles", func() {
		for _, role := range []id.Role{id.RoleSuperAdmin, id.RoleMonitoringBody, id.RoleRegionalAdmin} {
			_, err := s.service.CreateUser(admin, CreateUserInput{
				Email: string(role) + "@example.com", Name: "X", Role: role, Region: "Greater Accra",
			})
			s.True(dErrors.HasCode(err, dErrors.CodeForbidden), role)
		}
	})

	s.Run("missing password yields a working temporary one", func() {
		created, err := s.service.CreateUser(admin, CreateUserInput{
			Email: "temp@example.com", Name: "Temp", Role: id.RoleFinance,
		})
		s.Require().NoError(err)
		s.NotEmpty(created.TemporaryPassword)

		_, err = s.service.Login(requestcontext.WithTime(context.Background(), s.now), "temp@example.com", created.TemporaryPassword)
		s.NoError(err)
	})

	s.Run("weak password is rejected", func() {
		_, err := s.service.CreateUser(admin, CreateUserInput{
			Email: "weak@example.com", Name: "Weak", Role: id.RoleFinance, Password: "short",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate email conflicts", func() {
		_, err := s.service.CreateUser(admin, CreateUserInput{
			Email: "KOFI@example.com", Name: "Kofi 2", Role: id.RoleCollector, Password: "Collect123",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("super admin creates a regional admin", func() {
		created, err := s.service.CreateUser(s.as(id.RoleSuperAdmin, "", ""), CreateUserInput{
			Email: "ra@example.com", Name: "RA", Role: id.RoleRegionalAdmin, Region: "Ashanti", Password: "Region123",
		})
		s.Require().NoError(err)
		s.Empty(created.User.District)
		s.Equal("Ashanti", created.User.Region)
	})

	s.Run("regional admin requires a known region", func() {
		_, err := s.service.CreateUser(s.as(id.RoleSuperAdmin, "", ""), CreateUserInput{
			Email: "ra2@example.com", Name: "RA", Role: id.RoleRegionalAdmin, Region: "Atlantis",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("regional admin places users inside the region", func() {
		ctx := s.as(id.RoleRegionalAdmin, "", "Greater Accra")
		created, err := s.service.CreateUser(ctx, CreateUserInput{
			Email: "tema-col@example.com", Name: "Tema", Role: id.RoleCollector, District: tema, Password: "Collect123",
		})
		s.Require().NoError(err)
		s.Equal(tema, created.User.District)

		_, err = s.service.CreateUser(ctx, CreateUserInput{
			Email: "kumasi-col@example.com", Name: "Kumasi", Role: id.RoleCollector, District: "Kumasi Metropolitan",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	events, err := s.audit.Search(context.Background(), audit.Query{Action: audit.ActionUserCreated})
	s.Require().NoError(err)
	s.Len(events, 4)
}

func (s *UserAdminSuite) TestCreateUserStoresCatalogSpelling() {
	catalog := geo.NewGhanaCatalog()
	districts := geostore.NewInMemory()
	_, err := geostore.SeedFromCatalog(context.Background(), districts, catalog, s.now)
	s.Require().NoError(err)
	svc := New(s.users, token.NewJWTService("test-signing-key", "revenuehub", time.Hour), revocation.NewInMemoryTRL(), catalog,
		WithDistrictChecker(geoservice.New(districts, catalog)),
	)
	admin := s.as(id.RoleSuperAdmin, "", "")

	col, err := svc.CreateUser(admin, CreateUserInput{
		Email: "lower@example.com", Name: "Lower", Role: id.RoleCollector, District: "accra METROPOLITAN", Password: "Collect123",
	})
	s.Require().NoError(err)
	s.Equal(accra, col.User.District)
	s.Equal("Greater Accra", col.User.Region)

	ra, err := svc.CreateUser(admin, CreateUserInput{
		Email: "region@example.com", Name: "Region", Role: id.RoleRegionalAdmin, Region: "greater accra", Password: "Region123",
	})
	s.Require().NoError(err)
	s.Equal("Greater Accra", ra.User.Region)

	users, err := svc.ListUsers(s.as(id.RoleMMDAAdmin, accra, "Greater Accra"), ListFilter{Role: id.RoleCollector})
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal(col.User.ID, users[0].ID)
}

func (s *UserAdminSuite) TestListUsersIsScoped() {
	s.seedUser("a@example.com", id.RoleCollector, accra, "Greater Accra")
	s.seedUser("b@example.com", id.RoleFinance, accra, "Greater Accra")
	s.seedUser("c@example.com", id.RoleCollector, tema, "Greater Accra")
	s.seedUser("d@example.com", id.RoleCollector, "Kumasi Metropolitan", "Ashanti")

	s.Run("district admin sees own district", func() {
		users, err := s.service.ListUsers(s.as(id.RoleMMDAAdmin, accra, ""), ListFilter{})
		s.Require().NoError(err)
		s.Len(users, 2)
		for _, u := range users {
			s.Equal(accra, u.District)
		}
	})

	s.Run("regional admin sees the region", func() {
		users, err := s.service.ListUsers(s.as(id.RoleRegionalAdmin, "", "Greater Accra"), ListFilter{Role: id.RoleCollector})
		s.Require().NoError(err)
		s.Len(users, 2)
	})

	s.Run("super admin sees all and can search", func() {
		users, err := s.service.ListUsers(s.as(id.RoleSuperAdmin, "", ""), ListFilter{})
		s.Require().NoError(err)
		s.Len(users, 4)

		users, err = s.service.ListUsers(s.as(id.RoleSuperAdmin, "", ""), ListFilter{Search: "D@EXAMPLE"})
		s.Require().NoError(err)
		s.Len(users, 1)
	})

	s.Run("restricted role without district sees nothing", func() {
		users, err := s.service.ListUsers(s.as(id.RoleFinance, "", ""), ListFilter{})
		s.Require().NoError(err)
		s.Empty(users)
	})
}

func (s *UserAdminSuite) TestChangeStatus() {
	col := s.seedUser("col@example.com", id.RoleCollector, accra, "Greater Accra")
	other := s.seedUser("other@example.com", id.RoleCollector, tema, "Greater Accra")
	adminID := id.UserID(uuid.New())
	admin := s.asUser(adminID, id.RoleMMDAAdmin, accra, "")

	s.Run("suspends a user in jurisdiction", func() {
		u, err := s.service.ChangeStatus(admin, col.ID, models.UserStatusSuspended)
		s.Require().NoError(err)
		s.Equal(models.UserStatusSuspended, u.Status)

		_, err = s.service.Login(requestcontext.WithTime(context.Background(), s.now), "col@example.com", "Secret123!")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("same status is a validation error", func() {
		_, err := s.service.ChangeStatus(admin, col.ID, models.UserStatusSuspended)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("outside jurisdiction is forbidden", func() {
		_, err := s.service.ChangeStatus(admin, other.ID, models.UserStatusInactive)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("own status cannot be changed", func() {
		_, err := s.service.ChangeStatus(admin, adminID, models.UserStatusInactive)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown user is not found", func() {
		_, err := s.service.ChangeStatus(admin, id.UserID(uuid.New()), models.UserStatusInactive)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *UserAdminSuite) TestChangeRole() {
	col := s.seedUser("col@example.com", id.RoleCollector, accra, "Greater Accra")
	admin := s.as(id.RoleMMDAAdmin, accra, "")

	s.Run("promotes a collector to finance", func() {
		u, err := s.service.ChangeRole(admin, col.ID, id.RoleFinance)
		s.Require().NoError(err)
		s.Equal(id.RoleFinance, u.Role)

		events, err := s.audit.Search(context.Background(), audit.Query{Action: audit.ActionUserRoleChanged})
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal("collector -> finance", events[0].Details)
	})

	s.Run("district admin cannot grant monitoring_body", func() {
		_, err := s.service.ChangeRole(admin, col.ID, id.RoleMonitoringBody)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("super admin can grant regional_admin using the user's region", func() {
		u, err := s.service.ChangeRole(s.as(id.RoleSuperAdmin, "", ""), col.ID, id.RoleRegionalAdmin)
		s.Require().NoError(err)
		s.Equal(id.RoleRegionalAdmin, u.Role)
	})

	s.Run("district admin cannot manage a regional admin", func() {
		_, err := s.service.ChangeRole(admin, col.ID, id.RoleCollector)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *UserAdminSuite) TestChangePassword() {
	u := s.seedUser("me@example.com", id.RoleFinance, accra, "Greater Accra")
	ctx := s.asUser(u.ID, u.Role, u.District, u.Region)

	s.Run("wrong current password", func() {
		err := s.service.ChangePassword(ctx, "wrong", "NewSecret123")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("too short", func() {
		err := s.service.ChangePassword(ctx, "Secret123!", "short")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("changes the password", func() {
		s.Require().NoError(s.service.ChangePassword(ctx, "Secret123!", "NewSecret123"))

		anon := requestcontext.WithTime(context.Background(), s.now)
		_, err := s.service.Login(anon, "me@example.com", "NewSecret123")
		s.NoError(err)
		_, err = s.service.Login(anon, "me@example.com", "Secret123!")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *UserAdminSuite) TestMe() {
	u := s.seedUser("me@example.com", id.RoleAuditor, "", "")

	me, err := s.service.Me(s.asUser(u.ID, u.Role, "", ""))
	s.Require().NoError(err)
	s.Equal(u.Email, me.Email)

	_, err = s.service.Me(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *UserAdminSuite) TestSeedDemoUsers() {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	n, err := s.service.SeedDemoUsers(ctx, accra)
	s.Require().NoError(err)
	s.Equal(len(DemoAccounts), n)

	n, err = s.service.SeedDemoUsers(ctx, accra)
	s.Require().NoError(err)
	s.Zero(n, "seeding is idempotent")

	ra, err := s.users.FindByEmail(ctx, "regionaladmin@test.com")
	s.Require().NoError(err)
	s.Empty(ra.District)
	s.Equal("Greater Accra", ra.Region)

	res, err := s.service.Login(ctx, "collector@test.com", DemoPassword)
	s.Require().NoError(err)
	s.Equal(accra, res.User.District)
}
