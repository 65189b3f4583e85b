package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revenuehub/internal/access"
	"revenuehub/internal/geo"
	"revenuehub/internal/identity/models"
	"revenuehub/internal/identity/revocation"
	"revenuehub/internal/identity/service"
	"revenuehub/internal/identity/store"
	"revenuehub/internal/identity/token"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/requestcontext"
	"revenuehub/pkg/testutil"
)

type fixture struct {
	router http.Handler
	users  *store.InMemory
	trl    *revocation.InMemoryTRL
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	users := store.NewInMemory()
	trl := revocation.NewInMemoryTRL()
	svc := service.New(users, token.NewJWTService("k", "revenuehub", time.Hour), trl, geo.NewGhanaCatalog())
	_, err := svc.SeedDemoUsers(context.Background(), "Accra Metropolitan")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(svc, logger, access.NewGuard(logger, nil))
	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.Register(r)
	return fixture{router: r, users: users, trl: trl}
}

func (f fixture) principalFor(t *testing.T, email string) testutil.Principal {
	t.Helper()
	u, err := f.users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return testutil.Principal{UserID: u.ID, Role: u.Role, District: u.District, Region: u.Region}
}

func TestLoginEndpoint(t *testing.T) {
	f := newFixture(t)

	t.Run("valid credentials", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email": "Finance@Test.com", "password": service.DemoPassword,
		})
		rr := testutil.DoRequest(f.router, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		res := testutil.UnmarshalResponse[service.LoginResult](t, rr)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, id.RoleFinance, res.User.Role)
		assert.NotContains(t, rr.Body.String(), "password_hash")
	})

	t.Run("wrong password", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email": "finance@test.com", "password": "nope-nope",
		})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("missing fields", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{"email": "finance@test.com"})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}

func TestLogoutEndpoint(t *testing.T) {
	f := newFixture(t)
	p := f.principalFor(t, "collector@test.com")

	req := testutil.WithPrincipal(testutil.NewJSONRequest(t, http.MethodPost, "/auth/logout", nil), p)
	req = req.WithContext(requestcontext.WithToken(req.Context(), "jti-logout", time.Now().Add(time.Hour)))
	rr := testutil.DoRequest(f.router, req)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	revoked, err := f.trl.IsRevoked(context.Background(), "jti-logout")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMeEndpoints(t *testing.T) {
	f := newFixture(t)
	p := f.principalFor(t, "businessowner@test.com")

	t.Run("profile", func(t *testing.T) {
		req := testutil.WithPrincipal(testutil.NewJSONRequest(t, http.MethodGet, "/me", nil), p)
		rr := testutil.DoRequest(f.router, req)
		require.Equal(t, http.StatusOK, rr.Code)
		u := testutil.UnmarshalResponse[models.User](t, rr)
		assert.Equal(t, "businessowner@test.com", u.Email)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/me", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("change password", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/me/password", map[string]string{
			"current_password": service.DemoPassword, "new_password": "BrandNew123",
		})
		rr := testutil.DoRequest(f.router, testutil.WithPrincipal(req, p))
		require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	})
}

func TestUserAdministration(t *testing.T) {
	f := newFixture(t)
	admin := f.principalFor(t, "mmdaadmin@test.com")
	collector := f.principalFor(t, "collector@test.com")

	t.Run("collector cannot list users", func(t *testing.T) {
		req := testutil.WithPrincipal(testutil.NewJSONRequest(t, http.MethodGet, "/users", nil), collector)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("admin lists district users", func(t *testing.T) {
		req := testutil.WithPrincipal(testutil.NewJSONRequest(t, http.MethodGet, "/users?role=collector", nil), admin)
		rr := testutil.DoRequest(f.router, req)
		require.Equal(t, http.StatusOK, rr.Code)
		res := testutil.UnmarshalResponse[UserListResponse](t, rr)
		assert.Equal(t, 1, res.Total)
	})

	t.Run("admin creates a user with a temporary password", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/users", map[string]string{
			"email": "new.collector@test.com", "name": "New Collector", "role": "collector",
		})
		rr := testutil.DoRequest(f.router, testutil.WithPrincipal(req, admin))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		res := testutil.UnmarshalResponse[service.CreatedUser](t, rr)
		assert.NotEmpty(t, res.TemporaryPassword)
		assert.Equal(t, "Accra Metropolitan", res.User.District)
	})

	t.Run("invalid role", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/users", map[string]string{
			"email": "x@test.com", "name": "X", "role": "emperor",
		})
		rr := testutil.DoRequest(f.router, testutil.WithPrincipal(req, admin))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})

	t.Run("suspend and re-role", func(t *testing.T) {
		path := "/users/" + collector.UserID.String()
		req := testutil.NewJSONRequest(t, http.MethodPatch, path+"/status", map[string]string{"status": "suspended"})
		rr := testutil.DoRequest(f.router, testutil.WithPrincipal(req, admin))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		req = testutil.NewJSONRequest(t, http.MethodPatch, path+"/role", map[string]string{"role": "finance"})
		rr = testutil.DoRequest(f.router, testutil.WithPrincipal(req, admin))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		u := testutil.UnmarshalResponse[models.User](t, rr)
		assert.Equal(t, id.RoleFinance, u.Role)
		assert.Equal(t, models.UserStatusSuspended, u.Status)
	})

	t.Run("bad id", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPatch, "/users/not-a-uuid/role", map[string]string{"role": "finance"})
		rr := testutil.DoRequest(f.router, testutil.WithPrincipal(req, admin))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})

	t.Run("unknown user", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPatch, "/users/"+uuid.NewString()+"/status", map[string]string{"status": "inactive"})
		rr := testutil.DoRequest(f.router, testutil.WithPrincipal(req, admin))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})
}
