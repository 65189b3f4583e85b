package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "revenuehub/pkg/domain"
	"revenuehub/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*JWTClaims, error) { return v.claims, v.err }

type stubRevocation struct {
	revoked bool
	err     error
}

func (r stubRevocation) IsTokenRevoked(context.Context, string) (bool, error) { return r.revoked, r.err }

type AuthMiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
	userID uuid.UUID
	claims *JWTClaims
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.userID = uuid.New()
	s.claims = &JWTClaims{
		UserID:    s.userID.String(),
		Role:      string(id.RoleCollector),
		District:  "Accra Metropolitan",
		Region:    "Greater Accra",
		JTI:       "jti-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func (s *AuthMiddlewareSuite) serve(v JWTValidator, rc TokenRevocationChecker, header string) (*httptest.ResponseRecorder, context.Context) {
	var got context.Context
	h := RequireAuth(v, rc, s.logger)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = r.Context()
	}))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

func (s *AuthMiddlewareSuite) TestRequireAuth() {
	s.Run("valid token populates principal", func() {
		rec, ctx := s.serve(stubValidator{claims: s.claims}, stubRevocation{}, "Bearer good")
		s.Equal(http.StatusOK, rec.Code)
		s.Require().NotNil(ctx)
		s.Equal(id.UserID(s.userID), requestcontext.UserID(ctx))
		s.Equal(id.RoleCollector, requestcontext.Role(ctx))
		s.Equal("Accra Metropolitan", requestcontext.District(ctx))
		s.Equal("Greater Accra", requestcontext.Region(ctx))
		s.Equal("jti-1", requestcontext.TokenID(ctx))
	})

	s.Run("missing header is unauthorized", func() {
		rec, ctx := s.serve(stubValidator{claims: s.claims}, nil, "")
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.Nil(ctx)
	})

	s.Run("invalid token is unauthorized", func() {
		rec, ctx := s.serve(stubValidator{err: errors.New("bad signature")}, nil, "Bearer bad")
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.Nil(ctx)
	})

	s.Run("unknown role claim is unauthorized", func() {
		claims := *s.claims
		claims.Role = "janitor"
		rec, _ := s.serve(stubValidator{claims: &claims}, nil, "Bearer good")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("revoked token is unauthorized", func() {
		rec, ctx := s.serve(stubValidator{claims: s.claims}, stubRevocation{revoked: true}, "Bearer good")
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.Nil(ctx)
	})

	s.Run("revocation backend failure is internal", func() {
		rec, _ := s.serve(stubValidator{claims: s.claims}, stubRevocation{err: errors.New("redis down")}, "Bearer good")
		s.Equal(http.StatusInternalServerError, rec.Code)
	})
}
