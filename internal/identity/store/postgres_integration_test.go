//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"revenuehub/internal/identity/models"
	"revenuehub/internal/identity/store"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/sentinel"
	"revenuehub/pkg/testutil/containers"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresUserStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func newTestUser(email string, role id.Role, district string) *models.User {
	u, _ := models.NewUser(id.UserID(uuid.New()), email, "User", role, district, "Greater Accra", "hash",
		time.Now().UTC().Truncate(time.Microsecond))
	return u
}

func (s *PostgresUserStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	u := newTestUser("ama@example.com", id.RoleCollector, "Accra Metropolitan")
	u.Phone = "+233200000000"
	s.Require().NoError(s.store.Create(ctx, u))

	found, err := s.store.FindByEmail(ctx, "AMA@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)
	s.Equal(id.RoleCollector, found.Role)
	s.Equal("+233200000000", found.Phone)
	s.Nil(found.LastLoginAt)

	_, err = s.store.FindByID(ctx, id.UserID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresUserStoreSuite) TestDuplicateEmailConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newTestUser("dup@example.com", id.RoleFinance, "Accra Metropolitan")))

	err := s.store.Create(ctx, newTestUser("DUP@example.com", id.RoleFinance, "Accra Metropolitan"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresUserStoreSuite) TestListByDistrictAndRole() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newTestUser("a@example.com", id.RoleCollector, "Accra Metropolitan")))
	s.Require().NoError(s.store.Create(ctx, newTestUser("b@example.com", id.RoleFinance, "Accra Metropolitan")))
	s.Require().NoError(s.store.Create(ctx, newTestUser("c@example.com", id.RoleCollector, "Tema Metropolitan")))

	users, err := s.store.List(ctx, store.Filter{Districts: []string{"Accra Metropolitan"}, Role: id.RoleCollector})
	s.Require().NoError(err)
	s.Len(users, 1)

	users, err = s.store.List(ctx, store.Filter{Districts: []string{}})
	s.Require().NoError(err)
	s.Empty(users)
}

func (s *PostgresUserStoreSuite) TestExecuteAndRecordLogin() {
	ctx := context.Background()
	u := newTestUser("exec@example.com", id.RoleCollector, "Accra Metropolitan")
	s.Require().NoError(s.store.Create(ctx, u))

	now := time.Now().UTC().Truncate(time.Microsecond)
	updated, err := s.store.Execute(ctx, u.ID,
		func(*models.User) error { return nil },
		func(u *models.User) { u.ApplyRole(id.RoleFinance, now) },
	)
	s.Require().NoError(err)
	s.Equal(id.RoleFinance, updated.Role)

	s.Require().NoError(s.store.RecordLogin(ctx, u.ID, now))
	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(id.RoleFinance, found.Role)
	s.Require().NotNil(found.LastLoginAt)
	s.True(now.Equal(*found.LastLoginAt))
}
