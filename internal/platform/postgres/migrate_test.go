package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revenuehub/pkg/platform/sentinel"
)

func TestMigrationsAreOrdered(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Name, migrations[i].Name)
	}
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS districts")
}

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil, "noop"))
	assert.ErrorIs(t, MapError(sql.ErrNoRows, "get business"), sentinel.ErrNotFound)

	dup := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "businesses_business_code_key"})
	assert.True(t, IsUniqueViolation(dup))
	assert.ErrorIs(t, MapError(dup, "insert business"), sentinel.ErrConflict)

	other := errors.New("connection refused")
	mapped := MapError(other, "insert business")
	assert.ErrorIs(t, mapped, other)
	assert.False(t, errors.Is(mapped, sentinel.ErrConflict))
}
