package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"revenuehub/internal/identity/models"
	"revenuehub/internal/platform/postgres"
	id "revenuehub/pkg/domain"
	txcontext "revenuehub/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx txcontext.Runner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, tx: txcontext.NewPostgres(db)}
}

const userColumns = `id, email, name, role, district, region, phone, status, password_hash, last_login_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(u.ID), models.NormalizeEmail(u.Email), u.Name, string(u.Role), u.District, u.Region,
		u.Phone, string(u.Status), u.PasswordHash, u.LastLoginAt, u.CreatedAt, u.UpdatedAt,
	)
	return postgres.MapError(err, "insert user")
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		return nil, postgres.MapError(err, "find user")
	}
	return u, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1`
	u, err := scanUser(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, models.NormalizeEmail(email)))
	if err != nil {
		return nil, postgres.MapError(err, "find user by email")
	}
	return u, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*models.User, error) {
	if f.Districts != nil && len(f.Districts) == 0 {
		return []*models.User{}, nil
	}
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Districts != nil {
		add("district = ANY($%d)", pq.Array(f.Districts))
	}
	if f.Role != "" {
		add("role = $%d", string(f.Role))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY name`

	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "list users")
	}
	defer rows.Close()
	out := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan user")
		}
		out = append(out, u)
	}
	return out, postgres.MapError(rows.Err(), "list users")
}

func (s *PostgresStore) RecordLogin(ctx context.Context, userID id.UserID, at time.Time) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE users SET last_login_at = $2 WHERE id = $1`, uuid.UUID(userID), at)
	if err != nil {
		return postgres.MapError(err, "record login")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return postgres.MapError(sql.ErrNoRows, "record login")
	}
	return nil
}

// Execute locks the user row for the duration of validate and apply.
func (s *PostgresStore) Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, apply func(*models.User)) (*models.User, error) {
	var result *models.User
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)
		u, err := scanUser(exec.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, uuid.UUID(userID)))
		if err != nil {
			return postgres.MapError(err, "lock user")
		}
		if err := validate(u); err != nil {
			return err
		}
		apply(u)
		update := `
			UPDATE users
			SET name = $2, role = $3, district = $4, region = $5, phone = $6, status = $7,
				password_hash = $8, updated_at = $9
			WHERE id = $1
		`
		if _, err := exec.ExecContext(ctx, update,
			uuid.UUID(u.ID), u.Name, string(u.Role), u.District, u.Region, u.Phone,
			string(u.Status), u.PasswordHash, u.UpdatedAt,
		); err != nil {
			return postgres.MapError(err, "update user")
		}
		result = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		rawID     uuid.UUID
		role      string
		status    string
		lastLogin sql.NullTime
	)
	if err := row.Scan(&rawID, &u.Email, &u.Name, &role, &u.District, &u.Region, &u.Phone,
		&status, &u.PasswordHash, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.ID = id.UserID(rawID)
	u.Role = id.Role(role)
	u.Status = models.UserStatus(status)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}
