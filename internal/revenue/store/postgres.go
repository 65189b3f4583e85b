package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"revenuehub/internal/platform/postgres"
	"revenuehub/internal/revenue/models"
	id "revenuehub/pkg/domain"
	txcontext "revenuehub/pkg/platform/tx"
)

// PostgresStore persists revenue types in PostgreSQL. Amounts are NUMERIC
// columns scanned straight into decimal.Decimal.
type PostgresStore struct {
	db *sql.DB
	tx txcontext.Runner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, tx: txcontext.NewPostgres(db)}
}

const revenueTypeColumns = `id, code, name, default_amount, frequency, description, is_active,
	category, district, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, rt *models.RevenueType) error {
	query := `
		INSERT INTO revenue_types (` + revenueTypeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(rt.ID), rt.Code, rt.Name, rt.DefaultAmount, string(rt.Frequency), rt.Description, rt.IsActive,
		string(rt.Category), rt.District, rt.CreatedAt, rt.UpdatedAt,
	)
	return postgres.MapError(err, "insert revenue type")
}

func (s *PostgresStore) FindByID(ctx context.Context, revenueTypeID id.RevenueTypeID) (*models.RevenueType, error) {
	query := `SELECT ` + revenueTypeColumns + ` FROM revenue_types WHERE id = $1`
	rt, err := scanRevenueType(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(revenueTypeID)))
	if err != nil {
		return nil, postgres.MapError(err, "find revenue type")
	}
	return rt, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*models.RevenueType, error) {
	if f.empty() {
		return []*models.RevenueType{}, nil
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
	if f.ActiveOnly {
		add("is_active = $%d", true)
	}
	if f.Category != "" {
		add("category = $%d", string(f.Category))
	}
	if f.Frequency != "" {
		add("frequency = $%d", string(f.Frequency))
	}
	query := `SELECT ` + revenueTypeColumns + ` FROM revenue_types`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY district, name`

	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "list revenue types")
	}
	defer rows.Close()
	out := []*models.RevenueType{}
	for rows.Next() {
		rt, err := scanRevenueType(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan revenue type")
		}
		out = append(out, rt)
	}
	return out, postgres.MapError(rows.Err(), "list revenue types")
}

// Execute locks the revenue type row for the duration of validate and apply.
func (s *PostgresStore) Execute(ctx context.Context, revenueTypeID id.RevenueTypeID, validate func(*models.RevenueType) error, apply func(*models.RevenueType)) (*models.RevenueType, error) {
	var result *models.RevenueType
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)
		rt, err := scanRevenueType(exec.QueryRowContext(ctx, `SELECT `+revenueTypeColumns+` FROM revenue_types WHERE id = $1 FOR UPDATE`, uuid.UUID(revenueTypeID)))
		if err != nil {
			return postgres.MapError(err, "lock revenue type")
		}
		if err := validate(rt); err != nil {
			return err
		}
		apply(rt)
		update := `
			UPDATE revenue_types
			SET code = $2, name = $3, default_amount = $4, frequency = $5, description = $6,
				is_active = $7, category = $8, updated_at = $9
			WHERE id = $1
		`
		if _, err := exec.ExecContext(ctx, update,
			uuid.UUID(rt.ID), rt.Code, rt.Name, rt.DefaultAmount, string(rt.Frequency), rt.Description,
			rt.IsActive, string(rt.Category), rt.UpdatedAt,
		); err != nil {
			return postgres.MapError(err, "update revenue type")
		}
		result = rt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a revenue type. Types referenced by collections surface a
// conflict through the foreign key.
func (s *PostgresStore) Delete(ctx context.Context, revenueTypeID id.RevenueTypeID) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM revenue_types WHERE id = $1`, uuid.UUID(revenueTypeID))
	if err != nil {
		return postgres.MapError(err, "delete revenue type")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return postgres.MapError(sql.ErrNoRows, "delete revenue type")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRevenueType(row rowScanner) (*models.RevenueType, error) {
	var (
		rt                  models.RevenueType
		rawID               uuid.UUID
		frequency, category string
	)
	if err := row.Scan(&rawID, &rt.Code, &rt.Name, &rt.DefaultAmount, &frequency, &rt.Description, &rt.IsActive,
		&category, &rt.District, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
		return nil, err
	}
	rt.ID = id.RevenueTypeID(rawID)
	rt.Frequency = models.Frequency(frequency)
	rt.Category = models.Category(category)
	return &rt, nil
}
