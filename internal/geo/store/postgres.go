package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"revenuehub/internal/geo/models"
	"revenuehub/internal/platform/postgres"
	id "revenuehub/pkg/domain"
	txcontext "revenuehub/pkg/platform/tx"
)

// PostgresStore persists districts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx txcontext.Runner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, tx: txcontext.NewPostgres(db)}
}

const districtColumns = `id, name, code, region, contact_email, contact_phone, address, status, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, d *models.District) error {
	query := `
		INSERT INTO districts (` + districtColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(d.ID), d.Name, d.Code, d.Region, d.ContactEmail, d.ContactPhone,
		d.Address, string(d.Status), d.CreatedAt, d.UpdatedAt,
	)
	return postgres.MapError(err, "insert district")
}

func (s *PostgresStore) FindByID(ctx context.Context, districtID id.DistrictID) (*models.District, error) {
	query := `SELECT ` + districtColumns + ` FROM districts WHERE id = $1`
	d, err := scanDistrict(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(districtID)))
	if err != nil {
		return nil, postgres.MapError(err, "find district")
	}
	return d, nil
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.District, error) {
	query := `SELECT ` + districtColumns + ` FROM districts WHERE lower(name) = lower(trim($1))`
	d, err := scanDistrict(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, name))
	if err != nil {
		return nil, postgres.MapError(err, "find district by name")
	}
	return d, nil
}

func (s *PostgresStore) List(ctx context.Context, names []string) ([]*models.District, error) {
	if names != nil && len(names) == 0 {
		return []*models.District{}, nil
	}
	query := `SELECT ` + districtColumns + ` FROM districts`
	var args []any
	if names != nil {
		query += ` WHERE name = ANY($1)`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY name`

	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "list districts")
	}
	defer rows.Close()

	out := []*models.District{}
	for rows.Next() {
		d, err := scanDistrict(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan district")
		}
		out = append(out, d)
	}
	return out, postgres.MapError(rows.Err(), "list districts")
}

// Execute locks the row with FOR UPDATE for the duration of validate and apply.
func (s *PostgresStore) Execute(ctx context.Context, districtID id.DistrictID, validate func(*models.District) error, apply func(*models.District)) (*models.District, error) {
	var result *models.District
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)
		query := `SELECT ` + districtColumns + ` FROM districts WHERE id = $1 FOR UPDATE`
		d, err := scanDistrict(exec.QueryRowContext(ctx, query, uuid.UUID(districtID)))
		if err != nil {
			return postgres.MapError(err, "lock district")
		}
		if err := validate(d); err != nil {
			return err
		}
		apply(d)
		update := `
			UPDATE districts
			SET code = $2, contact_email = $3, contact_phone = $4, address = $5, status = $6, updated_at = $7
			WHERE id = $1
		`
		if _, err := exec.ExecContext(ctx, update,
			uuid.UUID(d.ID), d.Code, d.ContactEmail, d.ContactPhone, d.Address, string(d.Status), d.UpdatedAt,
		); err != nil {
			return postgres.MapError(err, "update district")
		}
		result = d
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

func scanDistrict(row rowScanner) (*models.District, error) {
	var (
		d      models.District
		rawID  uuid.UUID
		status string
	)
	if err := row.Scan(&rawID, &d.Name, &d.Code, &d.Region, &d.ContactEmail, &d.ContactPhone,
		&d.Address, &status, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.ID = id.DistrictID(rawID)
	d.Status = models.DistrictStatus(status)
	return &d, nil
}
