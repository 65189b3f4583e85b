package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"revenuehub/internal/business/models"
	"revenuehub/internal/platform/postgres"
	id "revenuehub/pkg/domain"
	txcontext "revenuehub/pkg/platform/tx"
)

// PostgresStore persists businesses in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx txcontext.Runner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, tx: txcontext.NewPostgres(db)}
}

const businessColumns = `id, business_code, name, owner_name, owner_user_id, category, phone, email,
	gps_location, physical_address, status, registration_date, last_payment_at,
	business_license, tin_number, district, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, b *models.Business) error {
	query := `
		INSERT INTO businesses (` + businessColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(b.ID), b.Code, b.Name, b.OwnerName, ownerParam(b.OwnerUserID), b.Category, b.Phone, b.Email,
		b.GPSLocation, b.PhysicalAddress, string(b.Status), b.RegistrationDate, b.LastPaymentAt,
		b.License, b.TIN, b.District, b.CreatedAt, b.UpdatedAt,
	)
	return postgres.MapError(err, "insert business")
}

func (s *PostgresStore) FindByID(ctx context.Context, businessID id.BusinessID) (*models.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`
	b, err := scanBusiness(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(businessID)))
	if err != nil {
		return nil, postgres.MapError(err, "find business")
	}
	return b, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*models.Business, error) {
	if f.empty() {
		return []*models.Business{}, nil
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
	if f.IDs != nil {
		ids := make([]string, len(f.IDs))
		for i, bid := range f.IDs {
			ids[i] = bid.String()
		}
		add("id = ANY($%d::uuid[])", pq.Array(ids))
	}
	if f.OwnerID != nil {
		add("owner_user_id = $%d", uuid.UUID(*f.OwnerID))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Category != "" {
		add("lower(category) = lower($%d)", f.Category)
	}
	query := `SELECT ` + businessColumns + ` FROM businesses`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY name`

	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "list businesses")
	}
	defer rows.Close()
	out := []*models.Business{}
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan business")
		}
		out = append(out, b)
	}
	return out, postgres.MapError(rows.Err(), "list businesses")
}

// Execute locks the business row for the duration of validate and apply.
func (s *PostgresStore) Execute(ctx context.Context, businessID id.BusinessID, validate func(*models.Business) error, apply func(*models.Business)) (*models.Business, error) {
	var result *models.Business
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)
		b, err := scanBusiness(exec.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1 FOR UPDATE`, uuid.UUID(businessID)))
		if err != nil {
			return postgres.MapError(err, "lock business")
		}
		if err := validate(b); err != nil {
			return err
		}
		apply(b)
		update := `
			UPDATE businesses
			SET name = $2, owner_name = $3, owner_user_id = $4, category = $5, phone = $6, email = $7,
				gps_location = $8, physical_address = $9, status = $10, last_payment_at = $11,
				business_license = $12, tin_number = $13, updated_at = $14
			WHERE id = $1
		`
		if _, err := exec.ExecContext(ctx, update,
			uuid.UUID(b.ID), b.Name, b.OwnerName, ownerParam(b.OwnerUserID), b.Category, b.Phone, b.Email,
			b.GPSLocation, b.PhysicalAddress, string(b.Status), b.LastPaymentAt,
			b.License, b.TIN, b.UpdatedAt,
		); err != nil {
			return postgres.MapError(err, "update business")
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordPayment advances last_payment_at; an older date leaves it unchanged.
func (s *PostgresStore) RecordPayment(ctx context.Context, businessID id.BusinessID, at time.Time) error {
	query := `
		UPDATE businesses
		SET last_payment_at = GREATEST(COALESCE(last_payment_at, $2), $2)
		WHERE id = $1
	`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, uuid.UUID(businessID), at)
	if err != nil {
		return postgres.MapError(err, "record business payment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return postgres.MapError(sql.ErrNoRows, "record business payment")
	}
	return nil
}

// Delete removes a business. Businesses with recorded collections cannot be
// deleted; the foreign key violation surfaces as a conflict.
func (s *PostgresStore) Delete(ctx context.Context, businessID id.BusinessID) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM businesses WHERE id = $1`, uuid.UUID(businessID))
	if err != nil {
		return postgres.MapError(err, "delete business")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return postgres.MapError(sql.ErrNoRows, "delete business")
	}
	return nil
}

func ownerParam(owner *id.UserID) any {
	if owner == nil {
		return nil
	}
	return uuid.UUID(*owner)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row rowScanner) (*models.Business, error) {
	var (
		b           models.Business
		rawID       uuid.UUID
		owner       uuid.NullUUID
		status      string
		lastPayment sql.NullTime
	)
	if err := row.Scan(&rawID, &b.Code, &b.Name, &b.OwnerName, &owner, &b.Category, &b.Phone, &b.Email,
		&b.GPSLocation, &b.PhysicalAddress, &status, &b.RegistrationDate, &lastPayment,
		&b.License, &b.TIN, &b.District, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.ID = id.BusinessID(rawID)
	b.Status = models.BusinessStatus(status)
	if owner.Valid {
		ownerID := id.UserID(owner.UUID)
		b.OwnerUserID = &ownerID
	}
	if lastPayment.Valid {
		t := lastPayment.Time
		b.LastPaymentAt = &t
	}
	return &b, nil
}
