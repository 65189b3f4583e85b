package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"revenuehub/internal/collection/models"
	"revenuehub/internal/platform/postgres"
	id "revenuehub/pkg/domain"
	txcontext "revenuehub/pkg/platform/tx"
)

// PostgresStore persists collections in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx txcontext.Runner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, tx: txcontext.NewPostgres(db)}
}

const collectionColumns = `id, receipt_code, business_id, revenue_type_id, collector_id, paid_by, amount,
	payment_method, collected_at, status, validated_by, validated_at, flagged, flag_reason, risk_level,
	flagged_by, flagged_at, notes, client_ip, device_info, district, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c *models.Collection) error {
	query := `
		INSERT INTO collections (` + collectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(c.ID), c.ReceiptCode, uuid.UUID(c.BusinessID), uuid.UUID(c.RevenueTypeID),
		userParam(c.CollectorID), userParam(c.PaidBy), c.Amount,
		string(c.PaymentMethod), c.CollectedAt, string(c.Status), userParam(c.ValidatedBy), c.ValidatedAt,
		c.Flagged, c.FlagReason, string(c.RiskLevel), userParam(c.FlaggedBy), c.FlaggedAt,
		c.Notes, c.ClientIP, c.DeviceInfo, c.District, c.CreatedAt, c.UpdatedAt,
	)
	return postgres.MapError(err, "insert collection")
}

func (s *PostgresStore) FindByID(ctx context.Context, collectionID id.CollectionID) (*models.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE id = $1`
	c, err := scanCollection(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(collectionID)))
	if err != nil {
		return nil, postgres.MapError(err, "find collection")
	}
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*models.Collection, error) {
	if f.empty() {
		return []*models.Collection{}, nil
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
	if f.BusinessIDs != nil {
		ids := make([]string, len(f.BusinessIDs))
		for i, bid := range f.BusinessIDs {
			ids[i] = bid.String()
		}
		add("business_id = ANY($%d::uuid[])", pq.Array(ids))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Method != "" {
		add("payment_method = $%d", string(f.Method))
	}
	if f.CollectorID != nil {
		add("collector_id = $%d", uuid.UUID(*f.CollectorID))
	}
	if f.BusinessID != nil {
		add("business_id = $%d", uuid.UUID(*f.BusinessID))
	}
	if f.RevenueTypeID != nil {
		add("revenue_type_id = $%d", uuid.UUID(*f.RevenueTypeID))
	}
	if f.Flagged != nil {
		add("flagged = $%d", *f.Flagged)
	}
	if !f.From.IsZero() {
		add("collected_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("collected_at <= $%d", f.To)
	}
	query := `SELECT ` + collectionColumns + ` FROM collections`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY collected_at DESC, receipt_code`

	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "list collections")
	}
	defer rows.Close()
	out := []*models.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan collection")
		}
		out = append(out, c)
	}
	return out, postgres.MapError(rows.Err(), "list collections")
}

// Execute locks the collection row for the duration of validate and apply.
// It joins a transaction already carried on ctx.
func (s *PostgresStore) Execute(ctx context.Context, collectionID id.CollectionID, validate func(*models.Collection) error, apply func(*models.Collection)) (*models.Collection, error) {
	var result *models.Collection
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)
		c, err := scanCollection(exec.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = $1 FOR UPDATE`, uuid.UUID(collectionID)))
		if err != nil {
			return postgres.MapError(err, "lock collection")
		}
		if err := validate(c); err != nil {
			return err
		}
		apply(c)
		update := `
			UPDATE collections
			SET amount = $2, payment_method = $3, status = $4, validated_by = $5, validated_at = $6,
				flagged = $7, flag_reason = $8, risk_level = $9, flagged_by = $10, flagged_at = $11,
				notes = $12, updated_at = $13
			WHERE id = $1
		`
		if _, err := exec.ExecContext(ctx, update,
			uuid.UUID(c.ID), c.Amount, string(c.PaymentMethod), string(c.Status), userParam(c.ValidatedBy), c.ValidatedAt,
			c.Flagged, c.FlagReason, string(c.RiskLevel), userParam(c.FlaggedBy), c.FlaggedAt,
			c.Notes, c.UpdatedAt,
		); err != nil {
			return postgres.MapError(err, "update collection")
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func userParam(u *id.UserID) any {
	if u == nil {
		return nil
	}
	return uuid.UUID(*u)
}

func userPtr(u uuid.NullUUID) *id.UserID {
	if !u.Valid {
		return nil
	}
	v := id.UserID(u.UUID)
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (*models.Collection, error) {
	var (
		c                                         models.Collection
		rawID, businessID, revenueTypeID          uuid.UUID
		collector, paidBy, validatedBy, flaggedBy uuid.NullUUID
		method, status, risk                      string
		validatedAt, flaggedAt                    sql.NullTime
	)
	if err := row.Scan(&rawID, &c.ReceiptCode, &businessID, &revenueTypeID, &collector, &paidBy, &c.Amount,
		&method, &c.CollectedAt, &status, &validatedBy, &validatedAt, &c.Flagged, &c.FlagReason, &risk,
		&flaggedBy, &flaggedAt, &c.Notes, &c.ClientIP, &c.DeviceInfo, &c.District, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ID = id.CollectionID(rawID)
	c.BusinessID = id.BusinessID(businessID)
	c.RevenueTypeID = id.RevenueTypeID(revenueTypeID)
	c.CollectorID = userPtr(collector)
	c.PaidBy = userPtr(paidBy)
	c.ValidatedBy = userPtr(validatedBy)
	c.FlaggedBy = userPtr(flaggedBy)
	c.ValidatedAt = timePtr(validatedAt)
	c.FlaggedAt = timePtr(flaggedAt)
	c.PaymentMethod = models.PaymentMethod(method)
	c.Status = models.Status(status)
	c.RiskLevel = models.RiskLevel(risk)
	return &c, nil
}
