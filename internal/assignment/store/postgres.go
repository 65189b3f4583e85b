package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"revenuehub/internal/assignment/models"
	"revenuehub/internal/platform/postgres"
	id "revenuehub/pkg/domain"
	txcontext "revenuehub/pkg/platform/tx"
)

// PostgresStore persists assignments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx txcontext.Runner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, tx: txcontext.NewPostgres(db)}
}

const assignmentColumns = `id, assignment_code, collector_id, business_id, zone, start_date, end_date,
	is_active, assigned_by, district, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(a.ID), a.Code, uuid.UUID(a.CollectorID), businessParam(a.BusinessID), a.Zone, a.StartDate, a.EndDate,
		a.IsActive, uuid.UUID(a.AssignedBy), a.District, a.CreatedAt, a.UpdatedAt,
	)
	return postgres.MapError(err, "insert assignment")
}

func (s *PostgresStore) FindByID(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	a, err := scanAssignment(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(assignmentID)))
	if err != nil {
		return nil, postgres.MapError(err, "find assignment")
	}
	return a, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*models.Assignment, error) {
	if f.empty() {
		return []*models.Assignment{}, nil
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
	if f.CollectorID != nil {
		add("collector_id = $%d", uuid.UUID(*f.CollectorID))
	}
	if f.BusinessID != nil {
		add("business_id = $%d", uuid.UUID(*f.BusinessID))
	}
	if f.ActiveOnly {
		add("is_active = $%d", true)
	}
	query := `SELECT ` + assignmentColumns + ` FROM assignments`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY start_date DESC, assignment_code`

	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "list assignments")
	}
	defer rows.Close()
	out := []*models.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan assignment")
		}
		out = append(out, a)
	}
	return out, postgres.MapError(rows.Err(), "list assignments")
}

// Execute locks the assignment row for the duration of validate and apply.
func (s *PostgresStore) Execute(ctx context.Context, assignmentID id.AssignmentID, validate func(*models.Assignment) error, apply func(*models.Assignment)) (*models.Assignment, error) {
	var result *models.Assignment
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)
		a, err := scanAssignment(exec.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1 FOR UPDATE`, uuid.UUID(assignmentID)))
		if err != nil {
			return postgres.MapError(err, "lock assignment")
		}
		if err := validate(a); err != nil {
			return err
		}
		apply(a)
		update := `
			UPDATE assignments
			SET business_id = $2, zone = $3, start_date = $4, end_date = $5, is_active = $6, updated_at = $7
			WHERE id = $1
		`
		if _, err := exec.ExecContext(ctx, update,
			uuid.UUID(a.ID), businessParam(a.BusinessID), a.Zone, a.StartDate, a.EndDate, a.IsActive, a.UpdatedAt,
		); err != nil {
			return postgres.MapError(err, "update assignment")
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) Delete(ctx context.Context, assignmentID id.AssignmentID) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, uuid.UUID(assignmentID))
	if err != nil {
		return postgres.MapError(err, "delete assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return postgres.MapError(sql.ErrNoRows, "delete assignment")
	}
	return nil
}

// ActiveBusinessIDs lists the businesses a collector's assignments cover at
// the given time.
func (s *PostgresStore) ActiveBusinessIDs(ctx context.Context, collectorID id.UserID, at time.Time) ([]id.BusinessID, error) {
	query := `
		SELECT DISTINCT business_id FROM assignments
		WHERE collector_id = $1
			AND business_id IS NOT NULL
			AND is_active
			AND start_date <= $2
			AND (end_date IS NULL OR end_date >= $2)
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(collectorID), at)
	if err != nil {
		return nil, postgres.MapError(err, "list assigned businesses")
	}
	defer rows.Close()
	out := []id.BusinessID{}
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, postgres.MapError(err, "scan assigned business")
		}
		out = append(out, id.BusinessID(raw))
	}
	return out, postgres.MapError(rows.Err(), "list assigned businesses")
}

func businessParam(businessID *id.BusinessID) any {
	if businessID == nil {
		return nil
	}
	return uuid.UUID(*businessID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	var (
		a                          models.Assignment
		rawID, collector, assigner uuid.UUID
		business                   uuid.NullUUID
		end                        sql.NullTime
	)
	if err := row.Scan(&rawID, &a.Code, &collector, &business, &a.Zone, &a.StartDate, &end,
		&a.IsActive, &assigner, &a.District, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ID = id.AssignmentID(rawID)
	a.CollectorID = id.UserID(collector)
	a.AssignedBy = id.UserID(assigner)
	if business.Valid {
		businessID := id.BusinessID(business.UUID)
		a.BusinessID = &businessID
	}
	if end.Valid {
		t := end.Time
		a.EndDate = &t
	}
	return &a, nil
}
