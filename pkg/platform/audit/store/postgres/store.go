package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "revenuehub/pkg/platform/audit"
	txcontext "revenuehub/pkg/platform/tx"
)

// Store persists audit events in the audit_events table. Appends join the
// caller's transaction when one is active so an event commits with its change.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	query := `
		INSERT INTO audit_events (
			id, category, action, actor_id, actor_role, entity_type, entity_id,
			details, district, ip_address, user_agent, request_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		string(event.Action),
		event.ActorID,
		event.ActorRole,
		event.EntityType,
		event.EntityID,
		event.Details,
		event.District,
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Search builds the WHERE clause from the non-zero query fields.
func (s *Store) Search(ctx context.Context, q audit.Query) ([]audit.Event, error) {
	if q.Districts != nil && len(q.Districts) == 0 {
		return []audit.Event{}, nil
	}

	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.Districts != nil {
		add("district = ANY($%d)", pq.Array(q.Districts))
	}
	if q.Action != "" {
		add("action = $%d", string(q.Action))
	}
	if q.ActorID != "" {
		add("actor_id = $%d", q.ActorID)
	}
	if q.EntityType != "" {
		add("entity_type = $%d", q.EntityType)
	}
	if !q.From.IsZero() {
		add("created_at >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("created_at <= $%d", q.To)
	}
	if q.Search != "" {
		add("(action || ' ' || entity_id || ' ' || details || ' ' || actor_id || ' ' || district) ILIKE $%d", "%"+q.Search+"%")
	}

	query := `
		SELECT id, category, action, actor_id, actor_role, entity_type, entity_id,
			   details, district, ip_address, user_agent, request_id, created_at
		FROM audit_events`
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, q.EffectiveLimit())
	query += fmt.Sprintf("\n\t\tORDER BY created_at DESC\n\t\tLIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]audit.Event, 0)
	for rows.Next() {
		var (
			e        audit.Event
			category string
			action   string
		)
		if err := rows.Scan(
			&e.ID, &category, &action, &e.ActorID, &e.ActorRole, &e.EntityType, &e.EntityID,
			&e.Details, &e.District, &e.IPAddress, &e.UserAgent, &e.RequestID, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.Action = audit.Action(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
