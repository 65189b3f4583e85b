// Package service answers audit trail searches within the caller's
// jurisdiction.
package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"revenuehub/internal/access"
	dErrors "revenuehub/pkg/domain-errors"
	audit "revenuehub/pkg/platform/audit"
)

var tracer = otel.Tracer("revenuehub/audit")

type Store interface {
	Search(ctx context.Context, q audit.Query) ([]audit.Event, error)
}

type Service struct {
	store   Store
	regions access.RegionResolver
}

func New(store Store, regions access.RegionResolver) *Service {
	return &Service{store: store, regions: regions}
}

// SearchFilter is the caller-controlled part of an audit query.
type SearchFilter struct {
	Action     audit.Action
	ActorID    string
	EntityType string
	Search     string
	From       time.Time
	To         time.Time
	Limit      int
}

// Search returns matching events newest first. Restricted callers only see
// events recorded against their districts.
func (s *Service) Search(ctx context.Context, f SearchFilter) ([]audit.Event, error) {
	ctx, span := tracer.Start(ctx, "audit.Search")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, dErrors.New(dErrors.CodeValidation, "to must not be before from")
	}
	q := audit.Query{
		Districts:  scope.Districts(),
		Action:     f.Action,
		ActorID:    strings.TrimSpace(f.ActorID),
		EntityType: strings.TrimSpace(f.EntityType),
		Search:     strings.TrimSpace(f.Search),
		From:       f.From,
		To:         f.To,
		Limit:      f.Limit,
	}
	if q.Districts != nil && len(q.Districts) == 0 {
		return []audit.Event{}, nil
	}
	events, err := s.store.Search(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search audit logs")
	}
	span.SetAttributes(attribute.Int("results", len(events)))
	return events, nil
}
