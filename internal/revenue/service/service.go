package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"revenuehub/internal/access"
	geo "revenuehub/internal/geo/models"
	"revenuehub/internal/revenue/models"
	"revenuehub/internal/revenue/store"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/platform/sentinel"
	"revenuehub/pkg/requestcontext"
)

var tracer = otel.Tracer("revenuehub/revenue")

type Store interface {
	Create(ctx context.Context, rt *models.RevenueType) error
	FindByID(ctx context.Context, revenueTypeID id.RevenueTypeID) (*models.RevenueType, error)
	List(ctx context.Context, f store.Filter) ([]*models.RevenueType, error)
	Execute(ctx context.Context, revenueTypeID id.RevenueTypeID, validate func(*models.RevenueType) error, apply func(*models.RevenueType)) (*models.RevenueType, error)
	Delete(ctx context.Context, revenueTypeID id.RevenueTypeID) error
}

type DistrictChecker interface {
	RequireActive(ctx context.Context, name string) (*geo.District, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages the levies each district charges.
type Service struct {
	store          Store
	regions        access.RegionResolver
	districts      DistrictChecker
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithDistrictChecker(checker DistrictChecker) Option {
	return func(s *Service) {
		s.districts = checker
	}
}

func New(store Store, regions access.RegionResolver, opts ...Option) *Service {
	s := &Service{store: store, regions: regions, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput describes a new revenue type.
type CreateInput struct {
	Code          string
	Name          string
	DefaultAmount decimal.Decimal
	Frequency     models.Frequency
	Description   string
	Category      models.Category
	District      string
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	ActiveOnly bool
	Category   models.Category
	Frequency  models.Frequency
	Search     string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.RevenueType, error) {
	ctx, span := tracer.Start(ctx, "revenue.Create")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	district, err := scope.AssignDistrict(strings.TrimSpace(in.District))
	if err != nil {
		return nil, err
	}
	if s.districts != nil {
		d, err := s.districts.RequireActive(ctx, district)
		if err != nil {
			return nil, err
		}
		district = d.Name
	}
	rt, err := models.NewRevenueType(id.RevenueTypeID(uuid.New()), in.Code, in.Name, in.DefaultAmount,
		in.Frequency, in.Category, district, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.InvariantToValidation(err)
	}
	rt.Description = strings.TrimSpace(in.Description)

	if err := s.store.Create(ctx, rt); err != nil {
		return nil, wrapRevenueTypeErr(err)
	}
	span.SetAttributes(attribute.String("district", district), attribute.String("code", rt.Code))

	s.emit(ctx, audit.ActionRevenueTypeCreated, rt, "created "+rt.Code+" at "+rt.DefaultAmount.StringFixed(2))
	return rt, nil
}

func (s *Service) Get(ctx context.Context, revenueTypeID id.RevenueTypeID) (*models.RevenueType, error) {
	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	rt, err := s.store.FindByID(ctx, revenueTypeID)
	if err != nil {
		return nil, wrapRevenueTypeErr(err)
	}
	if err := scope.Ensure(rt.District); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*models.RevenueType, error) {
	ctx, span := tracer.Start(ctx, "revenue.List")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	types, err := s.store.List(ctx, store.Filter{
		Districts:  scope.Districts(),
		ActiveOnly: filter.ActiveOnly,
		Category:   filter.Category,
		Frequency:  filter.Frequency,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list revenue types")
	}
	visible := access.Filter(scope, types)

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	if search == "" {
		return visible, nil
	}
	out := make([]*models.RevenueType, 0, len(visible))
	for _, rt := range visible {
		if strings.Contains(strings.ToLower(rt.Name+" "+rt.Code+" "+rt.Description), search) {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, revenueTypeID id.RevenueTypeID, u models.RevenueTypeUpdate) (*models.RevenueType, error) {
	ctx, span := tracer.Start(ctx, "revenue.Update")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, dErrors.InvariantToValidation(err)
	}
	now := requestcontext.Now(ctx)
	rt, err := s.store.Execute(ctx, revenueTypeID,
		func(rt *models.RevenueType) error {
			return scope.Ensure(rt.District)
		},
		func(rt *models.RevenueType) {
			rt.ApplyUpdate(u, now)
		},
	)
	if err != nil {
		return nil, wrapRevenueTypeErr(err)
	}
	s.emit(ctx, audit.ActionRevenueTypeUpdated, rt, "")
	return rt, nil
}

// Delete removes a revenue type that no collection references. Types in use
// should be deactivated instead.
func (s *Service) Delete(ctx context.Context, revenueTypeID id.RevenueTypeID) error {
	ctx, span := tracer.Start(ctx, "revenue.Delete")
	defer span.End()

	rt, err := s.Get(ctx, revenueTypeID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, revenueTypeID); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "revenue type is referenced by collections; deactivate it instead")
		}
		return wrapRevenueTypeErr(err)
	}
	s.emit(ctx, audit.ActionRevenueTypeDeleted, rt, "deleted "+rt.Code)
	return nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, rt *models.RevenueType, details string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:     action,
		EntityType: "revenue_type",
		EntityID:   rt.ID.String(),
		District:   rt.District,
		Details:    details,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"revenue_type_id", rt.ID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func wrapRevenueTypeErr(err error) error {
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "revenue type not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "revenue type code already exists in this district")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "revenue type operation failed")
	}
}
