package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"revenuehub/internal/access"
	"revenuehub/internal/geo/models"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/platform/sentinel"
	"revenuehub/pkg/requestcontext"
)

var tracer = otel.Tracer("revenuehub/geo")

type Store interface {
	Create(ctx context.Context, d *models.District) error
	FindByID(ctx context.Context, districtID id.DistrictID) (*models.District, error)
	FindByName(ctx context.Context, name string) (*models.District, error)
	List(ctx context.Context, names []string) ([]*models.District, error)
	Execute(ctx context.Context, districtID id.DistrictID, validate func(*models.District) error, apply func(*models.District)) (*models.District, error)
}

// Regions is the district -> region index kept in step with the store.
type Regions interface {
	access.RegionResolver
	Add(district, region string)
	IsRegion(name string) bool
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages the district (MMDA) lifecycle.
type Service struct {
	store          Store
	regions        Regions
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

func New(store Store, regions Regions, opts ...Option) *Service {
	s := &Service{store: store, regions: regions, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput describes a new district.
type CreateInput struct {
	Name         string
	Code         string
	Region       string
	ContactEmail string
	ContactPhone string
	Address      string
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Status models.DistrictStatus
	Region string
	Search string
}

// SyncCatalog registers every stored district with the region index so
// districts created in earlier runs resolve to their region.
func (s *Service) SyncCatalog(ctx context.Context) error {
	districts, err := s.store.List(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load districts")
	}
	for _, d := range districts {
		s.regions.Add(d.Name, d.Region)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.District, error) {
	ctx, span := tracer.Start(ctx, "geo.Create")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	region := strings.TrimSpace(in.Region)
	if !s.regions.IsRegion(region) {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown region")
	}
	if !scope.Unrestricted() && !(scope.Kind == access.ScopeRegion && strings.EqualFold(scope.Region, region)) {
		return nil, dErrors.New(dErrors.CodeForbidden, "region is outside your jurisdiction")
	}

	d, err := models.NewDistrict(id.DistrictID(uuid.New()), in.Name, in.Code, region, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.InvariantToValidation(err)
	}
	d.ContactEmail = strings.TrimSpace(in.ContactEmail)
	d.ContactPhone = strings.TrimSpace(in.ContactPhone)
	d.Address = strings.TrimSpace(in.Address)

	if err := s.store.Create(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "district name and code must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create district")
	}
	s.regions.Add(d.Name, d.Region)
	span.SetAttributes(attribute.String("district", d.Name))

	s.emit(ctx, audit.ActionDistrictCreated, d, "created "+d.Code+" in "+d.Region)
	return d, nil
}

func (s *Service) Get(ctx context.Context, districtID id.DistrictID) (*models.District, error) {
	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	d, err := s.store.FindByID(ctx, districtID)
	if err != nil {
		return nil, wrapDistrictErr(err)
	}
	if err := scope.Ensure(d.Name); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*models.District, error) {
	ctx, span := tracer.Start(ctx, "geo.List")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	districts, err := s.store.List(ctx, scope.Districts())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list districts")
	}
	visible := access.Filter(scope, districts)

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]*models.District, 0, len(visible))
	for _, d := range visible {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.Region != "" && !strings.EqualFold(d.Region, filter.Region) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Name+" "+d.Code), search) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, districtID id.DistrictID, u models.DistrictUpdate) (*models.District, error) {
	ctx, span := tracer.Start(ctx, "geo.Update")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, dErrors.InvariantToValidation(err)
	}
	now := requestcontext.Now(ctx)
	d, err := s.store.Execute(ctx, districtID,
		func(d *models.District) error {
			return scope.Ensure(d.Name)
		},
		func(d *models.District) {
			d.ApplyUpdate(u, now)
		},
	)
	if err != nil {
		return nil, wrapDistrictErr(err)
	}
	s.emit(ctx, audit.ActionDistrictUpdated, d, "")
	return d, nil
}

// Deactivate transitions a district to inactive.
//
// Uses the Execute callback pattern: the store holds its lock (mutex or
// FOR UPDATE) across validation and mutation.
func (s *Service) Deactivate(ctx context.Context, districtID id.DistrictID) (*models.District, error) {
	ctx, span := tracer.Start(ctx, "geo.Deactivate")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	d, err := s.store.Execute(ctx, districtID,
		func(d *models.District) error {
			if err := scope.Ensure(d.Name); err != nil {
				return err
			}
			if err := d.CanDeactivate(); err != nil {
				return dErrors.New(dErrors.CodeConflict, "district is already inactive")
			}
			return nil
		},
		func(d *models.District) {
			d.ApplyDeactivation(now)
		},
	)
	if err != nil {
		return nil, wrapDistrictErr(err)
	}
	s.emit(ctx, audit.ActionDistrictDeactivated, d, "")
	return d, nil
}

func (s *Service) Reactivate(ctx context.Context, districtID id.DistrictID) (*models.District, error) {
	ctx, span := tracer.Start(ctx, "geo.Reactivate")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	d, err := s.store.Execute(ctx, districtID,
		func(d *models.District) error {
			if err := scope.Ensure(d.Name); err != nil {
				return err
			}
			if err := d.CanReactivate(); err != nil {
				return dErrors.New(dErrors.CodeConflict, "district is already active")
			}
			return nil
		},
		func(d *models.District) {
			d.ApplyReactivation(now)
		},
	)
	if err != nil {
		return nil, wrapDistrictErr(err)
	}
	s.emit(ctx, audit.ActionDistrictReactivated, d, "")
	return d, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, d *models.District, details string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:     action,
		EntityType: "district",
		EntityID:   d.ID.String(),
		District:   d.Name,
		Details:    details,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"district_id", d.ID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func wrapDistrictErr(err error) error {
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "district not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "district code must be unique")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "district operation failed")
	}
}

// RequireActive checks that name is a known, active district and returns it.
// The lookup ignores case; callers store the returned Name so every record
// carries the district's canonical spelling.
func (s *Service) RequireActive(ctx context.Context, name string) (*models.District, error) {
	d, err := s.store.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown district")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load district")
	}
	if !d.IsActive() {
		return nil, dErrors.New(dErrors.CodeValidation, "district is inactive")
	}
	return d, nil
}
