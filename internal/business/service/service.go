package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"revenuehub/internal/access"
	"revenuehub/internal/business/models"
	"revenuehub/internal/business/store"
	geo "revenuehub/internal/geo/models"
	identity "revenuehub/internal/identity/models"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/platform/sentinel"
	"revenuehub/pkg/requestcontext"
)

var tracer = otel.Tracer("revenuehub/business")

// codeAttempts bounds retries when a generated business code collides.
const codeAttempts = 5

type Store interface {
	Create(ctx context.Context, b *models.Business) error
	FindByID(ctx context.Context, businessID id.BusinessID) (*models.Business, error)
	List(ctx context.Context, f store.Filter) ([]*models.Business, error)
	Execute(ctx context.Context, businessID id.BusinessID, validate func(*models.Business) error, apply func(*models.Business)) (*models.Business, error)
	Delete(ctx context.Context, businessID id.BusinessID) error
}

// Owners looks up the user accounts businesses can be linked to.
type Owners interface {
	FindByID(ctx context.Context, userID id.UserID) (*identity.User, error)
}

// Assignments answers which businesses a collector currently covers.
type Assignments interface {
	ActiveBusinessIDs(ctx context.Context, collectorID id.UserID, at time.Time) ([]id.BusinessID, error)
}

type DistrictChecker interface {
	RequireActive(ctx context.Context, name string) (*geo.District, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages the business registry.
type Service struct {
	store          Store
	regions        access.RegionResolver
	owners         Owners
	assignments    Assignments
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

func WithOwners(owners Owners) Option {
	return func(s *Service) {
		s.owners = owners
	}
}

func WithAssignments(assignments Assignments) Option {
	return func(s *Service) {
		s.assignments = assignments
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

// RegisterInput describes a new business.
type RegisterInput struct {
	Name            string
	OwnerName       string
	OwnerUserID     *id.UserID
	Category        string
	Phone           string
	Email           string
	GPSLocation     string
	PhysicalAddress string
	License         string
	TIN             string
	District        string
	Status          models.BusinessStatus
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Status   models.BusinessStatus
	Category string
	Search   string
}

// Register adds a business to the registry. The district is forced into the
// registrar's jurisdiction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Business, error) {
	ctx, span := tracer.Start(ctx, "business.Register")
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
	if in.OwnerUserID != nil {
		if err := s.checkOwner(ctx, *in.OwnerUserID); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	var b *models.Business
	for attempt := 0; attempt < codeAttempts; attempt++ {
		b, err = models.NewBusiness(id.BusinessID(uuid.New()), id.NewReference(id.PrefixBusiness),
			in.Name, in.OwnerName, in.Category, in.Phone, district, in.Status, now)
		if err != nil {
			return nil, dErrors.InvariantToValidation(err)
		}
		b.OwnerUserID = in.OwnerUserID
		b.Email = strings.TrimSpace(in.Email)
		b.GPSLocation = strings.TrimSpace(in.GPSLocation)
		b.PhysicalAddress = strings.TrimSpace(in.PhysicalAddress)
		b.License = strings.TrimSpace(in.License)
		b.TIN = strings.TrimSpace(in.TIN)

		err = s.store.Create(ctx, b)
		if !errors.Is(err, sentinel.ErrConflict) {
			break
		}
		s.logger.WarnContext(ctx, "business code collision, retrying",
			"code", b.Code,
			"attempt", attempt+1,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if err != nil {
		return nil, wrapBusinessErr(err)
	}
	span.SetAttributes(attribute.String("district", district))

	s.emit(ctx, audit.ActionBusinessRegistered, b, "registered "+b.Code)
	return b, nil
}

func (s *Service) checkOwner(ctx context.Context, ownerID id.UserID) error {
	if s.owners == nil {
		return nil
	}
	owner, err := s.owners.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "owner account not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owner account")
	}
	if owner.Role != id.RoleBusinessOwner {
		return dErrors.New(dErrors.CodeValidation, "owner account must have the business_owner role")
	}
	return nil
}

// Get returns a business visible to the caller: in-jurisdiction staff with
// view_business, the linked owner, or a collector assigned to it.
func (s *Service) Get(ctx context.Context, businessID id.BusinessID) (*models.Business, error) {
	p, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	b, err := s.store.FindByID(ctx, businessID)
	if err != nil {
		return nil, wrapBusinessErr(err)
	}
	if p.Can(access.PermViewBusiness) && scope.Allows(b.District) {
		return b, nil
	}
	if b.OwnedBy(p.UserID) {
		return b, nil
	}
	if p.Role == id.RoleCollector && s.assignments != nil {
		ids, err := s.assignments.ActiveBusinessIDs(ctx, p.UserID, requestcontext.Now(ctx))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assignments")
		}
		for _, assigned := range ids {
			if assigned == b.ID {
				return b, nil
			}
		}
	}
	return nil, dErrors.New(dErrors.CodeForbidden, "record is outside your jurisdiction")
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*models.Business, error) {
	ctx, span := tracer.Start(ctx, "business.List")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	businesses, err := s.store.List(ctx, store.Filter{
		Districts: scope.Districts(),
		Status:    filter.Status,
		Category:  filter.Category,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list businesses")
	}
	return search(access.Filter(scope, businesses), filter.Search), nil
}

// Mine lists the businesses linked to the caller: owned ones for business
// owners, actively assigned ones for collectors.
func (s *Service) Mine(ctx context.Context) ([]*models.Business, error) {
	ctx, span := tracer.Start(ctx, "business.Mine")
	defer span.End()

	p := access.PrincipalFrom(ctx)
	if p == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	f := store.Filter{}
	if p.Role == id.RoleCollector {
		f.IDs = []id.BusinessID{}
		if s.assignments != nil {
			ids, err := s.assignments.ActiveBusinessIDs(ctx, p.UserID, requestcontext.Now(ctx))
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assignments")
			}
			f.IDs = append(f.IDs, ids...)
		}
	} else {
		owner := p.UserID
		f.OwnerID = &owner
	}
	businesses, err := s.store.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list businesses")
	}
	return businesses, nil
}

func (s *Service) Update(ctx context.Context, businessID id.BusinessID, u models.BusinessUpdate) (*models.Business, error) {
	ctx, span := tracer.Start(ctx, "business.Update")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	if u.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	if err := u.Validate(); err != nil {
		return nil, dErrors.InvariantToValidation(err)
	}
	if u.OwnerUserID != nil {
		if err := s.checkOwner(ctx, *u.OwnerUserID); err != nil {
			return nil, err
		}
	}
	now := requestcontext.Now(ctx)
	b, err := s.store.Execute(ctx, businessID,
		func(b *models.Business) error {
			return scope.Ensure(b.District)
		},
		func(b *models.Business) {
			b.ApplyUpdate(u, now)
		},
	)
	if err != nil {
		return nil, wrapBusinessErr(err)
	}
	s.emit(ctx, audit.ActionBusinessUpdated, b, "")
	return b, nil
}

func (s *Service) Delete(ctx context.Context, businessID id.BusinessID) error {
	ctx, span := tracer.Start(ctx, "business.Delete")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return err
	}
	b, err := s.store.FindByID(ctx, businessID)
	if err != nil {
		return wrapBusinessErr(err)
	}
	if err := scope.Ensure(b.District); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, businessID); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "business has recorded collections")
		}
		return wrapBusinessErr(err)
	}
	s.emit(ctx, audit.ActionBusinessDeleted, b, "deleted "+b.Code)
	return nil
}

func search(businesses []*models.Business, q string) []*models.Business {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return businesses
	}
	out := make([]*models.Business, 0, len(businesses))
	for _, b := range businesses {
		hay := strings.ToLower(strings.Join([]string{b.Name, b.OwnerName, b.Code, b.Phone}, " "))
		if strings.Contains(hay, q) {
			out = append(out, b)
		}
	}
	return out
}

func (s *Service) emit(ctx context.Context, action audit.Action, b *models.Business, details string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:     action,
		EntityType: "business",
		EntityID:   b.ID.String(),
		District:   b.District,
		Details:    details,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"business_id", b.ID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func wrapBusinessErr(err error) error {
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "business not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "business code already in use")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "business operation failed")
	}
}
