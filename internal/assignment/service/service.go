package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"revenuehub/internal/access"
	"revenuehub/internal/assignment/models"
	"revenuehub/internal/assignment/store"
	business "revenuehub/internal/business/models"
	identity "revenuehub/internal/identity/models"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/platform/sentinel"
	"revenuehub/pkg/requestcontext"
)

var tracer = otel.Tracer("revenuehub/assignment")

const codeAttempts = 5

type Store interface {
	Create(ctx context.Context, a *models.Assignment) error
	FindByID(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error)
	List(ctx context.Context, f store.Filter) ([]*models.Assignment, error)
	Execute(ctx context.Context, assignmentID id.AssignmentID, validate func(*models.Assignment) error, apply func(*models.Assignment)) (*models.Assignment, error)
	Delete(ctx context.Context, assignmentID id.AssignmentID) error
}

// Users resolves collector accounts.
type Users interface {
	FindByID(ctx context.Context, userID id.UserID) (*identity.User, error)
}

// Businesses resolves the businesses collectors are assigned to.
type Businesses interface {
	FindByID(ctx context.Context, businessID id.BusinessID) (*business.Business, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service puts collectors on businesses and zones.
type Service struct {
	store          Store
	users          Users
	businesses     Businesses
	regions        access.RegionResolver
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

func New(store Store, users Users, businesses Businesses, regions access.RegionResolver, opts ...Option) *Service {
	s := &Service{store: store, users: users, businesses: businesses, regions: regions, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssignInput describes a new assignment. A zero StartDate means now.
type AssignInput struct {
	CollectorID id.UserID
	BusinessID  *id.BusinessID
	Zone        string
	StartDate   time.Time
	EndDate     *time.Time
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	CollectorID *id.UserID
	BusinessID  *id.BusinessID
	ActiveOnly  bool
}

// Assign creates an assignment in the collector's district. The collector
// and the business must both sit inside the caller's jurisdiction.
func (s *Service) Assign(ctx context.Context, in AssignInput) (*models.Assignment, error) {
	ctx, span := tracer.Start(ctx, "assignment.Assign")
	defer span.End()

	principal, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	collector, err := s.collector(ctx, in.CollectorID)
	if err != nil {
		return nil, err
	}
	if err := scope.Ensure(collector.District); err != nil {
		return nil, dErrors.New(dErrors.CodeForbidden, "collector is outside your jurisdiction")
	}
	if in.BusinessID != nil {
		if err := s.checkBusiness(ctx, *in.BusinessID, collector.District); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	start := in.StartDate
	if start.IsZero() {
		start = now
	}
	var a *models.Assignment
	for attempt := 0; attempt < codeAttempts; attempt++ {
		a, err = models.NewAssignment(id.AssignmentID(uuid.New()), id.NewReference(id.PrefixAssignment),
			collector.ID, in.BusinessID, in.Zone, start, in.EndDate, principal.UserID, collector.District, now)
		if err != nil {
			return nil, dErrors.InvariantToValidation(err)
		}
		err = s.store.Create(ctx, a)
		if !errors.Is(err, sentinel.ErrConflict) {
			break
		}
		s.logger.WarnContext(ctx, "assignment code collision, retrying",
			"code", a.Code,
			"attempt", attempt+1,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if err != nil {
		return nil, wrapAssignmentErr(err)
	}
	span.SetAttributes(attribute.String("district", a.District))

	s.emit(ctx, audit.ActionCollectorAssigned, a, "assigned "+collector.Name+" ("+a.Code+")")
	return a, nil
}

func (s *Service) collector(ctx context.Context, collectorID id.UserID) (*identity.User, error) {
	u, err := s.users.FindByID(ctx, collectorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "collector not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load collector")
	}
	if u.Role != id.RoleCollector {
		return nil, dErrors.New(dErrors.CodeValidation, "user is not a collector")
	}
	if !u.IsActive() {
		return nil, dErrors.New(dErrors.CodeValidation, "collector account is "+string(u.Status))
	}
	if u.District == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "collector has no district")
	}
	return u, nil
}

func (s *Service) checkBusiness(ctx context.Context, businessID id.BusinessID, district string) error {
	b, err := s.businesses.FindByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "business not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load business")
	}
	if b.District != district {
		return dErrors.New(dErrors.CodeValidation, "business is not in the collector's district")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	principal, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	a, err := s.store.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, wrapAssignmentErr(err)
	}
	if a.CollectorID == principal.UserID {
		return a, nil
	}
	if !principal.Can(access.PermViewAssignments) {
		return nil, dErrors.New(dErrors.CodeForbidden, "assignment belongs to another collector")
	}
	if err := scope.Ensure(a.District); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*models.Assignment, error) {
	ctx, span := tracer.Start(ctx, "assignment.List")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.List(ctx, store.Filter{
		Districts:   scope.Districts(),
		CollectorID: filter.CollectorID,
		BusinessID:  filter.BusinessID,
		ActiveOnly:  filter.ActiveOnly,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assignments")
	}
	return access.Filter(scope, assignments), nil
}

// Mine returns the caller's assignments that are in force now.
func (s *Service) Mine(ctx context.Context) ([]*models.Assignment, error) {
	ctx, span := tracer.Start(ctx, "assignment.Mine")
	defer span.End()

	principal, _, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	collectorID := principal.UserID
	assignments, err := s.store.List(ctx, store.Filter{CollectorID: &collectorID, ActiveOnly: true})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assignments")
	}
	now := requestcontext.Now(ctx)
	out := make([]*models.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.CoversAt(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, assignmentID id.AssignmentID, u models.AssignmentUpdate) (*models.Assignment, error) {
	ctx, span := tracer.Start(ctx, "assignment.Update")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	a, err := s.store.Execute(ctx, assignmentID,
		func(a *models.Assignment) error {
			if err := scope.Ensure(a.District); err != nil {
				return err
			}
			if u.BusinessID != nil && (a.BusinessID == nil || *a.BusinessID != *u.BusinessID) {
				if err := s.checkBusiness(ctx, *u.BusinessID, a.District); err != nil {
					return err
				}
			}
			preview := *a
			preview.ApplyUpdate(u, now)
			return dErrors.InvariantToValidation(preview.Check())
		},
		func(a *models.Assignment) {
			a.ApplyUpdate(u, now)
		},
	)
	if err != nil {
		return nil, wrapAssignmentErr(err)
	}
	s.emit(ctx, audit.ActionAssignmentUpdated, a, "")
	return a, nil
}

func (s *Service) Delete(ctx context.Context, assignmentID id.AssignmentID) error {
	ctx, span := tracer.Start(ctx, "assignment.Delete")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return err
	}
	a, err := s.store.FindByID(ctx, assignmentID)
	if err != nil {
		return wrapAssignmentErr(err)
	}
	if err := scope.Ensure(a.District); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, assignmentID); err != nil {
		return wrapAssignmentErr(err)
	}
	s.emit(ctx, audit.ActionAssignmentDeleted, a, "deleted "+a.Code)
	return nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, a *models.Assignment, details string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:     action,
		EntityType: "assignment",
		EntityID:   a.ID.String(),
		District:   a.District,
		Details:    details,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"assignment_id", a.ID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func wrapAssignmentErr(err error) error {
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "assignment not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "assignment already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "assignment operation failed")
	}
}
