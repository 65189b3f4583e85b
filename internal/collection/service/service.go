package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"revenuehub/internal/access"
	business "revenuehub/internal/business/models"
	businessstore "revenuehub/internal/business/store"
	"revenuehub/internal/collection/metrics"
	"revenuehub/internal/collection/models"
	"revenuehub/internal/collection/store"
	identity "revenuehub/internal/identity/models"
	revenue "revenuehub/internal/revenue/models"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/platform/sentinel"
	txcontext "revenuehub/pkg/platform/tx"
	"revenuehub/pkg/requestcontext"
)

var tracer = otel.Tracer("revenuehub/collection")

const receiptAttempts = 5

type Store interface {
	Create(ctx context.Context, c *models.Collection) error
	FindByID(ctx context.Context, collectionID id.CollectionID) (*models.Collection, error)
	List(ctx context.Context, f store.Filter) ([]*models.Collection, error)
	Execute(ctx context.Context, collectionID id.CollectionID, validate func(*models.Collection) error, apply func(*models.Collection)) (*models.Collection, error)
}

// Businesses is the slice of the business registry collections need.
type Businesses interface {
	FindByID(ctx context.Context, businessID id.BusinessID) (*business.Business, error)
	List(ctx context.Context, f businessstore.Filter) ([]*business.Business, error)
	RecordPayment(ctx context.Context, businessID id.BusinessID, at time.Time) error
}

type RevenueTypes interface {
	FindByID(ctx context.Context, revenueTypeID id.RevenueTypeID) (*revenue.RevenueType, error)
}

// Users resolves collector names for receipts.
type Users interface {
	FindByID(ctx context.Context, userID id.UserID) (*identity.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service records, validates and audits payments.
type Service struct {
	store          Store
	businesses     Businesses
	revenueTypes   RevenueTypes
	users          Users
	regions        access.RegionResolver
	tx             txcontext.Runner
	metrics        *metrics.Metrics
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithUsers(users Users) Option {
	return func(s *Service) {
		s.users = users
	}
}

// WithTxRunner makes validation and the business payment date update one
// unit of work. Defaults to running them back to back.
func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func New(store Store, businesses Businesses, revenueTypes RevenueTypes, regions access.RegionResolver, opts ...Option) *Service {
	s := &Service{
		store:        store,
		businesses:   businesses,
		revenueTypes: revenueTypes,
		regions:      regions,
		tx:           txcontext.Noop{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PaymentInput describes a payment. A zero Amount charges the revenue type's
// default amount; a zero CollectedAt means now.
type PaymentInput struct {
	BusinessID    id.BusinessID
	RevenueTypeID id.RevenueTypeID
	Amount        decimal.Decimal
	PaymentMethod models.PaymentMethod
	CollectedAt   time.Time
	Notes         string
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Status        models.Status
	Method        models.PaymentMethod
	CollectorID   *id.UserID
	BusinessID    *id.BusinessID
	RevenueTypeID *id.RevenueTypeID
	Flagged       *bool
	From          time.Time
	To            time.Time
}

// FlagInput describes an irregularity raised by an auditor.
type FlagInput struct {
	Reason    string
	RiskLevel models.RiskLevel
}

// Record stores a payment taken by a collector in the field. The business
// must be inside the collector's jurisdiction.
func (s *Service) Record(ctx context.Context, in PaymentInput) (*models.Collection, error) {
	ctx, span := tracer.Start(ctx, "collection.Record")
	defer span.End()

	principal, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	b, err := s.business(ctx, in.BusinessID)
	if err != nil {
		return nil, err
	}
	if err := scope.Ensure(b.District); err != nil {
		return nil, dErrors.New(dErrors.CodeForbidden, "business is outside your jurisdiction")
	}
	collectorID := principal.UserID
	c, err := s.create(ctx, b, in, func(c *models.Collection) { c.CollectorID = &collectorID })
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("district", c.District))
	s.metrics.IncrementRecorded("collector", string(c.PaymentMethod))

	s.emit(ctx, audit.ActionPaymentRecorded, c, "recorded "+models.FormatAmount(c.Amount)+" from "+b.Code)
	return c, nil
}

// MakePayment stores a payment made by a business owner for a business they own.
func (s *Service) MakePayment(ctx context.Context, in PaymentInput) (*models.Collection, error) {
	ctx, span := tracer.Start(ctx, "collection.MakePayment")
	defer span.End()

	principal, _, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	b, err := s.business(ctx, in.BusinessID)
	if err != nil {
		return nil, err
	}
	if !b.OwnedBy(principal.UserID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "you can only pay for businesses you own")
	}
	payerID := principal.UserID
	c, err := s.create(ctx, b, in, func(c *models.Collection) { c.PaidBy = &payerID })
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("district", c.District))
	s.metrics.IncrementRecorded("owner", string(c.PaymentMethod))

	s.emit(ctx, audit.ActionPaymentMade, c, "paid "+models.FormatAmount(c.Amount)+" for "+b.Code)
	return c, nil
}

func (s *Service) business(ctx context.Context, businessID id.BusinessID) (*business.Business, error) {
	b, err := s.businesses.FindByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "business not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load business")
	}
	return b, nil
}

// create builds and stores a pending collection for b, retrying on receipt
// code collisions. assign sets the collector or payer.
func (s *Service) create(ctx context.Context, b *business.Business, in PaymentInput, assign func(*models.Collection)) (*models.Collection, error) {
	if !b.CanAcceptPayments() {
		return nil, dErrors.New(dErrors.CodeValidation, "business is "+string(b.Status)+" and cannot accept payments")
	}
	rt, err := s.revenueTypes.FindByID(ctx, in.RevenueTypeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "revenue type not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load revenue type")
	}
	if rt.District != b.District {
		return nil, dErrors.New(dErrors.CodeValidation, "revenue type does not apply to the business's district")
	}
	if !rt.IsActive {
		return nil, dErrors.New(dErrors.CodeValidation, "revenue type is inactive")
	}
	amount := in.Amount
	if amount.IsZero() {
		amount = rt.DefaultAmount
	}
	now := requestcontext.Now(ctx)
	collectedAt := in.CollectedAt
	if collectedAt.IsZero() {
		collectedAt = now
	}

	var c *models.Collection
	for attempt := 0; attempt < receiptAttempts; attempt++ {
		c, err = models.NewCollection(id.CollectionID(uuid.New()), id.NewDatedReference(id.PrefixReceipt, collectedAt),
			b.ID, rt.ID, amount, in.PaymentMethod, collectedAt, b.District, now)
		if err != nil {
			return nil, dErrors.InvariantToValidation(err)
		}
		assign(c)
		c.Notes = strings.TrimSpace(in.Notes)
		c.ClientIP = requestcontext.ClientIP(ctx)
		c.DeviceInfo = requestcontext.DeviceInfo(ctx)

		err = s.store.Create(ctx, c)
		if !errors.Is(err, sentinel.ErrConflict) {
			break
		}
		s.logger.WarnContext(ctx, "receipt code collision, retrying",
			"receipt_code", c.ReceiptCode,
			"attempt", attempt+1,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if err != nil {
		return nil, wrapCollectionErr(err)
	}
	return c, nil
}

// Get returns a collection to its collector, its payer, the owner of the
// business, or staff with view_collections inside their jurisdiction.
func (s *Service) Get(ctx context.Context, collectionID id.CollectionID) (*models.Collection, error) {
	principal, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	c, err := s.store.FindByID(ctx, collectionID)
	if err != nil {
		return nil, wrapCollectionErr(err)
	}
	if err := s.ensureVisible(ctx, principal, scope, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ensureVisible(ctx context.Context, p *access.Principal, scope access.Scope, c *models.Collection) error {
	if c.RecordedBy(p.UserID) || (c.PaidBy != nil && *c.PaidBy == p.UserID) {
		return nil
	}
	if p.Can(access.PermViewCollections) {
		return scope.Ensure(c.District)
	}
	if p.Role == id.RoleBusinessOwner {
		b, err := s.businesses.FindByID(ctx, c.BusinessID)
		if err == nil && b.OwnedBy(p.UserID) {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "collection is not visible to you")
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*models.Collection, error) {
	ctx, span := tracer.Start(ctx, "collection.List")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, dErrors.New(dErrors.CodeValidation, "to must not be before from")
	}
	collections, err := s.store.List(ctx, store.Filter{
		Districts:     scope.Districts(),
		Status:        filter.Status,
		Method:        filter.Method,
		CollectorID:   filter.CollectorID,
		BusinessID:    filter.BusinessID,
		RevenueTypeID: filter.RevenueTypeID,
		Flagged:       filter.Flagged,
		From:          filter.From,
		To:            filter.To,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list collections")
	}
	return access.Filter(scope, collections), nil
}

// Mine lists the collections a collector recorded, or the payments made for
// the businesses a business owner owns.
func (s *Service) Mine(ctx context.Context) ([]*models.Collection, error) {
	ctx, span := tracer.Start(ctx, "collection.Mine")
	defer span.End()

	principal, _, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	f := store.Filter{}
	switch {
	case principal.Can(access.PermViewMyCollections):
		me := principal.UserID
		f.CollectorID = &me
	case principal.Can(access.PermViewMyPayments):
		owner := principal.UserID
		owned, err := s.businesses.List(ctx, businessstore.Filter{OwnerID: &owner})
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owned businesses")
		}
		f.BusinessIDs = make([]id.BusinessID, 0, len(owned))
		for _, b := range owned {
			f.BusinessIDs = append(f.BusinessIDs, b.ID)
		}
	default:
		return []*models.Collection{}, nil
	}
	collections, err := s.store.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list collections")
	}
	return collections, nil
}

// Update edits an unvalidated collection. Collectors may only edit their own.
func (s *Service) Update(ctx context.Context, collectionID id.CollectionID, u models.CollectionUpdate) (*models.Collection, error) {
	ctx, span := tracer.Start(ctx, "collection.Update", withCollection(collectionID))
	defer span.End()

	principal, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, dErrors.InvariantToValidation(err)
	}
	now := requestcontext.Now(ctx)
	c, err := s.store.Execute(ctx, collectionID,
		func(c *models.Collection) error {
			if err := scope.Ensure(c.District); err != nil {
				return err
			}
			if principal.Role == id.RoleCollector && !c.RecordedBy(principal.UserID) {
				return dErrors.New(dErrors.CodeForbidden, "collectors can only edit their own collections")
			}
			if err := c.CanEdit(); err != nil {
				return dErrors.New(dErrors.CodeConflict, "validated or cancelled collections cannot be edited")
			}
			return nil
		},
		func(c *models.Collection) {
			c.ApplyUpdate(u, now)
		},
	)
	if err != nil {
		return nil, wrapCollectionErr(err)
	}
	s.emit(ctx, audit.ActionPaymentUpdated, c, "")
	return c, nil
}

// Validate confirms a pending collection as paid and advances the business's
// last payment date in the same unit of work.
func (s *Service) Validate(ctx context.Context, collectionID id.CollectionID) (*models.Collection, error) {
	ctx, span := tracer.Start(ctx, "collection.Validate", withCollection(collectionID))
	defer span.End()

	principal, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	var c *models.Collection
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		validated, err := s.store.Execute(ctx, collectionID,
			func(c *models.Collection) error {
				if err := scope.Ensure(c.District); err != nil {
					return err
				}
				if c.RecordedBy(principal.UserID) {
					return dErrors.New(dErrors.CodeForbidden, "you cannot validate a collection you recorded")
				}
				if err := c.CanValidate(); err != nil {
					return dErrors.New(dErrors.CodeConflict, err.Error())
				}
				return nil
			},
			func(c *models.Collection) {
				c.ApplyValidation(principal.UserID, now)
			},
		)
		if err != nil {
			return err
		}
		if err := s.businesses.RecordPayment(ctx, validated.BusinessID, validated.CollectedAt); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeConflict, "business for this collection no longer exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record business payment")
		}
		c = validated
		return nil
	})
	if err != nil {
		return nil, wrapCollectionErr(err)
	}
	s.metrics.ObserveValidated(c.District, c.Amount)

	s.emit(ctx, audit.ActionPaymentValidated, c, "validated "+c.ReceiptCode)
	return c, nil
}

// Cancel voids an unvalidated collection. Collections are never hard deleted.
func (s *Service) Cancel(ctx context.Context, collectionID id.CollectionID, reason string) (*models.Collection, error) {
	ctx, span := tracer.Start(ctx, "collection.Cancel", withCollection(collectionID))
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	c, err := s.store.Execute(ctx, collectionID,
		func(c *models.Collection) error {
			if err := scope.Ensure(c.District); err != nil {
				return err
			}
			if err := c.CanCancel(); err != nil {
				return dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil
		},
		func(c *models.Collection) {
			c.ApplyCancellation(reason, now)
		},
	)
	if err != nil {
		return nil, wrapCollectionErr(err)
	}
	s.emit(ctx, audit.ActionPaymentCancelled, c, strings.TrimSpace("cancelled "+c.ReceiptCode+" "+strings.TrimSpace(reason)))
	return c, nil
}

// Receipt renders the receipt of a paid collection.
func (s *Service) Receipt(ctx context.Context, collectionID id.CollectionID) (*models.Receipt, error) {
	ctx, span := tracer.Start(ctx, "collection.Receipt", withCollection(collectionID))
	defer span.End()

	c, err := s.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.StatusPaid {
		return nil, dErrors.New(dErrors.CodeConflict, "a receipt is available once the payment is validated")
	}
	b, err := s.businesses.FindByID(ctx, c.BusinessID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load business")
	}
	rt, err := s.revenueTypes.FindByID(ctx, c.RevenueTypeID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load revenue type")
	}
	receipt := &models.Receipt{
		ReceiptCode:     c.ReceiptCode,
		IssuedAt:        requestcontext.Now(ctx),
		BusinessCode:    b.Code,
		BusinessName:    b.Name,
		OwnerName:       b.OwnerName,
		RevenueTypeCode: rt.Code,
		RevenueTypeName: rt.Name,
		Amount:          c.Amount,
		AmountDisplay:   models.FormatAmount(c.Amount),
		PaymentMethod:   c.PaymentMethod,
		CollectedAt:     c.CollectedAt,
		ValidatedAt:     c.ValidatedAt,
		District:        c.District,
	}
	if c.CollectorID != nil && s.users != nil {
		if u, err := s.users.FindByID(ctx, *c.CollectorID); err == nil {
			receipt.CollectorName = u.Name
		}
	}
	s.emit(ctx, audit.ActionReceiptGenerated, c, c.ReceiptCode)
	return receipt, nil
}

// Flag marks a collection as irregular.
func (s *Service) Flag(ctx context.Context, collectionID id.CollectionID, in FlagInput) (*models.Collection, error) {
	ctx, span := tracer.Start(ctx, "collection.Flag", withCollection(collectionID))
	defer span.End()

	principal, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if !in.RiskLevel.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "risk_level must be low, medium or high")
	}
	now := requestcontext.Now(ctx)
	c, err := s.store.Execute(ctx, collectionID,
		func(c *models.Collection) error {
			if err := scope.Ensure(c.District); err != nil {
				return err
			}
			if err := c.CanFlag(); err != nil {
				return dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil
		},
		func(c *models.Collection) {
			c.ApplyFlag(in.Reason, in.RiskLevel, principal.UserID, now)
		},
	)
	if err != nil {
		return nil, wrapCollectionErr(err)
	}
	s.metrics.IncrementFlagged(string(in.RiskLevel))

	s.emit(ctx, audit.ActionCollectionFlagged, c, string(c.RiskLevel)+": "+c.FlagReason)
	return c, nil
}

// Unflag resolves a previously raised flag.
func (s *Service) Unflag(ctx context.Context, collectionID id.CollectionID) (*models.Collection, error) {
	ctx, span := tracer.Start(ctx, "collection.Unflag", withCollection(collectionID))
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	c, err := s.store.Execute(ctx, collectionID,
		func(c *models.Collection) error {
			if err := scope.Ensure(c.District); err != nil {
				return err
			}
			if err := c.CanUnflag(); err != nil {
				return dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil
		},
		func(c *models.Collection) {
			c.ApplyUnflag(now)
		},
	)
	if err != nil {
		return nil, wrapCollectionErr(err)
	}
	s.emit(ctx, audit.ActionCollectionUnflagged, c, "")
	return c, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, c *models.Collection, details string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:     action,
		EntityType: "collection",
		EntityID:   c.ID.String(),
		District:   c.District,
		Details:    details,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"collection_id", c.ID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func withCollection(collectionID id.CollectionID) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String("collection_id", collectionID.String()))
}

func wrapCollectionErr(err error) error {
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "collection not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "receipt code already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "collection operation failed")
	}
}
