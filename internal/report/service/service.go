package service

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"revenuehub/internal/access"
	business "revenuehub/internal/business/models"
	businessstore "revenuehub/internal/business/store"
	collection "revenuehub/internal/collection/models"
	collectionstore "revenuehub/internal/collection/store"
	identity "revenuehub/internal/identity/models"
	userstore "revenuehub/internal/identity/store"
	"revenuehub/internal/report/models"
	revenue "revenuehub/internal/revenue/models"
	revenuestore "revenuehub/internal/revenue/store"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/requestcontext"
)

var tracer = otel.Tracer("revenuehub/report")

type Collections interface {
	List(ctx context.Context, f collectionstore.Filter) ([]*collection.Collection, error)
}

type Businesses interface {
	List(ctx context.Context, f businessstore.Filter) ([]*business.Business, error)
}

type Users interface {
	List(ctx context.Context, f userstore.Filter) ([]*identity.User, error)
}

type RevenueTypes interface {
	List(ctx context.Context, f revenuestore.Filter) ([]*revenue.RevenueType, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service builds jurisdiction-scoped reports from the operational stores.
type Service struct {
	collections    Collections
	businesses     Businesses
	users          Users
	revenueTypes   RevenueTypes
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

func New(collections Collections, businesses Businesses, users Users, revenueTypes RevenueTypes, regions access.RegionResolver, opts ...Option) *Service {
	s := &Service{
		collections:  collections,
		businesses:   businesses,
		users:        users,
		revenueTypes: revenueTypes,
		regions:      regions,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dashboard gathers the headline figures for the caller's jurisdiction. The
// three sources are read concurrently and the first failure cancels the rest.
func (s *Service) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "report.Dashboard")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	districts := scope.Districts()
	now := requestcontext.Now(ctx)

	var (
		collections []*collection.Collection
		businesses  []*business.Business
		collectors  []*identity.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		collections, err = s.collections.List(gctx, collectionstore.Filter{Districts: districts})
		return err
	})
	g.Go(func() error {
		var err error
		businesses, err = s.businesses.List(gctx, businessstore.Filter{Districts: districts})
		return err
	})
	g.Go(func() error {
		var err error
		collectors, err = s.users.List(gctx, userstore.Filter{
			Districts: districts,
			Role:      id.RoleCollector,
			Status:    identity.UserStatusActive,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dashboard")
	}
	collections = access.Filter(scope, collections)
	businesses = access.Filter(scope, businesses)
	collectors = access.Filter(scope, collectors)

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	previousStart := monthStart.AddDate(0, -1, 0)

	d := &models.Dashboard{
		TotalBusinesses: len(businesses),
		TotalCollectors: len(collectors),
		GeneratedAt:     now,
	}
	active := make(map[string]struct{})
	for _, b := range businesses {
		if b.Status == business.BusinessStatusActive {
			d.ActiveBusinesses++
			active[strings.ToLower(b.District)] = struct{}{}
		}
	}
	d.ActiveDistricts = len(active)

	for _, c := range collections {
		if c.Flagged {
			d.FlaggedCollections++
		}
		switch c.Status {
		case collection.StatusPaid:
			d.TotalRevenue = d.TotalRevenue.Add(c.Amount)
			switch {
			case !c.CollectedAt.Before(monthStart):
				d.MonthRevenue = d.MonthRevenue.Add(c.Amount)
			case !c.CollectedAt.Before(previousStart):
				d.PreviousMonthRevenue = d.PreviousMonthRevenue.Add(c.Amount)
			}
		case collection.StatusPending, collection.StatusOverdue:
			d.PendingPayments++
			d.PendingAmount = d.PendingAmount.Add(c.Amount)
		}
	}
	d.MonthlyGrowth = models.Growth(d.MonthRevenue, d.PreviousMonthRevenue)
	return d, nil
}

// Revenue breaks down paid revenue in period by revenue type and district.
func (s *Service) Revenue(ctx context.Context, period models.Period) (*models.RevenueReport, error) {
	ctx, span := tracer.Start(ctx, "report.Revenue")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	var (
		paid  []*collection.Collection
		types []*revenue.RevenueType
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		paid, err = s.collections.List(gctx, collectionstore.Filter{
			Districts: scope.Districts(),
			Status:    collection.StatusPaid,
			From:      period.From,
			To:        period.To,
		})
		return err
	})
	g.Go(func() error {
		var err error
		types, err = s.revenueTypes.List(gctx, revenuestore.Filter{Districts: scope.Districts()})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load revenue report")
	}
	paid = access.Filter(scope, paid)

	typeByID := make(map[id.RevenueTypeID]*revenue.RevenueType, len(types))
	for _, rt := range types {
		typeByID[rt.ID] = rt
	}

	report := &models.RevenueReport{Period: period, ByType: []models.TypeRevenue{}, ByDistrict: []models.DistrictRevenue{}}
	byType := make(map[id.RevenueTypeID]*models.TypeRevenue)
	byDistrict := make(map[string]*models.DistrictRevenue)
	for _, c := range paid {
		report.Total = report.Total.Add(c.Amount)

		t, ok := byType[c.RevenueTypeID]
		if !ok {
			t = &models.TypeRevenue{RevenueTypeID: c.RevenueTypeID}
			if rt, found := typeByID[c.RevenueTypeID]; found {
				t.Code, t.Name = rt.Code, rt.Name
			}
			byType[c.RevenueTypeID] = t
		}
		t.Collections++
		t.Amount = t.Amount.Add(c.Amount)

		d, ok := byDistrict[c.District]
		if !ok {
			d = &models.DistrictRevenue{District: c.District}
			byDistrict[c.District] = d
		}
		d.Collections++
		d.Amount = d.Amount.Add(c.Amount)
	}
	for _, t := range byType {
		report.ByType = append(report.ByType, *t)
	}
	for _, d := range byDistrict {
		report.ByDistrict = append(report.ByDistrict, *d)
	}
	sort.Slice(report.ByType, func(i, j int) bool {
		a, b := report.ByType[i], report.ByType[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Code < b.Code
	})
	sort.Slice(report.ByDistrict, func(i, j int) bool {
		a, b := report.ByDistrict[i], report.ByDistrict[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.District < b.District
	})
	return report, nil
}

// Collectors reports per-collector activity in period. Active collectors with
// no collections are listed with zero totals.
func (s *Service) Collectors(ctx context.Context, period models.Period) ([]models.CollectorPerformance, error) {
	ctx, span := tracer.Start(ctx, "report.Collectors")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	var (
		collections []*collection.Collection
		collectors  []*identity.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		collections, err = s.collections.List(gctx, collectionstore.Filter{
			Districts: scope.Districts(),
			From:      period.From,
			To:        period.To,
		})
		return err
	})
	g.Go(func() error {
		var err error
		collectors, err = s.users.List(gctx, userstore.Filter{Districts: scope.Districts(), Role: id.RoleCollector})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load collector performance")
	}

	perf := make(map[id.UserID]*models.CollectorPerformance)
	for _, u := range access.Filter(scope, collectors) {
		if !u.IsActive() {
			continue
		}
		perf[u.ID] = &models.CollectorPerformance{CollectorID: u.ID, Name: u.Name, District: u.District}
	}
	for _, c := range access.Filter(scope, collections) {
		if c.CollectorID == nil || c.Status == collection.StatusCancelled {
			continue
		}
		p, ok := perf[*c.CollectorID]
		if !ok {
			p = &models.CollectorPerformance{CollectorID: *c.CollectorID, District: c.District}
			perf[*c.CollectorID] = p
		}
		p.Collections++
		p.TotalRecorded = p.TotalRecorded.Add(c.Amount)
		switch c.Status {
		case collection.StatusPaid:
			p.Paid++
			p.TotalCollected = p.TotalCollected.Add(c.Amount)
		case collection.StatusPending, collection.StatusOverdue:
			p.Pending++
		}
	}

	out := make([]models.CollectorPerformance, 0, len(perf))
	for _, p := range perf {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalCollected.Equal(out[j].TotalCollected) {
			return out[i].TotalCollected.GreaterThan(out[j].TotalCollected)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

var exportHeader = []string{
	"receipt_code", "date", "business_code", "business_name", "revenue_type",
	"amount", "payment_method", "status", "flagged", "district",
}

// Export writes the scoped collections in period to w as CSV and returns the
// number of data rows written.
func (s *Service) Export(ctx context.Context, period models.Period, w io.Writer) (int, error) {
	ctx, span := tracer.Start(ctx, "report.Export")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return 0, err
	}
	if err := checkPeriod(period); err != nil {
		return 0, err
	}
	districts := scope.Districts()
	var (
		collections []*collection.Collection
		businesses  []*business.Business
		types       []*revenue.RevenueType
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		collections, err = s.collections.List(gctx, collectionstore.Filter{Districts: districts, From: period.From, To: period.To})
		return err
	})
	g.Go(func() error {
		var err error
		businesses, err = s.businesses.List(gctx, businessstore.Filter{Districts: districts})
		return err
	})
	g.Go(func() error {
		var err error
		types, err = s.revenueTypes.List(gctx, revenuestore.Filter{Districts: districts})
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load export")
	}
	collections = access.Filter(scope, collections)

	businessByID := make(map[id.BusinessID]*business.Business, len(businesses))
	for _, b := range businesses {
		businessByID[b.ID] = b
	}
	typeByID := make(map[id.RevenueTypeID]*revenue.RevenueType, len(types))
	for _, rt := range types {
		typeByID[rt.ID] = rt
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write export")
	}
	for _, c := range collections {
		var businessCode, businessName, typeName string
		if b, ok := businessByID[c.BusinessID]; ok {
			businessCode, businessName = b.Code, b.Name
		}
		if rt, ok := typeByID[c.RevenueTypeID]; ok {
			typeName = rt.Name
		}
		row := []string{
			c.ReceiptCode,
			c.CollectedAt.Format(time.DateOnly),
			businessCode,
			businessName,
			typeName,
			c.Amount.StringFixed(2),
			string(c.PaymentMethod),
			string(c.Status),
			strconv.FormatBool(c.Flagged),
			c.District,
		}
		if err := cw.Write(row); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write export")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write export")
	}

	s.emit(ctx, len(collections), period)
	return len(collections), nil
}

func (s *Service) emit(ctx context.Context, rows int, period models.Period) {
	if s.auditPublisher == nil {
		return
	}
	details := "exported " + strconv.Itoa(rows) + " collections"
	if !period.From.IsZero() || !period.To.IsZero() {
		details += " for " + formatBound(period.From) + ".." + formatBound(period.To)
	}
	event := audit.Event{
		Action:     audit.ActionReportExported,
		EntityType: "report",
		EntityID:   "collections",
		District:   requestcontext.District(ctx),
		Details:    details,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func checkPeriod(p models.Period) error {
	if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From) {
		return dErrors.New(dErrors.CodeValidation, "to must not be before from")
	}
	return nil
}
