package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	business "revenuehub/internal/business/models"
	businessstore "revenuehub/internal/business/store"
	collection "revenuehub/internal/collection/models"
	collectionstore "revenuehub/internal/collection/store"
	"revenuehub/internal/geo"
	identity "revenuehub/internal/identity/models"
	userstore "revenuehub/internal/identity/store"
	"revenuehub/internal/report/models"
	revenue "revenuehub/internal/revenue/models"
	revenuestore "revenuehub/internal/revenue/store"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/platform/audit/publisher"
	auditmemory "revenuehub/pkg/platform/audit/store/memory"
	"revenuehub/pkg/requestcontext"
)

const (
	accra = "Accra Metropolitan"
	tema  = "Tema Metropolitan"
)

type ReportServiceSuite struct {
	suite.Suite
	audit       *auditmemory.InMemoryStore
	collections *collectionstore.InMemory
	businesses  *businessstore.InMemory
	users       *userstore.InMemory
	types       *revenuestore.InMemory
	service     *Service
	now         time.Time

	kofi, yaw   *identity.User
	shop, kiosk *business.Business
	permit, fee *revenue.RevenueType
}

func TestReportServiceSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceSuite))
}

func (s *ReportServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s.audit = auditmemory.NewInMemoryStore()
	s.collections = collectionstore.NewInMemory()
	s.businesses = businessstore.NewInMemory()
	s.users = userstore.NewInMemory()
	s.types = revenuestore.NewInMemory()

	s.kofi = s.collector("kofi@accra.gov.gh", "Kofi Mensah", accra)
	s.yaw = s.collector("yaw@tema.gov.gh", "Yaw Boateng", tema)
	s.shop = s.business("BUS-000001", accra, business.BusinessStatusActive)
	s.business("BUS-000002", accra, business.BusinessStatusSuspended)
	s.kiosk = s.business("BUS-000003", tema, business.BusinessStatusActive)
	s.permit = s.revenueType("BOP", accra)
	s.fee = s.revenueType("MKT", tema)

	s.collection(s.kofi, s.shop, s.permit, "100", s.now.AddDate(0, 0, -2), true)
	s.collection(s.kofi, s.shop, s.permit, "80", s.now.AddDate(0, -1, 0), true)
	s.collection(s.kofi, s.shop, s.permit, "30", s.now.AddDate(0, 0, -1), false)
	s.collection(s.yaw, s.kiosk, s.fee, "500", s.now.AddDate(0, 0, -3), true)

	s.service = New(s.collections, s.businesses, s.users, s.types, geo.NewGhanaCatalog(),
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
	)
}

func (s *ReportServiceSuite) collector(email, name, district string) *identity.User {
	u, err := identity.NewUser(id.UserID(uuid.New()), email, name, id.RoleCollector, district, "", "hash", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u
}

func (s *ReportServiceSuite) business(code, district string, status business.BusinessStatus) *business.Business {
	b, err := business.NewBusiness(id.BusinessID(uuid.New()), code, "Shop "+code, "Ama Owusu", "retail", "0244000000", district, status, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.businesses.Create(context.Background(), b))
	return b
}

func (s *ReportServiceSuite) revenueType(code, district string) *revenue.RevenueType {
	rt, err := revenue.NewRevenueType(id.RevenueTypeID(uuid.New()), code, code+" fee", decimal.NewFromInt(10),
		revenue.FrequencyMonthly, revenue.CategoryFee, district, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.types.Create(context.Background(), rt))
	return rt
}

func (s *ReportServiceSuite) collection(collector *identity.User, b *business.Business, rt *revenue.RevenueType, amount string, at time.Time, paid bool) {
	c, err := collection.NewCollection(id.CollectionID(uuid.New()), id.NewDatedReference(id.PrefixReceipt, at),
		b.ID, rt.ID, decimal.RequireFromString(amount), collection.PaymentMethodCash, at, b.District, s.now)
	s.Require().NoError(err)
	collectorID := collector.ID
	c.CollectorID = &collectorID
	if paid {
		c.ApplyValidation(id.UserID(uuid.New()), s.now)
	}
	s.Require().NoError(s.collections.Create(context.Background(), c))
}

func (s *ReportServiceSuite) as(role id.Role, district string) context.Context {
	ctx := requestcontext.WithPrincipal(context.Background(), id.UserID(uuid.New()), role, district, "")
	return requestcontext.WithTime(ctx, s.now)
}

func (s *ReportServiceSuite) TestDashboardIsScoped() {
	d, err := s.service.Dashboard(s.as(id.RoleFinance, accra))
	s.Require().NoError(err)

	s.True(d.TotalRevenue.Equal(decimal.NewFromInt(180)))
	s.True(d.MonthRevenue.Equal(decimal.NewFromInt(100)))
	s.True(d.PreviousMonthRevenue.Equal(decimal.NewFromInt(80)))
	s.Equal(25.0, d.MonthlyGrowth)
	s.Equal(1, d.PendingPayments)
	s.True(d.PendingAmount.Equal(decimal.NewFromInt(30)))
	s.Equal(2, d.TotalBusinesses)
	s.Equal(1, d.ActiveBusinesses)
	s.Equal(1, d.TotalCollectors)
	s.Equal(1, d.ActiveDistricts)
	s.Equal(s.now, d.GeneratedAt)
}

func (s *ReportServiceSuite) TestDashboardNational() {
	d, err := s.service.Dashboard(s.as(id.RoleSuperAdmin, ""))
	s.Require().NoError(err)
	s.True(d.TotalRevenue.Equal(decimal.NewFromInt(680)))
	s.Equal(3, d.TotalBusinesses)
	s.Equal(2, d.TotalCollectors)
	s.Equal(2, d.ActiveDistricts)

	_, err = s.service.Dashboard(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ReportServiceSuite) TestRevenueReport() {
	report, err := s.service.Revenue(s.as(id.RoleMonitoringBody, ""), models.Period{})
	s.Require().NoError(err)
	s.True(report.Total.Equal(decimal.NewFromInt(680)))
	s.Require().Len(report.ByType, 2)
	s.Equal("MKT", report.ByType[0].Code)
	s.Equal("BOP", report.ByType[1].Code)
	s.Equal(2, report.ByType[1].Collections)
	s.Require().Len(report.ByDistrict, 2)
	s.Equal(tema, report.ByDistrict[0].District)

	march, err := s.service.Revenue(s.as(id.RoleFinance, accra), models.Period{From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)})
	s.Require().NoError(err)
	s.True(march.Total.Equal(decimal.NewFromInt(100)))
	s.Len(march.ByDistrict, 1)

	_, err = s.service.Revenue(s.as(id.RoleFinance, accra), models.Period{From: s.now, To: s.now.Add(-time.Hour)})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ReportServiceSuite) TestCollectorPerformance() {
	perf, err := s.service.Collectors(s.as(id.RoleFinance, accra), models.Period{})
	s.Require().NoError(err)
	s.Require().Len(perf, 1)

	kofi := perf[0]
	s.Equal(s.kofi.ID, kofi.CollectorID)
	s.Equal("Kofi Mensah", kofi.Name)
	s.Equal(3, kofi.Collections)
	s.Equal(2, kofi.Paid)
	s.Equal(1, kofi.Pending)
	s.True(kofi.TotalCollected.Equal(decimal.NewFromInt(180)))
	s.True(kofi.TotalRecorded.Equal(decimal.NewFromInt(210)))

	all, err := s.service.Collectors(s.as(id.RoleAuditor, ""), models.Period{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("Yaw Boateng", all[0].Name)
}

func (s *ReportServiceSuite) TestExport() {
	var buf bytes.Buffer
	n, err := s.service.Export(s.as(id.RoleFinance, accra), models.Period{}, &buf)
	s.Require().NoError(err)
	s.Equal(3, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	s.Require().NoError(err)
	s.Require().Len(rows, 4)
	s.Equal(exportHeader, rows[0])
	for _, row := range rows[1:] {
		s.Equal("BUS-000001", row[2])
		s.Equal("BOP fee", row[4])
		s.Equal(accra, row[9])
	}

	events, err := s.audit.Search(context.Background(), audit.Query{Action: audit.ActionReportExported})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("exported 3 collections", events[0].Details)
}
