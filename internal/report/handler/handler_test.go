package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"revenuehub/internal/access"
	"revenuehub/internal/report/handler/mocks"
	"revenuehub/internal/report/models"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
	"revenuehub/pkg/testutil"
)

func newRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := chi.NewRouter()
	New(svc, logger, access.NewGuard(logger, nil)).Register(r)
	return r, svc
}

func as(role id.Role) testutil.Principal {
	return testutil.Principal{UserID: id.UserID(uuid.New()), Role: role, District: "Accra Metropolitan"}
}

func TestHandleDashboard(t *testing.T) {
	router, svc := newRouter(t)
	svc.EXPECT().Dashboard(gomock.Any()).Return(&models.Dashboard{
		TotalRevenue:  decimal.RequireFromString("1300"),
		MonthlyGrowth: 15.5,
	}, nil)

	req := testutil.NewJSONRequest(t, http.MethodGet, "/reports/dashboard", nil)
	rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleCollector)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := testutil.UnmarshalResponse[models.Dashboard](t, rr)
	assert.True(t, res.TotalRevenue.Equal(decimal.NewFromInt(1300)))
	assert.Equal(t, 15.5, res.MonthlyGrowth)
}

func TestHandleRevenue(t *testing.T) {
	t.Run("parses the period", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Revenue(gomock.Any(), models.Period{
			From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 1, 31, 23, 59, 59, 999999999, time.UTC),
		}).Return(&models.RevenueReport{}, nil)

		req := testutil.NewJSONRequest(t, http.MethodGet, "/reports/revenue?from=2026-01-01&to=2026-01-31", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleFinance)))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("bad date", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodGet, "/reports/revenue?from=january", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleFinance)))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("collectors cannot view reports", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodGet, "/reports/revenue", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleCollector)))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})
}

func TestHandleCollectors(t *testing.T) {
	router, svc := newRouter(t)
	svc.EXPECT().Collectors(gomock.Any(), models.Period{}).Return([]models.CollectorPerformance{
		{Name: "Kofi Mensah", Collections: 3},
	}, nil)

	req := testutil.NewJSONRequest(t, http.MethodGet, "/reports/collectors", nil)
	rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleMonitoringBody)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := testutil.UnmarshalResponse[CollectorPerformanceResponse](t, rr)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "Kofi Mensah", res.Collectors[0].Name)

	req = testutil.NewJSONRequest(t, http.MethodGet, "/reports/collectors", nil)
	rr = testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleBusinessRegistrationOfficer)))
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
}

func TestHandleExport(t *testing.T) {
	t.Run("streams csv", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Export(gomock.Any(), models.Period{}, gomock.Any()).DoAndReturn(
			func(_ any, _ models.Period, w io.Writer) (int, error) {
				_, err := io.WriteString(w, "receipt_code,amount\nRCP-20260301-1A2B3C,50.00\n")
				return 1, err
			})

		req := testutil.NewJSONRequest(t, http.MethodGet, "/reports/export.csv", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleFinance)))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, rr.Body.String(), "RCP-20260301-1A2B3C")
	})

	t.Run("errors stay json", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Export(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(0, dErrors.New(dErrors.CodeValidation, "to must not be before from"))

		req := testutil.NewJSONRequest(t, http.MethodGet, "/reports/export.csv", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleFinance)))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		assert.Empty(t, rr.Header().Get("Content-Disposition"))
	})

	t.Run("registration officers cannot export", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodGet, "/reports/export.csv", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleBusinessRegistrationOfficer)))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})
}
