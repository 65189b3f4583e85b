package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
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
	"revenuehub/internal/collection/handler/mocks"
	"revenuehub/internal/collection/models"
	"revenuehub/internal/collection/service"
	id "revenuehub/pkg/domain"
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

func collection() *models.Collection {
	return &models.Collection{
		ID:          id.CollectionID(uuid.New()),
		ReceiptCode: "RCP-20260301-1A2B3C",
		Amount:      decimal.RequireFromString("50.00"),
		Status:      models.StatusPending,
		District:    "Accra Metropolitan",
	}
}

func TestHandleRecord(t *testing.T) {
	business := id.BusinessID(uuid.New())
	revenueType := id.RevenueTypeID(uuid.New())

	t.Run("collector records a payment", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, in service.PaymentInput) (*models.Collection, error) {
				assert.Equal(t, business, in.BusinessID)
				assert.Equal(t, revenueType, in.RevenueTypeID)
				assert.True(t, in.Amount.Equal(decimal.RequireFromString("50")))
				assert.Equal(t, models.PaymentMethodMomo, in.PaymentMethod)
				assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), in.CollectedAt)
				return collection(), nil
			})

		req := testutil.NewJSONRequest(t, http.MethodPost, "/collections", map[string]any{
			"business_id": business.String(), "revenue_type_id": revenueType.String(),
			"amount": 50, "payment_method": "MoMo", "date": "2026-03-01",
		})
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleCollector)))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		res := testutil.UnmarshalResponse[models.Collection](t, rr)
		assert.Equal(t, "RCP-20260301-1A2B3C", res.ReceiptCode)
	})

	t.Run("omitted amount uses the default", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, in service.PaymentInput) (*models.Collection, error) {
				assert.True(t, in.Amount.IsZero())
				return collection(), nil
			})
		req := testutil.NewJSONRequest(t, http.MethodPost, "/collections", map[string]any{
			"business_id": business.String(), "revenue_type_id": revenueType.String(), "payment_method": "cash",
		})
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleCollector)))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	})

	invalid := []struct {
		name string
		body map[string]any
	}{
		{"missing business", map[string]any{"revenue_type_id": revenueType.String(), "payment_method": "cash"}},
		{"zero amount", map[string]any{"business_id": business.String(), "revenue_type_id": revenueType.String(), "amount": "0", "payment_method": "cash"}},
		{"unknown method", map[string]any{"business_id": business.String(), "revenue_type_id": revenueType.String(), "payment_method": "barter"}},
		{"bad date", map[string]any{"business_id": business.String(), "revenue_type_id": revenueType.String(), "payment_method": "cash", "date": "yesterday"}},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := newRouter(t)
			req := testutil.NewJSONRequest(t, http.MethodPost, "/collections", tc.body)
			rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleCollector)))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		})
	}

	t.Run("finance cannot record payments", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/collections", map[string]any{})
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleFinance)))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})
}

func TestHandleMakePayment(t *testing.T) {
	router, svc := newRouter(t)
	svc.EXPECT().MakePayment(gomock.Any(), gomock.Any()).Return(collection(), nil)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/payments", map[string]any{
		"business_id": uuid.NewString(), "revenue_type_id": uuid.NewString(), "payment_method": "bank",
	})
	rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleBusinessOwner)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = testutil.DoRequest(router, testutil.WithPrincipal(
		testutil.NewJSONRequest(t, http.MethodPost, "/payments", map[string]any{}), as(id.RoleCollector)))
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
}

func TestHandleList(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, f service.ListFilter) ([]*models.Collection, error) {
				assert.Equal(t, models.StatusPending, f.Status)
				assert.Equal(t, models.PaymentMethodCash, f.Method)
				require.NotNil(t, f.Flagged)
				assert.True(t, *f.Flagged)
				assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), f.From)
				assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 999999999, time.UTC), f.To)
				return []*models.Collection{collection()}, nil
			})

		req := testutil.NewJSONRequest(t, http.MethodGet, "/collections?status=pending&payment_method=cash&flagged=true&from=2026-03-01&to=2026-03-31", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleFinance)))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		res := testutil.UnmarshalResponse[CollectionListResponse](t, rr)
		assert.Equal(t, 1, res.Total)
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodGet, "/collections?status=lost", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleFinance)))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("collectors use mine", func(t *testing.T) {
		router, svc := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodGet, "/collections", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleCollector)))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

		svc.EXPECT().Mine(gomock.Any()).Return([]*models.Collection{collection(), collection()}, nil)
		req = testutil.NewJSONRequest(t, http.MethodGet, "/collections/mine", nil)
		rr = testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleCollector)))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 2, testutil.UnmarshalResponse[CollectionListResponse](t, rr).Total)
	})

	t.Run("owners use mine", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Mine(gomock.Any()).Return([]*models.Collection{}, nil)
		req := testutil.NewJSONRequest(t, http.MethodGet, "/collections/mine", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleBusinessOwner)))
		require.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestHandleLifecycle(t *testing.T) {
	collectionID := id.CollectionID(uuid.New())
	base := "/collections/" + collectionID.String()

	t.Run("update", func(t *testing.T) {
		router, svc := newRouter(t)
		amount := decimal.RequireFromString("60")
		svc.EXPECT().Update(gomock.Any(), collectionID, gomock.Any()).DoAndReturn(
			func(_ any, _ id.CollectionID, u models.CollectionUpdate) (*models.Collection, error) {
				require.NotNil(t, u.Amount)
				assert.True(t, u.Amount.Equal(amount))
				assert.Nil(t, u.PaymentMethod)
				return collection(), nil
			})
		req := testutil.NewJSONRequest(t, http.MethodPut, base, map[string]any{"amount": "60"})
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleCollector)))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("empty update", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPut, base, map[string]any{})
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleCollector)))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("validate", func(t *testing.T) {
		router, svc := newRouter(t)
		paid := collection()
		paid.Status = models.StatusPaid
		svc.EXPECT().Validate(gomock.Any(), collectionID).Return(paid, nil)
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/validate", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleFinance)))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, models.StatusPaid, testutil.UnmarshalResponse[models.Collection](t, rr).Status)
	})

	t.Run("collector cannot validate", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/validate", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleCollector)))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("cancel without a body", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Cancel(gomock.Any(), collectionID, "").Return(collection(), nil)
		req := testutil.NewJSONRequest(t, http.MethodDelete, base, nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleSuperAdmin)))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("cancel with a reason", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Cancel(gomock.Any(), collectionID, "duplicate").Return(collection(), nil)
		req := testutil.NewJSONRequest(t, http.MethodDelete, base, map[string]string{"reason": " duplicate "})
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleSuperAdmin)))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("malformed id", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/collections/abc/validate", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleFinance)))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}

func TestHandleReceiptAndFlag(t *testing.T) {
	collectionID := id.CollectionID(uuid.New())
	base := "/collections/" + collectionID.String()

	t.Run("receipt", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Receipt(gomock.Any(), collectionID).Return(&models.Receipt{
			ReceiptCode:   "RCP-20260301-1A2B3C",
			AmountDisplay: "GHS 50.00",
		}, nil)
		req := testutil.NewJSONRequest(t, http.MethodGet, base+"/receipt", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleBusinessOwner)))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "GHS 50.00", testutil.UnmarshalResponse[models.Receipt](t, rr).AmountDisplay)
	})

	t.Run("flag defaults to medium risk", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Flag(gomock.Any(), collectionID, service.FlagInput{Reason: "amount mismatch", RiskLevel: models.RiskMedium}).
			Return(collection(), nil)
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/flag", map[string]string{"reason": "amount mismatch"})
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleAuditor)))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("flag needs a reason", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/flag", map[string]string{"risk_level": "high"})
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleAuditor)))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("unflag", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Unflag(gomock.Any(), collectionID).Return(collection(), nil)
		req := testutil.NewJSONRequest(t, http.MethodDelete, base+"/flag", nil)
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleAuditor)))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("finance cannot flag", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/flag", map[string]string{"reason": "x"})
		rr := testutil.DoRequest(router, testutil.WithPrincipal(req, as(id.RoleFinance)))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})
}
