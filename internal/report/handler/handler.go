package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"revenuehub/internal/access"
	"revenuehub/internal/report/models"
	dErrors "revenuehub/pkg/domain-errors"
	"revenuehub/pkg/platform/httputil"
	"revenuehub/pkg/requestcontext"
)

// Service defines the report operations exposed over HTTP.
type Service interface {
	Dashboard(ctx context.Context) (*models.Dashboard, error)
	Revenue(ctx context.Context, period models.Period) (*models.RevenueReport, error)
	Collectors(ctx context.Context, period models.Period) ([]models.CollectorPerformance, error)
	Export(ctx context.Context, period models.Period, w io.Writer) (int, error)
}

// Handler serves the /reports endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
	guard   *access.Guard
}

func New(service Service, logger *slog.Logger, guard *access.Guard) *Handler {
	return &Handler{service: service, logger: logger, guard: guard}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(h.guard.Require(access.PermViewDashboard)).Get("/dashboard", h.HandleDashboard)
		r.With(h.guard.Require(access.PermViewReports)).Get("/revenue", h.HandleRevenue)
		r.With(h.guard.Require(access.PermViewCollectorPerformance)).Get("/collectors", h.HandleCollectors)
		r.With(h.guard.Require(access.PermExportReports)).Get("/export.csv", h.HandleExport)
	})
}

type CollectorPerformanceResponse struct {
	Collectors []models.CollectorPerformance `json:"collectors"`
	Total      int                           `json:"total"`
}

// parsePeriod reads from and to (YYYY-MM-DD or RFC 3339). A bare to date
// includes the whole day.
func parsePeriod(r *http.Request) (models.Period, error) {
	var p models.Period
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := parseDate("from", v)
		if err != nil {
			return p, err
		}
		p.From = t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := parseDate("to", v)
		if err != nil {
			return p, err
		}
		if len(v) == len(time.DateOnly) {
			t = t.AddDate(0, 0, 1).Add(-1)
		}
		p.To = t
	}
	return p, nil
}

func parseDate(field, s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, field+" must be a date (YYYY-MM-DD)")
	}
	return t, nil
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := h.service.Dashboard(ctx)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "dashboard", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) HandleRevenue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, err := parsePeriod(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	report, err := h.service.Revenue(ctx, period)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "revenue report", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) HandleCollectors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, err := parsePeriod(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	perf, err := h.service.Collectors(ctx, period)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "collector performance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CollectorPerformanceResponse{Collectors: perf, Total: len(perf)})
}

// HandleExport buffers the CSV so a failure can still be reported as JSON.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, err := parsePeriod(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var buf bytes.Buffer
	rows, err := h.service.Export(ctx, period, &buf)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "export collections", err)
		return
	}
	h.logger.InfoContext(ctx, "collections exported",
		"rows", rows,
		"request_id", requestcontext.RequestID(ctx),
	)
	filename := "collections-" + requestcontext.Now(ctx).Format("20060102") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
