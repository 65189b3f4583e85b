package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"revenuehub/internal/access"
	"revenuehub/internal/revenue/models"
	"revenuehub/internal/revenue/service"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/httputil"
	"revenuehub/pkg/requestcontext"
)

// Service defines the revenue type operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.RevenueType, error)
	Get(ctx context.Context, revenueTypeID id.RevenueTypeID) (*models.RevenueType, error)
	List(ctx context.Context, filter service.ListFilter) ([]*models.RevenueType, error)
	Update(ctx context.Context, revenueTypeID id.RevenueTypeID, u models.RevenueTypeUpdate) (*models.RevenueType, error)
	Delete(ctx context.Context, revenueTypeID id.RevenueTypeID) error
}

// Handler serves the /revenue-types endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
	guard   *access.Guard
}

func New(service Service, logger *slog.Logger, guard *access.Guard) *Handler {
	return &Handler{service: service, logger: logger, guard: guard}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/revenue-types", func(r chi.Router) {
		r.With(h.guard.Require(access.PermViewRevenueTypes)).Get("/", h.HandleList)
		r.With(h.guard.Require(access.PermCreateRevenueType)).Post("/", h.HandleCreate)
		r.With(h.guard.Require(access.PermViewRevenueTypes)).Get("/{id}", h.HandleGet)
		r.With(h.guard.Require(access.PermEditRevenueType)).Put("/{id}", h.HandleUpdate)
		r.With(h.guard.Require(access.PermDeleteRevenueType)).Delete("/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRevenueTypeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	rt, err := h.service.Create(ctx, service.CreateInput{
		Code:          req.Code,
		Name:          req.Name,
		DefaultAmount: *req.DefaultAmount,
		Frequency:     models.Frequency(req.Frequency),
		Description:   req.Description,
		Category:      models.Category(req.Category),
		District:      req.District,
	})
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "create revenue type", err)
		return
	}
	h.logger.InfoContext(ctx, "revenue type created",
		"revenue_type_id", rt.ID,
		"code", rt.Code,
		"district", rt.District,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusCreated, rt)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	types, err := h.service.List(ctx, service.ListFilter{
		ActiveOnly: q.Get("active") == "true",
		Category:   models.Category(q.Get("category")),
		Frequency:  models.Frequency(q.Get("frequency")),
		Search:     q.Get("search"),
	})
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "list revenue types", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RevenueTypeListResponse{RevenueTypes: types, Total: len(types)})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	revenueTypeID, err := id.ParseRevenueTypeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rt, err := h.service.Get(ctx, revenueTypeID)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "get revenue type", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rt)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	revenueTypeID, err := id.ParseRevenueTypeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateRevenueTypeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	rt, err := h.service.Update(ctx, revenueTypeID, req.update)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "update revenue type", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rt)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	revenueTypeID, err := id.ParseRevenueTypeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, revenueTypeID); err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "delete revenue type", err)
		return
	}
	h.logger.InfoContext(ctx, "revenue type deleted",
		"revenue_type_id", revenueTypeID,
		"request_id", requestcontext.RequestID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}
