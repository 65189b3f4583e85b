package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"revenuehub/internal/access"
	"revenuehub/internal/business/models"
	"revenuehub/internal/business/service"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/httputil"
	"revenuehub/pkg/requestcontext"
)

// Service defines the business registry operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.Business, error)
	Get(ctx context.Context, businessID id.BusinessID) (*models.Business, error)
	List(ctx context.Context, filter service.ListFilter) ([]*models.Business, error)
	Mine(ctx context.Context) ([]*models.Business, error)
	Update(ctx context.Context, businessID id.BusinessID, u models.BusinessUpdate) (*models.Business, error)
	Delete(ctx context.Context, businessID id.BusinessID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
	guard   *access.Guard
}

func New(service Service, logger *slog.Logger, guard *access.Guard) *Handler {
	return &Handler{service: service, logger: logger, guard: guard}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/businesses", func(r chi.Router) {
		r.With(h.guard.Require(access.PermViewBusiness)).Get("/", h.HandleList)
		r.With(h.guard.Require(access.PermViewMyBusiness)).Get("/mine", h.HandleMine)
		r.With(h.guard.Require(access.PermRegisterBusiness)).Post("/", h.HandleRegister)
		r.With(h.guard.Require(access.PermViewBusiness, access.PermViewMyBusiness)).Get("/{id}", h.HandleGet)
		r.With(h.guard.Require(access.PermEditBusiness)).Put("/{id}", h.HandleUpdate)
		r.With(h.guard.Require(access.PermDeleteBusiness)).Delete("/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterBusinessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	b, err := h.service.Register(ctx, service.RegisterInput{
		Name:            req.Name,
		OwnerName:       req.OwnerName,
		OwnerUserID:     req.ownerID,
		Category:        req.Category,
		Phone:           req.Phone,
		Email:           req.Email,
		GPSLocation:     req.GPSLocation,
		PhysicalAddress: req.PhysicalAddress,
		License:         req.License,
		TIN:             req.TIN,
		District:        req.District,
		Status:          req.status,
	})
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "register business", err)
		return
	}
	h.logger.InfoContext(ctx, "business registered",
		"business_id", b.ID,
		"business_code", b.Code,
		"district", b.District,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	businesses, err := h.service.List(ctx, service.ListFilter{
		Status:   models.BusinessStatus(q.Get("status")),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "list businesses", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BusinessListResponse{Businesses: businesses, Total: len(businesses)})
}

func (h *Handler) HandleMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	businesses, err := h.service.Mine(ctx)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "list my businesses", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BusinessListResponse{Businesses: businesses, Total: len(businesses)})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	businessID, err := id.ParseBusinessID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	b, err := h.service.Get(ctx, businessID)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "get business", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	businessID, err := id.ParseBusinessID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateBusinessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	b, err := h.service.Update(ctx, businessID, req.update)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "update business", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	businessID, err := id.ParseBusinessID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, businessID); err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "delete business", err)
		return
	}
	h.logger.InfoContext(ctx, "business deleted",
		"business_id", businessID,
		"request_id", requestcontext.RequestID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}
