package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"revenuehub/internal/access"
	"revenuehub/internal/geo/models"
	"revenuehub/internal/geo/service"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/httputil"
	"revenuehub/pkg/requestcontext"
)

// Service defines the district operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.District, error)
	Get(ctx context.Context, districtID id.DistrictID) (*models.District, error)
	List(ctx context.Context, filter service.ListFilter) ([]*models.District, error)
	Update(ctx context.Context, districtID id.DistrictID, u models.DistrictUpdate) (*models.District, error)
	Deactivate(ctx context.Context, districtID id.DistrictID) (*models.District, error)
	Reactivate(ctx context.Context, districtID id.DistrictID) (*models.District, error)
}

// Handler serves the /districts endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
	guard   *access.Guard
}

func New(service Service, logger *slog.Logger, guard *access.Guard) *Handler {
	return &Handler{service: service, logger: logger, guard: guard}
}

// Register mounts district routes. Each route carries its own permission guard.
func (h *Handler) Register(r chi.Router) {
	r.Route("/districts", func(r chi.Router) {
		r.With(h.guard.Require(access.PermViewAllMMDAs, access.PermEditMMDA)).Get("/", h.HandleList)
		r.With(h.guard.Require(access.PermCreateMMDA)).Post("/", h.HandleCreate)
		r.With(h.guard.Require(access.PermViewAllMMDAs, access.PermEditMMDA)).Get("/{id}", h.HandleGet)
		r.With(h.guard.Require(access.PermEditMMDA)).Put("/{id}", h.HandleUpdate)
		r.With(h.guard.Require(access.PermDeactivateMMDA)).Post("/{id}/deactivate", h.HandleDeactivate)
		r.With(h.guard.Require(access.PermDeactivateMMDA)).Post("/{id}/reactivate", h.HandleReactivate)
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateDistrictRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	d, err := h.service.Create(ctx, service.CreateInput{
		Name:         req.Name,
		Code:         req.Code,
		Region:       req.Region,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
	})
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "create district", err)
		return
	}
	h.logger.InfoContext(ctx, "district created",
		"district_id", d.ID,
		"district", d.Name,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	districts, err := h.service.List(ctx, service.ListFilter{
		Status: models.DistrictStatus(q.Get("status")),
		Region: q.Get("region"),
		Search: q.Get("search"),
	})
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "list districts", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DistrictListResponse{Districts: districts, Total: len(districts)})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	districtID, err := id.ParseDistrictID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Get(ctx, districtID)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "get district", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	districtID, err := id.ParseDistrictID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateDistrictRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	d, err := h.service.Update(ctx, districtID, req.toUpdate())
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "update district", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "deactivate district", h.service.Deactivate)
}

func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reactivate district", h.service.Reactivate)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, id.DistrictID) (*models.District, error)) {
	ctx := r.Context()
	districtID, err := id.ParseDistrictID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := fn(ctx, districtID)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, op, err)
		return
	}
	h.logger.InfoContext(ctx, op,
		"district_id", d.ID,
		"status", d.Status,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, d)
}
