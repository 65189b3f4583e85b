package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"revenuehub/internal/access"
	"revenuehub/internal/assignment/models"
	"revenuehub/internal/assignment/service"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/httputil"
	"revenuehub/pkg/requestcontext"
)

// Service defines the assignment operations exposed over HTTP.
type Service interface {
	Assign(ctx context.Context, in service.AssignInput) (*models.Assignment, error)
	Get(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error)
	List(ctx context.Context, filter service.ListFilter) ([]*models.Assignment, error)
	Mine(ctx context.Context) ([]*models.Assignment, error)
	Update(ctx context.Context, assignmentID id.AssignmentID, u models.AssignmentUpdate) (*models.Assignment, error)
	Delete(ctx context.Context, assignmentID id.AssignmentID) error
}

// Handler serves the /assignments endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
	guard   *access.Guard
}

func New(service Service, logger *slog.Logger, guard *access.Guard) *Handler {
	return &Handler{service: service, logger: logger, guard: guard}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/assignments", func(r chi.Router) {
		r.With(h.guard.Require(access.PermViewAssignments)).Get("/", h.HandleList)
		r.With(h.guard.Require(access.PermViewMyAssignments)).Get("/mine", h.HandleMine)
		r.With(h.guard.Require(access.PermAssignCollector)).Post("/", h.HandleAssign)
		r.With(h.guard.Require(access.PermViewAssignments, access.PermViewMyAssignments)).Get("/{id}", h.HandleGet)
		r.With(h.guard.Require(access.PermEditAssignment)).Put("/{id}", h.HandleUpdate)
		r.With(h.guard.Require(access.PermDeleteAssignment)).Delete("/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AssignCollectorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.Assign(ctx, service.AssignInput{
		CollectorID: req.collectorID,
		BusinessID:  req.businessID,
		Zone:        req.Zone,
		StartDate:   req.start,
		EndDate:     req.end,
	})
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "assign collector", err)
		return
	}
	h.logger.InfoContext(ctx, "collector assigned",
		"assignment_id", a.ID,
		"collector_id", a.CollectorID,
		"district", a.District,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	filter := service.ListFilter{ActiveOnly: q.Get("active") == "true"}
	if v := q.Get("collector_id"); v != "" {
		collectorID, err := id.ParseUserID(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.CollectorID = &collectorID
	}
	if v := q.Get("business_id"); v != "" {
		businessID, err := id.ParseBusinessID(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.BusinessID = &businessID
	}
	assignments, err := h.service.List(ctx, filter)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "list assignments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AssignmentListResponse{Assignments: assignments, Total: len(assignments)})
}

func (h *Handler) HandleMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assignments, err := h.service.Mine(ctx)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "list my assignments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AssignmentListResponse{Assignments: assignments, Total: len(assignments)})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assignmentID, err := id.ParseAssignmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.service.Get(ctx, assignmentID)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "get assignment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	assignmentID, err := id.ParseAssignmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateAssignmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.Update(ctx, assignmentID, req.update)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "update assignment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assignmentID, err := id.ParseAssignmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, assignmentID); err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "delete assignment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
