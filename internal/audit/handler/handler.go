package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"revenuehub/internal/access"
	"revenuehub/internal/audit/service"
	dErrors "revenuehub/pkg/domain-errors"
	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/platform/httputil"
)

type Service interface {
	Search(ctx context.Context, f service.SearchFilter) ([]audit.Event, error)
}

// Handler serves GET /audit-logs.
type Handler struct {
	service Service
	logger  *slog.Logger
	guard   *access.Guard
}

func New(service Service, logger *slog.Logger, guard *access.Guard) *Handler {
	return &Handler{service: service, logger: logger, guard: guard}
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.guard.Require(access.PermViewAuditLogs, access.PermSearchLogs)).Get("/audit-logs", h.HandleSearch)
}

type AuditLogResponse struct {
	Events []audit.Event `json:"events"`
	Total  int           `json:"total"`
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.service.Search(ctx, filter)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "search audit logs", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AuditLogResponse{Events: events, Total: len(events)})
}

func parseFilter(r *http.Request) (service.SearchFilter, error) {
	q := r.URL.Query()
	f := service.SearchFilter{
		Action:     audit.Action(q.Get("action")),
		ActorID:    q.Get("actor_id"),
		EntityType: q.Get("entity_type"),
		Search:     q.Get("search"),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, dErrors.New(dErrors.CodeValidation, "from must be an RFC 3339 timestamp")
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, dErrors.New(dErrors.CodeValidation, "to must be an RFC 3339 timestamp")
		}
		f.To = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
		}
		f.Limit = n
	}
	return f, nil
}
