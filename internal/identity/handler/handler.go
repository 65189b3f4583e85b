package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"revenuehub/internal/access"
	"revenuehub/internal/identity/models"
	"revenuehub/internal/identity/service"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/httputil"
	"revenuehub/pkg/requestcontext"
)

// Service defines the identity operations exposed over HTTP.
type Service interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	ChangePassword(ctx context.Context, current, next string) error
	CreateUser(ctx context.Context, in service.CreateUserInput) (*service.CreatedUser, error)
	ListUsers(ctx context.Context, filter service.ListFilter) ([]*models.User, error)
	ChangeStatus(ctx context.Context, userID id.UserID, status models.UserStatus) (*models.User, error)
	ChangeRole(ctx context.Context, userID id.UserID, role id.Role) (*models.User, error)
}

// Handler serves authentication, profile and user administration endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
	guard   *access.Guard
}

func New(service Service, logger *slog.Logger, guard *access.Guard) *Handler {
	return &Handler{service: service, logger: logger, guard: guard}
}

// RegisterPublic mounts the routes reachable without a token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
}

// Register mounts the authenticated routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.With(h.guard.Require(access.PermViewOwnProfile)).Get("/me", h.HandleMe)
	r.With(h.guard.Require(access.PermChangePassword)).Post("/me/password", h.HandleChangePassword)
	r.Route("/users", func(r chi.Router) {
		r.With(h.guard.Require(access.PermViewUsers)).Get("/", h.HandleListUsers)
		r.With(h.guard.Require(access.PermManageUsers)).Post("/", h.HandleCreateUser)
		r.With(h.guard.Require(access.PermManageUsers)).Patch("/{id}/status", h.HandleChangeStatus)
		r.With(h.guard.Require(access.PermAssignRoles)).Patch("/{id}/role", h.HandleChangeRole)
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "login", err)
		return
	}
	h.logger.InfoContext(ctx, "user logged in",
		"user_id", res.User.ID,
		"role", res.User.Role,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Logout(ctx); err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.service.Me(ctx)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "get profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ChangePasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.ChangePassword(ctx, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "change password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	users, err := h.service.ListUsers(ctx, service.ListFilter{
		Role:   id.Role(q.Get("role")),
		Status: models.UserStatus(q.Get("status")),
		Search: q.Get("search"),
	})
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "list users", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, UserListResponse{Users: users, Total: len(users)})
}

func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	created, err := h.service.CreateUser(ctx, service.CreateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.role,
		District: req.District,
		Region:   req.Region,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "create user", err)
		return
	}
	h.logger.InfoContext(ctx, "user created",
		"user_id", created.User.ID,
		"role", created.User.Role,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangeStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	u, err := h.service.ChangeStatus(ctx, userID, req.status)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "change user status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangeRoleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	u, err := h.service.ChangeRole(ctx, userID, req.role)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "change user role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}
