package access

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "revenuehub/pkg/domain-errors"
	"revenuehub/pkg/platform/httputil"
	"revenuehub/pkg/requestcontext"
)

// DeniedRecorder counts guard rejections. *metrics.Metrics satisfies it.
type DeniedRecorder interface {
	IncrementAccessDenied(reason string)
}

// Guard builds route-level permission middleware.
type Guard struct {
	logger  *slog.Logger
	metrics DeniedRecorder
}

// NewGuard returns a Guard that logs denials to logger and counts them on
// metrics. A nil logger falls back to slog.Default; a nil metrics skips counting.
func NewGuard(logger *slog.Logger, metrics DeniedRecorder) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{logger: logger, metrics: metrics}
}

// Require lets the request through when the principal holds any of perms.
func (g *Guard) Require(perms ...Permission) func(http.Handler) http.Handler {
	return g.middleware(false, perms)
}

// RequireAll lets the request through only when the principal holds every perm.
func (g *Guard) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return g.middleware(true, perms)
}

func (g *Guard) middleware(all bool, perms []Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if err := g.check(ctx, all, perms); err != nil {
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) check(ctx context.Context, all bool, perms []Permission) error {
	p := PrincipalFrom(ctx)
	if p == nil {
		g.record("unauthenticated")
		g.logger.WarnContext(ctx, "access denied - no principal",
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !Gate(p, all, perms...) {
		g.record("forbidden")
		g.logger.WarnContext(ctx, "access denied - missing permission",
			"user_id", p.UserID,
			"role", p.Role,
			"required", joinPermissions(perms),
			"require_all", all,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.New(dErrors.CodeForbidden, "insufficient permissions")
	}
	return nil
}

func (g *Guard) record(reason string) {
	if g.metrics != nil {
		g.metrics.IncrementAccessDenied(reason)
	}
}

// Gate is the non-HTTP form of the guard. With all=false any permission
// suffices; with all=true every one is needed. super_admin always passes.
func Gate(p *Principal, all bool, perms ...Permission) bool {
	if p == nil {
		return false
	}
	m := p.Permissions()
	if all {
		return m.HasAll(perms...)
	}
	return m.HasAny(perms...)
}

// Authorize resolves the principal from ctx and checks that it holds any of
// perms. Services use it for checks that depend on the record, not the route.
func Authorize(ctx context.Context, perms ...Permission) (*Principal, error) {
	p := PrincipalFrom(ctx)
	if p == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !Gate(p, false, perms...) {
		return nil, dErrors.New(dErrors.CodeForbidden, "insufficient permissions")
	}
	return p, nil
}

func joinPermissions(perms []Permission) string {
	s := make([]string, len(perms))
	for i, p := range perms {
		s[i] = string(p)
	}
	return strings.Join(s, ",")
}
