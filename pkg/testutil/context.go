package testutil

import (
	"net/http"

	id "revenuehub/pkg/domain"
	"revenuehub/pkg/requestcontext"
)

// Principal describes the authenticated caller a handler test simulates.
type Principal struct {
	UserID   id.UserID
	Role     id.Role
	District string
	Region   string
}

// WithPrincipal attaches the principal to the request the way the auth
// middleware would.
func WithPrincipal(req *http.Request, p Principal) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), p.UserID, p.Role, p.District, p.Region)
	return req.WithContext(ctx)
}

// WithRequestID sets a fixed request ID so log assertions are stable.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
