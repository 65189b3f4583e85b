package access

import (
	"context"

	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
	"revenuehub/pkg/requestcontext"
)

// Principal is the authenticated caller: who they are, what role they hold
// and where their jurisdiction lies.
type Principal struct {
	UserID   id.UserID
	Role     id.Role
	District string
	Region   string
}

// PrincipalFrom reads the principal placed on ctx by the auth middleware.
// It returns nil when the request is unauthenticated.
func PrincipalFrom(ctx context.Context) *Principal {
	userID := requestcontext.UserID(ctx)
	role := requestcontext.Role(ctx)
	if userID.IsNil() || role == "" {
		return nil
	}
	return &Principal{
		UserID:   userID,
		Role:     role,
		District: requestcontext.District(ctx),
		Region:   requestcontext.Region(ctx),
	}
}

// Permissions returns the permission manager for the principal's role. A nil
// principal has no permissions.
func (p *Principal) Permissions() Manager {
	if p == nil {
		return NewManager("")
	}
	return NewManager(p.Role)
}

// Can reports whether the principal's role holds perm. A nil principal holds nothing.
func (p *Principal) Can(perm Permission) bool {
	return p.Permissions().HasPermission(perm)
}

// CanAny reports whether the principal's role holds at least one of perms.
func (p *Principal) CanAny(perms ...Permission) bool {
	return p.Permissions().HasAny(perms...)
}

// ResolveScope returns the caller and its jurisdiction, or unauthorized when
// the context carries no principal.
func ResolveScope(ctx context.Context, regions RegionResolver) (*Principal, Scope, error) {
	p := PrincipalFrom(ctx)
	if p == nil {
		return nil, Scope{Kind: ScopeNone}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return p, ScopeFor(p, regions), nil
}
