// Package revocation keeps the list of access token ids revoked at logout.
// Entries live only as long as the token they revoke.
package revocation

import (
	"context"
	"fmt"
	"time"

	"revenuehub/pkg/platform/sentinel"
)

// List is a token revocation list.
type List interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Clock returns the current time.
type Clock func() time.Time

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}

// Checker adapts a List to the auth middleware's revocation check.
type Checker struct {
	list List
}

func NewChecker(list List) *Checker {
	return &Checker{list: list}
}

func (c *Checker) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return c.list.IsRevoked(ctx, jti)
}
