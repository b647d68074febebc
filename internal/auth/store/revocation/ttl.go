// Package revocation keeps the jti of logged-out tokens until the token would
// have expired on its own.
package revocation

import (
	"context"
	"fmt"
	"time"

	"teamdns/pkg/platform/sentinel"
)

// Clock returns the current time.
type Clock func() time.Time

// TokenRevocationList is implemented by the memory, Redis and Postgres stores.
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
