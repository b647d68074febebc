// Package credentials retrieves registrar API credentials from Vault KV v2,
// with a static provider for local runs and a caching wrapper that
// collapses concurrent lookups.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Credentials authenticate calls to the registrar API.
type Credentials struct {
	Username string
	APIToken string
}

// String never prints the token.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username:%q, APIToken:<redacted>}", c.Username)
}

// Provider returns the current registrar credentials.
type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

var (
	// ErrNotFound means the secret path does not exist.
	ErrNotFound = errors.New("credentials not found")
	// ErrIncomplete means the secret exists but lacks the token.
	ErrIncomplete = errors.New("credentials incomplete")
)

// Error carries the secret path of a failed lookup. Err is ErrNotFound,
// ErrIncomplete or the store failure.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("credentials at %q: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Static serves fixed credentials, typically from the environment.
type Static struct {
	creds Credentials
}

func NewStatic(username, apiToken string) *Static {
	return &Static{creds: Credentials{Username: username, APIToken: apiToken}}
}

func (s *Static) Credentials(context.Context) (Credentials, error) {
	if s.creds.APIToken == "" {
		return Credentials{}, &Error{Path: "env:NAMECOM_API_TOKEN", Err: ErrNotFound}
	}
	return s.creds, nil
}

const fetchTimeout = 10 * time.Second

// Cached keeps the last good credentials for ttl. Concurrent misses share
// one upstream lookup.
type Cached struct {
	next    Provider
	ttl     time.Duration
	timeout time.Duration
	clock   func() time.Time

	mu        sync.RWMutex
	creds     Credentials
	fetchedAt time.Time
	group     singleflight.Group
}

func NewCached(next Provider, ttl time.Duration) *Cached {
	return &Cached{next: next, ttl: ttl, timeout: fetchTimeout, clock: time.Now}
}

func (c *Cached) Credentials(ctx context.Context) (Credentials, error) {
	c.mu.RLock()
	creds, fetchedAt := c.creds, c.fetchedAt
	c.mu.RUnlock()
	if !fetchedAt.IsZero() && c.clock().Sub(fetchedAt) < c.ttl {
		return creds, nil
	}

	// The shared lookup outlives any single caller's cancellation.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	v, err, _ := c.group.Do("credentials", func() (any, error) {
		fresh, err := c.next.Credentials(fetchCtx)
		if err != nil {
			return Credentials{}, err
		}
		c.mu.Lock()
		c.creds = fresh
		c.fetchedAt = c.clock()
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return Credentials{}, err
	}
	return v.(Credentials), nil
}

// Invalidate drops the cached value so the next call refetches. The
// registrar client calls it when the token is rejected.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
