package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "teamdns:revoked:"

var lookupSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "teamdns_revocation_lookup_seconds",
	Help:    "Time spent asking Redis whether a token id was revoked",
	Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025},
}, []string{"outcome"})

// RedisTRL shares revocations across instances. Keys expire with the token.
type RedisTRL struct {
	client *redis.Client
}

func NewRedisTRL(client *redis.Client) *RedisTRL {
	return &RedisTRL{client: client}
}

func revokedKey(jti string) string { return keyPrefix + jti }

func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if err := t.client.Set(ctx, revokedKey(jti), t.now(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke %s: %w", jti, err)
	}
	return nil
}

func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	start := time.Now()
	n, err := t.client.Exists(ctx, revokedKey(jti)).Result()
	outcome := "miss"
	switch {
	case err != nil:
		outcome = "error"
	case n > 0:
		outcome = "hit"
	}
	lookupSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", jti, err)
	}
	return n > 0, nil
}

// now is stored as the value so operators can see when a token was revoked.
func (t *RedisTRL) now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
