package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	upsertRevocation = `INSERT INTO token_revocations (jti, expires_at) VALUES ($1, $2)
ON CONFLICT (jti) DO UPDATE SET expires_at = GREATEST(token_revocations.expires_at, EXCLUDED.expires_at)`
	activeRevocation = `SELECT EXISTS (SELECT 1 FROM token_revocations WHERE jti = $1 AND expires_at > $2)`
	purgeRevocations = `DELETE FROM token_revocations WHERE expires_at <= $1`
)

// PostgresTRL is used when Redis is not configured but a database is.
// Expired rows are ignored on read and removed by PurgeExpired.
type PostgresTRL struct {
	db    *sql.DB
	clock Clock
}

type PostgresTRLOption func(*PostgresTRL)

func WithPostgresClock(clock Clock) PostgresTRLOption {
	return func(trl *PostgresTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

func NewPostgresTRL(db *sql.DB, opts ...PostgresTRLOption) *PostgresTRL {
	trl := &PostgresTRL{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(trl)
	}
	return trl
}

func (t *PostgresTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx, upsertRevocation, jti, t.clock().Add(ttl)); err != nil {
		return fmt.Errorf("revoke %s: %w", jti, err)
	}
	return nil
}

func (t *PostgresTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	var active bool
	if err := t.db.QueryRowContext(ctx, activeRevocation, jti, t.clock()).Scan(&active); err != nil {
		return false, fmt.Errorf("lookup %s: %w", jti, err)
	}
	return active, nil
}

// PurgeExpired returns the number of rows removed.
func (t *PostgresTRL) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, purgeRevocations, t.clock())
	if err != nil {
		return 0, fmt.Errorf("purge revocations: %w", err)
	}
	return res.RowsAffected()
}
