package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	authservice "teamdns/internal/auth/service"
	"teamdns/internal/auth/store/revocation"
	userstore "teamdns/internal/auth/store/user"
	"teamdns/internal/credentials"
	dnsservice "teamdns/internal/dns/service"
	dnsstore "teamdns/internal/dns/store"
	httpapi "teamdns/internal/http"
	"teamdns/internal/platform/config"
	"teamdns/internal/platform/metrics"
	"teamdns/internal/platform/postgres"
	"teamdns/internal/platform/redis"
	ratelimit "teamdns/internal/ratelimit/middleware"
	rlmodels "teamdns/internal/ratelimit/models"
	ratestore "teamdns/internal/ratelimit/store"
	"teamdns/internal/registrar"
	"teamdns/internal/registrar/fake"
	"teamdns/internal/registrar/namecom"
	"teamdns/internal/team/registry"
	teamstore "teamdns/internal/team/store"
	"teamdns/pkg/platform/audit"
	"teamdns/pkg/platform/audit/publisher"
	auditkafka "teamdns/pkg/platform/audit/store/kafka"
	auditmemory "teamdns/pkg/platform/audit/store/memory"
	auditpostgres "teamdns/pkg/platform/audit/store/postgres"
	"teamdns/pkg/platform/circuit"
)

const (
	auditBufferSize   = 1024
	readRetryBackoff  = 200 * time.Millisecond
	registrarBreaker  = "registrar"
	startupPingBudget = 10 * time.Second
	revocationPurge   = 10 * time.Minute
)

type domainStore interface {
	dnsservice.Store
	registry.DomainCounter
}

// infrastructure holds the stores chosen by configuration: Postgres when
// DATABASE_URL is set, Redis for revocations when REDIS_URL is set, memory
// otherwise.
type infrastructure struct {
	db    *sql.DB
	redis *redis.Client

	users       authservice.UserStore
	revocations authservice.RevocationList
	teams       registry.Store
	domains     domainStore
}

func openInfrastructure(ctx context.Context, cfg config.Server, log *slog.Logger) (*infrastructure, error) {
	pingCtx, cancel := context.WithTimeout(ctx, startupPingBudget)
	defer cancel()

	infra := &infrastructure{}
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(pingCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(pingCtx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		infra.db = db
		infra.users = userstore.NewPostgres(db)
		infra.teams = teamstore.NewPostgres(db)
		infra.domains = dnsstore.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		infra.users = userstore.New()
		teams := teamstore.NewInMemory()
		infra.teams = teams
		infra.domains = dnsstore.NewInMemory(dnsstore.WithTeamGuard(teams))
	}

	client, err := redis.New(pingCtx, cfg.Redis)
	if err != nil {
		infra.Close()
		return nil, err
	}
	switch {
	case client != nil:
		infra.redis = client
		infra.revocations = revocation.NewRedisTRL(client.Client)
	case infra.db != nil:
		infra.revocations = revocation.NewPostgresTRL(infra.db)
	default:
		infra.revocations = revocation.NewInMemoryTRL(nil)
	}
	return infra, nil
}

// purgeRevocations trims expired rows from a Postgres revocation list until
// ctx is done. Redis and memory lists expire entries on their own.
func (i *infrastructure) purgeRevocations(ctx context.Context, every time.Duration, log *slog.Logger) {
	trl, ok := i.revocations.(*revocation.PostgresTRL)
	if !ok {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := trl.PurgeExpired(ctx)
			if err != nil {
				log.WarnContext(ctx, "failed to purge expired revocations", "error", err)
				continue
			}
			if n > 0 {
				log.InfoContext(ctx, "purged expired revocations", "count", n)
			}
		}
	}
}

func (i *infrastructure) healthChecks() map[string]httpapi.HealthCheck {
	checks := make(map[string]httpapi.HealthCheck)
	if i.db != nil {
		checks["postgres"] = i.db.PingContext
	}
	if i.redis != nil {
		checks["redis"] = i.redis.Health
	}
	return checks
}

func (i *infrastructure) Close() {
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

// buildAudit picks Kafka, then Postgres, then memory, behind an async
// publisher. The returned func drains the buffer before closing the sink.
func buildAudit(ctx context.Context, cfg config.Server, infra *infrastructure, log *slog.Logger) (audit.Emitter, func(), error) {
	var (
		store   audit.Store
		closeFn = func() {}
	)
	switch {
	case len(cfg.Audit.Brokers) > 0:
		ks, err := auditkafka.New(ctx, cfg.Audit.Brokers, cfg.Audit.Topic)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = ks, ks.Close
	case infra.db != nil:
		store = auditpostgres.New(infra.db)
	default:
		store = auditmemory.NewInMemoryStore()
	}

	pub := publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)
	return pub, func() {
		pub.Close()
		closeFn()
	}, nil
}

// buildRegistrar returns the decorated gateway:
// instrumentation -> circuit breaker -> read retries -> backend.
func buildRegistrar(cfg config.Server, m *metrics.Metrics, log *slog.Logger) (registrar.Gateway, error) {
	var backend registrar.Gateway
	switch cfg.Registrar.Mode {
	case config.RegistrarModeFake:
		f := fake.New()
		for _, name := range cfg.Registrar.FakeDomains {
			f.AddDomain(name)
		}
		log.Warn("using in-process fake registrar", "domains", len(cfg.Registrar.FakeDomains))
		backend = f
	case config.RegistrarModeNameCom:
		creds, err := buildCredentials(cfg, log)
		if err != nil {
			return nil, err
		}
		client, err := namecom.New(cfg.Registrar.BaseURL, creds,
			namecom.WithTimeout(cfg.Registrar.Timeout),
			namecom.WithLogger(log),
		)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown REGISTRAR_MODE %q", cfg.Registrar.Mode)
	}

	breaker := circuit.New(registrarBreaker,
		circuit.WithFailureThreshold(cfg.Registrar.BreakerFailures),
		circuit.WithCooldown(cfg.Registrar.BreakerCooldown),
	)
	gw := registrar.WithRetry(backend, cfg.Registrar.ReadRetries, readRetryBackoff, log)
	gw = registrar.WithCircuitBreaker(gw, breaker, m, log)
	return registrar.WithInstrumentation(gw, m, nil), nil
}

// buildCredentials prefers Vault and falls back to NAMECOM_* variables.
func buildCredentials(cfg config.Server, log *slog.Logger) (credentials.Provider, error) {
	if cfg.Vault.Addr == "" {
		if cfg.Registrar.APIToken == "" {
			return nil, errors.New("registrar credentials missing: set VAULT_ADDR or NAMECOM_API_TOKEN")
		}
		log.Warn("VAULT_ADDR not set, reading registrar credentials from environment")
		return credentials.NewStatic(cfg.Registrar.Username, cfg.Registrar.APIToken), nil
	}
	v, err := credentials.NewVault(credentials.VaultConfig{
		Addr:       cfg.Vault.Addr,
		Token:      cfg.Vault.Token,
		Mount:      cfg.Vault.Mount,
		SecretPath: cfg.Vault.SecretPath,
	})
	if err != nil {
		return nil, err
	}
	return credentials.NewCached(v, cfg.Vault.CacheTTL), nil
}

// buildRateLimiter shares windows through Redis when it is configured.
func buildRateLimiter(cfg config.Server, infra *infrastructure, m *metrics.Metrics, log *slog.Logger) *ratelimit.Middleware {
	var store ratelimit.Store = ratestore.NewInMemory()
	if infra.redis != nil {
		store = ratestore.NewRedis(infra.redis.Client)
	}
	return ratelimit.New(store, log,
		ratelimit.WithDisabled(!cfg.RateLimit.Enabled),
		ratelimit.WithMetrics(m),
		ratelimit.WithLimit(rlmodels.ClassAuth, rlmodels.Limit{Requests: cfg.RateLimit.AuthPerMinute, Window: time.Minute}),
		ratelimit.WithLimit(rlmodels.ClassRead, rlmodels.Limit{Requests: cfg.RateLimit.ReadPerMinute, Window: time.Minute}),
		ratelimit.WithLimit(rlmodels.ClassWrite, rlmodels.Limit{Requests: cfg.RateLimit.WritePerMinute, Window: time.Minute}),
	)
}
