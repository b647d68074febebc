package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"teamdns/internal/auth/device"
	authhandler "teamdns/internal/auth/handler"
	authservice "teamdns/internal/auth/service"
	dnshandler "teamdns/internal/dns/handler"
	dnsservice "teamdns/internal/dns/service"
	httpapi "teamdns/internal/http"
	jwttoken "teamdns/internal/jwt_token"
	"teamdns/internal/platform/config"
	"teamdns/internal/platform/httpserver"
	"teamdns/internal/platform/logger"
	"teamdns/internal/platform/metrics"
	teamhandler "teamdns/internal/team/handler"
	"teamdns/internal/team/registry"
	teamservice "teamdns/internal/team/service"
)

// main wires storage, the registrar chain and the HTTP surface, then serves
// until SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New("teamdns", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := openInfrastructure(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialise storage", "error", err)
		os.Exit(1)
	}
	defer infra.Close()

	go infra.purgeRevocations(ctx, revocationPurge, log)

	m := metrics.New()

	emitter, closeAudit, err := buildAudit(ctx, cfg, infra, log)
	if err != nil {
		log.Error("failed to initialise audit sink", "error", err)
		os.Exit(1)
	}
	defer closeAudit()

	gateway, err := buildRegistrar(cfg, m, log)
	if err != nil {
		log.Error("failed to initialise registrar", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTokenTTL)
	auth, err := authservice.New(infra.users, jwtService, infra.revocations,
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(emitter),
		authservice.WithMetrics(m),
		authservice.WithDeviceService(device.NewService(cfg.DeviceTracking)),
	)
	if err != nil {
		log.Error("failed to initialise auth service", "error", err)
		os.Exit(1)
	}

	reg := registry.New(infra.teams, auth, registry.WithDomainCounter(infra.domains))
	teams := teamservice.New(reg,
		teamservice.WithLogger(log),
		teamservice.WithAuditPublisher(emitter),
		teamservice.WithMetrics(m),
	)
	dns, err := dnsservice.New(infra.domains, reg, gateway,
		dnsservice.WithLogger(log),
		dnsservice.WithAuditPublisher(emitter),
		dnsservice.WithMetrics(m),
	)
	if err != nil {
		log.Error("failed to initialise dns service", "error", err)
		os.Exit(1)
	}

	router := httpapi.NewRouter(httpapi.Dependencies{
		Logger:         log,
		Metrics:        m,
		RequestTimeout: cfg.RequestTimeout,
		Tokens:         jwttoken.NewJWTServiceAdapter(jwtService),
		Revocations:    auth,
		RateLimiter:    buildRateLimiter(cfg, infra, m, log),
		Auth:           authhandler.New(auth, log),
		Teams:          teamhandler.New(teams, log),
		DNS:            dnshandler.New(dns, log),
		HealthChecks:   infra.healthChecks(),
	})

	srv := httpserver.New(cfg.Addr, router, cfg.RequestTimeout, log)
	log.Info("teamdns starting",
		"addr", cfg.Addr,
		"registrar_mode", cfg.Registrar.Mode,
		"postgres", infra.db != nil,
		"redis", infra.redis != nil,
	)
	if err := httpserver.Run(ctx, srv, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
