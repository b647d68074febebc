package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "teamdns/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	JWTSigningKey  string
	JWTIssuer      string
	AccessTokenTTL time.Duration
	LogLevel       string
	RequestTimeout time.Duration

	DatabaseURL string
	Redis       RedisConfig
	Vault       VaultConfig
	Registrar   RegistrarConfig
	Audit       AuditConfig
	RateLimit   RateLimitConfig

	// DeviceTracking enriches login audit events with the parsed user agent.
	DeviceTracking bool
}

// RedisConfig backs the token revocation list. Empty URL keeps revocations in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// VaultConfig locates the registrar credentials. Empty Addr falls back to env credentials.
type VaultConfig struct {
	Addr       string
	Token      string
	Mount      string
	SecretPath string
	CacheTTL   time.Duration
}

type RegistrarConfig struct {
	Mode        string // "namecom" or "fake"
	BaseURL     string
	Username    string
	APIToken    string
	Timeout     time.Duration
	ReadRetries int
	// Consecutive transient failures before the breaker opens.
	BreakerFailures int
	BreakerCooldown time.Duration
	// FakeDomains seeds the in-process registrar in fake mode.
	FakeDomains []string
}

// AuditConfig selects the audit sink. Empty Brokers keeps audit in-process.
type AuditConfig struct {
	Brokers []string
	Topic   string
}

// RateLimitConfig holds per-minute budgets. Backed by Redis when configured.
type RateLimitConfig struct {
	Enabled        bool
	AuthPerMinute  int
	ReadPerMinute  int
	WritePerMinute int
}

const (
	RegistrarModeNameCom = "namecom"
	RegistrarModeFake    = "fake"
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:           GetString("SERVER_ADDR", ":8080"),
		JWTSigningKey:  GetString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:      GetString("JWT_ISSUER", "teamdns"),
		AccessTokenTTL: time.Duration(GetInt("ACCESS_TOKEN_TTL_MINUTES", 30)) * time.Minute,
		LogLevel:       GetString("LOG_LEVEL", "info"),
		RequestTimeout: time.Duration(GetInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,

		DatabaseURL: GetString("DATABASE_URL", ""),
		Redis: RedisConfig{
			URL:          GetString("REDIS_URL", ""),
			PoolSize:     GetInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: GetInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Vault: VaultConfig{
			Addr:       GetString("VAULT_ADDR", ""),
			Token:      GetString("VAULT_TOKEN", ""),
			Mount:      GetString("VAULT_MOUNT", "secret"),
			SecretPath: GetString("VAULT_SECRET_PATH", "teamdns/namecom"),
			CacheTTL:   time.Duration(GetInt("VAULT_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Registrar: RegistrarConfig{
			Mode:        GetString("REGISTRAR_MODE", RegistrarModeNameCom),
			BaseURL:     GetString("NAMECOM_BASE_URL", "https://api.name.com/v4"),
			Username:    GetString("NAMECOM_USERNAME", ""),
			APIToken:    GetString("NAMECOM_API_TOKEN", ""),
			Timeout:     time.Duration(GetInt("REGISTRAR_TIMEOUT_SECONDS", 10)) * time.Second,
			ReadRetries: GetInt("REGISTRAR_READ_RETRIES", 2),

			BreakerFailures: GetInt("REGISTRAR_BREAKER_FAILURES", 5),
			BreakerCooldown: time.Duration(GetInt("REGISTRAR_BREAKER_COOLDOWN_SECONDS", 30)) * time.Second,
			FakeDomains:     strutil.DedupeFold(GetList("FAKE_REGISTRAR_DOMAINS")),
		},
		Audit: AuditConfig{
			Brokers: GetList("KAFKA_BROKERS"),
			Topic:   GetString("AUDIT_TOPIC", "teamdns.audit"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        GetBool("RATE_LIMIT_ENABLED", true),
			AuthPerMinute:  GetInt("RATE_LIMIT_AUTH_PER_MINUTE", 10),
			ReadPerMinute:  GetInt("RATE_LIMIT_READ_PER_MINUTE", 300),
			WritePerMinute: GetInt("RATE_LIMIT_WRITE_PER_MINUTE", 60),
		},
		DeviceTracking: GetBool("DEVICE_TRACKING_ENABLED", true),
	}
}

// GetString retrieves an environment variable or returns a fallback when unset or empty.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetBool parses strconv.ParseBool spellings; anything else yields fallback.
func GetBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetList splits a comma-separated variable, dropping blanks and repeats.
func GetList(key string) []string {
	return strutil.SplitList(os.Getenv(key))
}
