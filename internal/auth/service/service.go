package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,TokenIssuer,RevocationList

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"teamdns/internal/auth/device"
	"teamdns/internal/auth/models"
	userstore "teamdns/internal/auth/store/user"
	jwttoken "teamdns/internal/jwt_token"
	"teamdns/internal/platform/metrics"
	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
	"teamdns/pkg/platform/audit"
	"teamdns/pkg/platform/sentinel"
	"teamdns/pkg/requestcontext"
)

type UserStore interface {
	CreateIfAvailable(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Execute(ctx context.Context, userID id.UserID, mutate func(*models.User) error) (*models.User, error)
}

type TokenIssuer interface {
	IssueToken(userID id.UserID, username string) (string, *jwttoken.Claims, error)
	TTL() time.Duration
}

type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service is the user directory: registration, credential checks, token
// issuance and revocation.
type Service struct {
	users          UserStore
	tokens         TokenIssuer
	revocations    RevocationList
	logger         *slog.Logger
	auditPublisher audit.Emitter
	metrics        *metrics.Metrics
	device         *device.Service
	bcryptCost     int
	dummyHash      []byte
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Emitter) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithDeviceService(d *device.Service) Option {
	return func(s *Service) {
		s.device = d
	}
}

// WithBcryptCost lowers the hash cost in tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

func New(users UserStore, tokens TokenIssuer, revocations RevocationList, opts ...Option) (*Service, error) {
	s := &Service{
		users:       users,
		tokens:      tokens,
		revocations: revocations,
		bcryptCost:  bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.device == nil {
		s.device = device.NewService(true)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	s.dummyHash = hash
	return s, nil
}

// Register creates an active user. Username conflicts win over email conflicts.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	user := &models.User{
		ID:           id.NewUserID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateIfAvailable(ctx, user); err != nil {
		switch {
		case errors.Is(err, userstore.ErrUsernameTaken):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "username already registered")
		case errors.Is(err, userstore.ErrEmailTaken):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "email already registered")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
		}
	}

	s.incrementUsersRegistered()
	s.logAudit(ctx, audit.EventUserRegistered,
		"user_id", user.ID.String(),
		"username", user.Username,
	)
	return user, nil
}

// Authenticate checks credentials. Unknown users and wrong passwords return
// the same error; inactive accounts are reported separately.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		// Burn a comparison so unknown usernames cost the same as known ones.
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, s.authFailed(ctx, username, "unknown_user", ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, s.authFailed(ctx, username, "wrong_password", ErrInvalidCredentials)
	}
	if !user.IsActive {
		return nil, s.authFailed(ctx, username, "inactive_account", ErrInactiveAccount)
	}
	return user, nil
}

func (s *Service) authFailed(ctx context.Context, username, reason string, cause error) error {
	s.incrementLoginAttempt("failure")
	s.logAudit(ctx, audit.EventAuthFailed,
		"username", username,
		"reason", reason,
	)
	if errors.Is(cause, ErrInactiveAccount) {
		return dErrors.Wrap(cause, dErrors.CodeUnauthorized, "account is inactive")
	}
	return dErrors.Wrap(cause, dErrors.CodeUnauthorized, "invalid username or password")
}

// Login authenticates and issues an access token.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	token, claims, err := s.tokens.IssueToken(user.ID, user.Username)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.incrementLoginAttempt("success")
	userAgent := requestcontext.UserAgent(ctx)
	s.logAudit(ctx, audit.EventLoginSucceeded,
		"user_id", user.ID.String(),
		"jti", claims.ID,
		"device", device.ParseUserAgent(userAgent),
		"device_fingerprint", s.device.ComputeFingerprint(userAgent),
	)
	return &models.LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	}, nil
}

func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.lookup(s.users.FindByID(ctx, userID))
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.lookup(s.users.FindByUsername(ctx, username))
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.lookup(s.users.FindByEmail(ctx, email))
}

func (s *Service) lookup(user *models.User, err error) (*models.User, error) {
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// Logout revokes the presented token until it would have expired.
func (s *Service) Logout(ctx context.Context, userID id.UserID, jti string, expiresAt time.Time) error {
	if err := s.revoke(ctx, jti, expiresAt); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventTokenRevoked,
		"user_id", userID.String(),
		"jti", jti,
		"reason", "logout",
	)
	return nil
}

// Deactivate marks the principal inactive and revokes the presented token.
// Other outstanding tokens stay valid until expiry; login is refused from now on.
func (s *Service) Deactivate(ctx context.Context, userID id.UserID, jti string, expiresAt time.Time) error {
	now := requestcontext.Now(ctx)
	_, err := s.users.Execute(ctx, userID, func(u *models.User) error {
		u.IsActive = false
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate user")
	}
	if err := s.revoke(ctx, jti, expiresAt); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventUserDeactivated,
		"user_id", userID.String(),
	)
	return nil
}

func (s *Service) revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return dErrors.New(dErrors.CodeBadRequest, "token id is required")
	}
	ttl := expiresAt.Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.RevokeToken(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.incrementTokensRevoked()
	return nil
}

// IsTokenRevoked satisfies the auth middleware's revocation check.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revocations.IsRevoked(ctx, jti)
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	audit.LogAudit(ctx, s.logger, s.auditPublisher, event, attributes...)
}

func (s *Service) incrementUsersRegistered() {
	if s.metrics != nil {
		s.metrics.IncrementUsersRegistered()
	}
}

func (s *Service) incrementLoginAttempt(result string) {
	if s.metrics != nil {
		s.metrics.IncrementLoginAttempt(result)
	}
}

func (s *Service) incrementTokensRevoked() {
	if s.metrics != nil {
		s.metrics.IncrementTokensRevoked()
	}
}
