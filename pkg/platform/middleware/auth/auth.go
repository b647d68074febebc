// Package auth authenticates API requests from a bearer token and places the
// principal in the request context.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
	"teamdns/pkg/platform/httputil"
	request "teamdns/pkg/platform/middleware/request"
	"teamdns/pkg/requestcontext"
)

type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker is optional. A nil checker skips the lookup.
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims is the subset of token claims the middleware needs.
type JWTClaims struct {
	UserID    string
	Username  string
	JTI       string
	ExpiresAt time.Time
}

var (
	errNoCredentials = dErrors.New(dErrors.CodeUnauthorized, "bearer token required")
	errBadToken      = dErrors.New(dErrors.CodeUnauthorized, "token is invalid or expired")
	errRevoked       = dErrors.New(dErrors.CodeUnauthorized, "token was revoked")
)

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type authenticator struct {
	tokens      JWTValidator
	revocations TokenRevocationChecker
	logger      *slog.Logger
}

// principal resolves the caller or returns the error to send back.
func (a authenticator) principal(r *http.Request) (*JWTClaims, id.UserID, error) {
	ctx := r.Context()
	raw, ok := bearerToken(r)
	if !ok {
		return nil, id.UserID{}, errNoCredentials
	}
	claims, err := a.tokens.ValidateToken(raw)
	if err != nil {
		a.logger.WarnContext(ctx, "token rejected", "error", err)
		return nil, id.UserID{}, errBadToken
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		a.logger.WarnContext(ctx, "token subject is not a user id", "sub", claims.UserID)
		return nil, id.UserID{}, errBadToken
	}
	if a.revocations == nil {
		return claims, userID, nil
	}
	if claims.JTI == "" {
		return nil, id.UserID{}, errBadToken
	}
	revoked, err := a.revocations.IsTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return nil, id.UserID{}, dErrors.Wrap(err, dErrors.CodeInternal, "revocation lookup failed")
	}
	if revoked {
		a.logger.WarnContext(ctx, "revoked token presented", "jti", claims.JTI, "user_id", userID.String())
		return nil, id.UserID{}, errRevoked
	}
	return claims, userID, nil
}

// RequireAuth rejects requests without a valid, unrevoked bearer token and
// stores the user id, jti and expiry for downstream handlers.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	a := authenticator{tokens: validator, revocations: revocationChecker, logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, userID, err := a.principal(r)
			if err != nil {
				if dErrors.CodeOf(err) == dErrors.CodeInternal {
					logger.ErrorContext(r.Context(), "authentication failed", "error", err,
						"request_id", request.GetRequestID(r.Context()))
				}
				httputil.WriteError(w, err)
				return
			}
			ctx := requestcontext.WithUserID(r.Context(), userID)
			ctx = requestcontext.WithToken(ctx, claims.JTI, claims.ExpiresAt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
