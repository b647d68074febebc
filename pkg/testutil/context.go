package testutil

import (
	"net/http"
	"time"

	id "teamdns/pkg/domain"
	"teamdns/pkg/requestcontext"
)

// WithUserID adds an authenticated principal to the request context, the way
// the auth middleware would. Invalid IDs are silently ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsed, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
	}
	return req
}

// WithAuth adds the principal plus the presented token's jti and expiry.
func WithAuth(req *http.Request, userID id.UserID, jti string, expiresAt time.Time) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithToken(ctx, jti, expiresAt)
	return req.WithContext(ctx)
}
