package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "teamdns/pkg/domain"
	"teamdns/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*JWTClaims, error) { return v.claims, v.err }

type stubRevocation struct {
	revoked bool
	err     error
}

func (r stubRevocation) IsTokenRevoked(context.Context, string) (bool, error) {
	return r.revoked, r.err
}

type RequireAuthSuite struct {
	suite.Suite
	logger *slog.Logger
	userID id.UserID
}

func TestRequireAuthSuite(t *testing.T) {
	suite.Run(t, new(RequireAuthSuite))
}

func (s *RequireAuthSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.userID = id.NewUserID()
}

func (s *RequireAuthSuite) serve(v JWTValidator, rc TokenRevocationChecker, header string) (*httptest.ResponseRecorder, context.Context) {
	var seen context.Context
	h := RequireAuth(v, rc, s.logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Context()
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func (s *RequireAuthSuite) validClaims() *JWTClaims {
	return &JWTClaims{UserID: s.userID.String(), JTI: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}
}

func (s *RequireAuthSuite) TestMissingHeader() {
	rec, _ := s.serve(stubValidator{}, nil, "")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Contains(rec.Body.String(), "bearer token required")
}

func (s *RequireAuthSuite) TestInvalidToken() {
	rec, _ := s.serve(stubValidator{err: errors.New("bad")}, nil, "Bearer nope")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RequireAuthSuite) TestRevokedToken() {
	rec, _ := s.serve(stubValidator{claims: s.validClaims()}, stubRevocation{revoked: true}, "Bearer t")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Contains(rec.Body.String(), "revoked")
}

func (s *RequireAuthSuite) TestRevocationLookupFailure() {
	rec, _ := s.serve(stubValidator{claims: s.validClaims()}, stubRevocation{err: errors.New("redis down")}, "Bearer t")
	s.Equal(http.StatusInternalServerError, rec.Code)
}

func (s *RequireAuthSuite) TestValidTokenPopulatesContext() {
	rec, ctx := s.serve(stubValidator{claims: s.validClaims()}, stubRevocation{}, "Bearer t")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(s.userID, requestcontext.UserID(ctx))
	s.Equal("jti-1", requestcontext.TokenID(ctx))
	s.False(requestcontext.TokenExpiry(ctx).IsZero())
}

func (s *RequireAuthSuite) TestSchemeIsCaseInsensitive() {
	rec, _ := s.serve(stubValidator{claims: s.validClaims()}, stubRevocation{}, "bearer t")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RequireAuthSuite) TestBasicSchemeRejected() {
	rec, _ := s.serve(stubValidator{claims: s.validClaims()}, stubRevocation{}, "Basic dXNlcjpwYXNz")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RequireAuthSuite) TestMissingJTIWithRevocationEnabled() {
	claims := s.validClaims()
	claims.JTI = ""
	rec, _ := s.serve(stubValidator{claims: claims}, stubRevocation{}, "Bearer t")
	s.Equal(http.StatusUnauthorized, rec.Code)
}
