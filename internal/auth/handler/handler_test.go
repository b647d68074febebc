package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"teamdns/internal/auth/handler/mocks"
	"teamdns/internal/auth/models"
	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
	"teamdns/pkg/testutil"
)

type AuthHandlerSuite struct {
	suite.Suite
	mockService *mocks.MockService
	router      chi.Router
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.mockService = mocks.NewMockService(ctrl)

	h := New(s.mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterAuthenticated(s.router)
}

func (s *AuthHandlerSuite) TestRegister() {
	s.Run("created", func() {
		user := &models.User{ID: id.NewUserID(), Username: "alice", Email: "alice@example.com", IsActive: true}
		s.mockService.EXPECT().Register(gomock.Any(), &models.RegisterRequest{
			Username: "alice", Email: "alice@example.com", Password: "password123",
		}).Return(user, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/register", map[string]string{
			"username": "alice", "email": "alice@example.com", "password": "password123",
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[models.UserResponse](s.T(), rr)
		s.Equal(user.ID.String(), resp.ID)
		s.Equal("alice", resp.Username)
		s.True(resp.IsActive)
	})

	s.Run("conflict maps to 400", func() {
		s.mockService.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "username already registered"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/register", map[string]string{
			"username": "alice", "email": "alice@example.com", "password": "password123",
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeConflict))
	})

	s.Run("malformed body never reaches the service", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/auth/register", "{not json")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("password hash never appears in the response", func() {
		user := &models.User{ID: id.NewUserID(), Username: "bob", Email: "bob@example.com", PasswordHash: "$2a$secret"}
		s.mockService.EXPECT().Register(gomock.Any(), gomock.Any()).Return(user, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/register", map[string]string{
			"username": "bob", "email": "bob@example.com", "password": "password123",
		})
		rr := testutil.DoRequest(s.router, req)

		s.NotContains(rr.Body.String(), "$2a$secret")
	})
}

func (s *AuthHandlerSuite) TestLogin() {
	s.Run("issues a bearer token", func() {
		s.mockService.EXPECT().Login(gomock.Any(), &models.LoginRequest{Username: "alice", Password: "password123"}).
			Return(&models.LoginResult{AccessToken: "signed", TokenType: "bearer", ExpiresIn: 1800}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"username": "alice", "password": "password123",
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[models.LoginResult](s.T(), rr)
		s.Equal("signed", resp.AccessToken)
		s.Equal(1800, resp.ExpiresIn)
	})

	s.Run("bad credentials map to 401", func() {
		s.mockService.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"username": "alice", "password": "nope",
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}

func (s *AuthHandlerSuite) TestMe() {
	userID := id.NewUserID()

	s.Run("returns the principal", func() {
		s.mockService.EXPECT().GetUser(gomock.Any(), userID).
			Return(&models.User{ID: userID, Username: "alice", Email: "alice@example.com", IsActive: true}, nil)

		req := testutil.WithAuth(testutil.NewRequest(s.T(), http.MethodGet, "/auth/me"), userID, "jti-1", time.Now().Add(time.Hour))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "username", "alice")
	})

	s.Run("missing principal is an internal error", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/auth/me"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, string(dErrors.CodeInternal))
	})
}

func (s *AuthHandlerSuite) TestLogoutAndDeactivate() {
	userID := id.NewUserID()
	expiresAt := time.Now().Add(time.Hour)

	s.Run("logout revokes the presented token", func() {
		s.mockService.EXPECT().Logout(gomock.Any(), userID, "jti-1", expiresAt).Return(nil)

		req := testutil.WithAuth(testutil.NewRequest(s.T(), http.MethodPost, "/auth/logout"), userID, "jti-1", expiresAt)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("deactivate", func() {
		s.mockService.EXPECT().Deactivate(gomock.Any(), userID, "jti-1", expiresAt).Return(nil)

		req := testutil.WithAuth(testutil.NewRequest(s.T(), http.MethodDelete, "/auth/me"), userID, "jti-1", expiresAt)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("revocation failure is an internal error", func() {
		s.mockService.EXPECT().Logout(gomock.Any(), userID, "jti-1", expiresAt).
			Return(dErrors.New(dErrors.CodeInternal, "failed to revoke token"))

		req := testutil.WithAuth(testutil.NewRequest(s.T(), http.MethodPost, "/auth/logout"), userID, "jti-1", expiresAt)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
	})
}
