package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"teamdns/internal/auth/models"
	"teamdns/internal/auth/service/mocks"
	"teamdns/internal/auth/store/revocation"
	userstore "teamdns/internal/auth/store/user"
	jwttoken "teamdns/internal/jwt_token"
	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
	"teamdns/pkg/platform/audit"
	"teamdns/pkg/platform/audit/publisher"
	auditmemory "teamdns/pkg/platform/audit/store/memory"
	"teamdns/pkg/platform/sentinel"
)

// ServiceSuite drives the service through mocks to exercise error propagation.
type ServiceSuite struct {
	suite.Suite
	ctrl            *gomock.Controller
	mockUserStore   *mocks.MockUserStore
	mockTokens      *mocks.MockTokenIssuer
	mockRevocations *mocks.MockRevocationList
	service         *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockUserStore = mocks.NewMockUserStore(s.ctrl)
	s.mockTokens = mocks.NewMockTokenIssuer(s.ctrl)
	s.mockRevocations = mocks.NewMockRevocationList(s.ctrl)
	svc, err := New(s.mockUserStore, s.mockTokens, s.mockRevocations, WithBcryptCost(bcrypt.MinCost))
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) TestRegister_StoreFailures() {
	ctx := context.Background()
	req := func() *models.RegisterRequest {
		return &models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"}
	}

	s.Run("username taken maps to conflict", func() {
		s.mockUserStore.EXPECT().CreateIfAvailable(ctx, gomock.Any()).Return(userstore.ErrUsernameTaken)

		_, err := s.service.Register(ctx, req())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "username")
	})

	s.Run("email taken maps to conflict", func() {
		s.mockUserStore.EXPECT().CreateIfAvailable(ctx, gomock.Any()).Return(userstore.ErrEmailTaken)

		_, err := s.service.Register(ctx, req())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "email")
	})

	s.Run("unexpected store error is internal", func() {
		s.mockUserStore.EXPECT().CreateIfAvailable(ctx, gomock.Any()).Return(errors.New("db down"))

		_, err := s.service.Register(ctx, req())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("invalid request never reaches the store", func() {
		_, err := s.service.Register(ctx, &models.RegisterRequest{Username: "al", Email: "alice@example.com", Password: "password123"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestLogin_ErrorPropagation() {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	s.Require().NoError(err)
	user := &models.User{ID: id.NewUserID(), Username: "alice", PasswordHash: string(hash), IsActive: true}

	s.Run("user lookup fails", func() {
		s.mockUserStore.EXPECT().FindByUsername(ctx, "alice").Return(nil, errors.New("db down"))

		_, err := s.service.Login(ctx, &models.LoginRequest{Username: "alice", Password: "password123"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("token issuance fails", func() {
		s.mockUserStore.EXPECT().FindByUsername(ctx, "alice").Return(user, nil)
		s.mockTokens.EXPECT().IssueToken(user.ID, "alice").Return("", nil, errors.New("signing failed"))

		_, err := s.service.Login(ctx, &models.LoginRequest{Username: "alice", Password: "password123"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("success reports ttl in seconds", func() {
		claims := &jwttoken.Claims{}
		claims.ID = "jti-1"
		s.mockUserStore.EXPECT().FindByUsername(ctx, "alice").Return(user, nil)
		s.mockTokens.EXPECT().IssueToken(user.ID, "alice").Return("signed", claims, nil)
		s.mockTokens.EXPECT().TTL().Return(30 * time.Minute)

		res, err := s.service.Login(ctx, &models.LoginRequest{Username: "alice", Password: "password123"})
		s.Require().NoError(err)
		s.Equal("signed", res.AccessToken)
		s.Equal("bearer", res.TokenType)
		s.Equal(1800, res.ExpiresIn)
	})
}

func (s *ServiceSuite) TestLogout_ErrorPropagation() {
	ctx := context.Background()
	userID := id.NewUserID()

	s.Run("revocation store fails", func() {
		s.mockRevocations.EXPECT().RevokeToken(ctx, "jti-1", gomock.Any()).Return(errors.New("redis down"))

		err := s.service.Logout(ctx, userID, "jti-1", time.Now().Add(time.Hour))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("already expired token is not stored", func() {
		err := s.service.Logout(ctx, userID, "jti-1", time.Now().Add(-time.Minute))
		s.Require().NoError(err)
	})

	s.Run("missing jti is rejected", func() {
		err := s.service.Logout(ctx, userID, "", time.Now().Add(time.Hour))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestDeactivate_ErrorPropagation() {
	ctx := context.Background()
	userID := id.NewUserID()

	s.Run("user not found", func() {
		s.mockUserStore.EXPECT().Execute(ctx, userID, gomock.Any()).Return(nil, sentinel.ErrNotFound)

		err := s.service.Deactivate(ctx, userID, "jti-1", time.Now().Add(time.Hour))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("update fails", func() {
		s.mockUserStore.EXPECT().Execute(ctx, userID, gomock.Any()).Return(nil, errors.New("write fail"))

		err := s.service.Deactivate(ctx, userID, "jti-1", time.Now().Add(time.Hour))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

// DirectorySuite runs the service against real in-memory stores.
type DirectorySuite struct {
	suite.Suite
	users       *userstore.InMemoryUserStore
	revocations *revocation.InMemoryTRL
	auditStore  *auditmemory.InMemoryStore
	jwt         *jwttoken.JWTService
	service     *Service
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	s.users = userstore.New()
	s.revocations = revocation.NewInMemoryTRL(nil)
	s.auditStore = auditmemory.NewInMemoryStore()
	s.jwt = jwttoken.NewJWTService("test-signing-key", "teamdns", 30*time.Minute)
	svc, err := New(s.users, s.jwt, s.revocations,
		WithBcryptCost(bcrypt.MinCost),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *DirectorySuite) register(username, email string) (*models.User, error) {
	return s.service.Register(context.Background(), &models.RegisterRequest{
		Username: username,
		Email:    email,
		Password: "password123",
	})
}

func (s *DirectorySuite) TestRegister() {
	s.Run("creates an active user with a bcrypt hash", func() {
		user, err := s.register("alice", "Alice@Example.com")
		s.Require().NoError(err)
		s.True(user.IsActive)
		s.Equal("alice@example.com", user.Email)
		s.NotEqual("password123", user.PasswordHash)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
	})

	s.Run("duplicate username conflicts regardless of email", func() {
		_, err := s.register("ALICE", "other@example.com")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "username")
	})

	s.Run("duplicate email conflicts", func() {
		_, err := s.register("bob", "alice@example.com")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "email")
	})

	s.Run("username reported first when both collide", func() {
		_, err := s.register("alice", "alice@example.com")
		s.Require().Error(err)
		s.Contains(err.Error(), "username")
	})

	s.Run("emits a registration audit event", func() {
		events, err := s.auditStore.ListRecent(context.Background(), 10)
		s.Require().NoError(err)
		s.Require().NotEmpty(events)
		s.Equal(string(audit.EventUserRegistered), events[0].Action)
	})
}

func (s *DirectorySuite) TestRegister_ConcurrentDistinct() {
	const n = 100
	var wg sync.WaitGroup
	ids := make(chan id.UserID, n)
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, err := s.register(fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i))
			if err != nil {
				errs <- err
				return
			}
			ids <- user.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	s.Empty(errs)
	seen := make(map[id.UserID]struct{})
	for userID := range ids {
		seen[userID] = struct{}{}
	}
	s.Len(seen, n)
}

func (s *DirectorySuite) TestRegister_ConcurrentSameUsername() {
	const n = 100
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.register("contended", fmt.Sprintf("c%d@example.com", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(n-1, conflicts)
}

func (s *DirectorySuite) TestAuthenticate() {
	ctx := context.Background()
	_, err := s.register("alice", "alice@example.com")
	s.Require().NoError(err)

	s.Run("valid credentials", func() {
		user, err := s.service.Authenticate(ctx, "alice", "password123")
		s.Require().NoError(err)
		s.Equal("alice", user.Username)
	})

	s.Run("wrong password and unknown user are indistinguishable", func() {
		_, wrongPassword := s.service.Authenticate(ctx, "alice", "wrong-password")
		_, unknownUser := s.service.Authenticate(ctx, "nobody", "password123")
		s.Require().Error(wrongPassword)
		s.Require().Error(unknownUser)
		s.True(dErrors.HasCode(wrongPassword, dErrors.CodeUnauthorized))
		s.Equal(wrongPassword.Error(), unknownUser.Error())
		s.ErrorIs(unknownUser, ErrInvalidCredentials)
	})

	s.Run("inactive account is refused", func() {
		user, err := s.service.GetByUsername(ctx, "alice")
		s.Require().NoError(err)
		s.Require().NoError(s.service.Deactivate(ctx, user.ID, "jti-x", time.Now().Add(time.Hour)))

		_, err = s.service.Authenticate(ctx, "alice", "password123")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.ErrorIs(err, ErrInactiveAccount)
	})
}

func (s *DirectorySuite) TestLoginAndLogout() {
	ctx := context.Background()
	user, err := s.register("carol", "carol@example.com")
	s.Require().NoError(err)

	res, err := s.service.Login(ctx, &models.LoginRequest{Username: "carol", Password: "password123"})
	s.Require().NoError(err)
	s.Equal(1800, res.ExpiresIn)

	claims, err := s.jwt.ValidateToken(res.AccessToken)
	s.Require().NoError(err)
	s.Equal(user.ID.String(), claims.Subject)
	s.Equal(jwttoken.RoleMember, claims.Role)

	revoked, err := s.service.IsTokenRevoked(ctx, claims.ID)
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.service.Logout(ctx, user.ID, claims.ID, claims.ExpiresAt.Time))

	revoked, err = s.service.IsTokenRevoked(ctx, claims.ID)
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *DirectorySuite) TestLookups() {
	ctx := context.Background()
	user, err := s.register("dave", "dave@example.com")
	s.Require().NoError(err)

	byID, err := s.service.GetUser(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("dave", byID.Username)

	byEmail, err := s.service.GetByEmail(ctx, "dave@example.com")
	s.Require().NoError(err)
	s.Equal(user.ID, byEmail.ID)

	_, err = s.service.GetUser(ctx, id.NewUserID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
