package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

const defaultPassword = "correct-horse-battery"

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(ctx context.Context, method, path, token string, body any) error
	LastStatus() int
	LastBody() []byte
	ResponseField(field string) (any, error)
	Username(alias string) string
	Token(alias string) string
	SetToken(alias, token string)
	SetUserID(alias, userID string)
}

// RegisterSteps registers registration, login and session step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^a signed-in user "([^"]*)"$`, steps.signedInUser)
	ctx.Step(`^I register user "([^"]*)"$`, steps.register)
	ctx.Step(`^I register user "([^"]*)" with email "([^"]*)"$`, steps.registerWithEmail)
	ctx.Step(`^"([^"]*)" logs in$`, steps.login)
	ctx.Step(`^"([^"]*)" logs in with password "([^"]*)"$`, steps.loginWithPassword)
	ctx.Step(`^"([^"]*)" requests their profile$`, steps.me)
	ctx.Step(`^"([^"]*)" logs out$`, steps.logout)
	ctx.Step(`^"([^"]*)" deactivates their account$`, steps.deactivate)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) signedInUser(ctx context.Context, alias string) error {
	if err := s.register(ctx, alias); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusCreated {
		return fmt.Errorf("register %s: status %d: %s", alias, s.tc.LastStatus(), s.tc.LastBody())
	}
	if err := s.login(ctx, alias); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusOK {
		return fmt.Errorf("login %s: status %d: %s", alias, s.tc.LastStatus(), s.tc.LastBody())
	}
	return nil
}

func (s *authSteps) register(ctx context.Context, alias string) error {
	return s.registerWithEmail(ctx, alias, s.tc.Username(alias)+"@example.com")
}

func (s *authSteps) registerWithEmail(ctx context.Context, alias, email string) error {
	err := s.tc.Do(ctx, http.MethodPost, "/auth/register", "", map[string]string{
		"username": s.tc.Username(alias),
		"email":    email,
		"password": defaultPassword,
	})
	if err != nil {
		return err
	}
	if s.tc.LastStatus() == http.StatusCreated {
		userID, err := s.tc.ResponseField("id")
		if err != nil {
			return err
		}
		s.tc.SetUserID(alias, fmt.Sprint(userID))
	}
	return nil
}

func (s *authSteps) login(ctx context.Context, alias string) error {
	return s.loginWithPassword(ctx, alias, defaultPassword)
}

func (s *authSteps) loginWithPassword(ctx context.Context, alias, password string) error {
	err := s.tc.Do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"username": s.tc.Username(alias),
		"password": password,
	})
	if err != nil {
		return err
	}
	if s.tc.LastStatus() == http.StatusOK {
		token, err := s.tc.ResponseField("access_token")
		if err != nil {
			return err
		}
		s.tc.SetToken(alias, fmt.Sprint(token))
	}
	return nil
}

func (s *authSteps) me(ctx context.Context, alias string) error {
	return s.tc.Do(ctx, http.MethodGet, "/auth/me", s.tc.Token(alias), nil)
}

func (s *authSteps) logout(ctx context.Context, alias string) error {
	return s.tc.Do(ctx, http.MethodPost, "/auth/logout", s.tc.Token(alias), nil)
}

func (s *authSteps) deactivate(ctx context.Context, alias string) error {
	return s.tc.Do(ctx, http.MethodDelete, "/auth/me", s.tc.Token(alias), nil)
}
