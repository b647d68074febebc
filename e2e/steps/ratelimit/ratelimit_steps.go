package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(ctx context.Context, method, path, token string, body any) error
	LastStatus() int
	LastBody() []byte
	ResponseField(field string) (any, error)
	Username(alias string) string
}

// RegisterSteps registers rate limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I fail to log in as "([^"]*)" (\d+) times$`, steps.failLoginNTimes)
	ctx.Step(`^every failed attempt should return (\d+)$`, steps.everyAttemptShouldReturn)
	ctx.Step(`^the response should indicate the rate limit was exceeded$`, steps.shouldIndicateExceeded)
	ctx.Step(`^the error message should not reveal whether "([^"]*)" exists$`, steps.messageIsGeneric)
}

type ratelimitSteps struct {
	tc       TestContext
	statuses []int
	messages []string
}

func (s *ratelimitSteps) failLoginNTimes(ctx context.Context, alias string, times int) error {
	s.statuses = s.statuses[:0]
	s.messages = s.messages[:0]
	for range times {
		err := s.tc.Do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
			"username": s.tc.Username(alias),
			"password": "definitely-wrong",
		})
		if err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.LastStatus())
		if msg, err := s.tc.ResponseField("error_description"); err == nil {
			s.messages = append(s.messages, fmt.Sprint(msg))
		}
	}
	return nil
}

func (s *ratelimitSteps) everyAttemptShouldReturn(_ context.Context, status int) error {
	for i, got := range s.statuses {
		if got != status {
			return fmt.Errorf("attempt %d returned %d, expected %d", i+1, got, status)
		}
	}
	return nil
}

func (s *ratelimitSteps) shouldIndicateExceeded(_ context.Context) error {
	if s.tc.LastStatus() != http.StatusTooManyRequests {
		return fmt.Errorf("expected 429, got %d", s.tc.LastStatus())
	}
	v, err := s.tc.ResponseField("error")
	if err != nil {
		return err
	}
	if v != "rate_limit_exceeded" {
		return fmt.Errorf("unexpected error code %v", v)
	}
	if _, err := s.tc.ResponseField("retry_after"); err != nil {
		return err
	}
	return nil
}

// messageIsGeneric checks failures share one message that does not echo the
// username.
func (s *ratelimitSteps) messageIsGeneric(_ context.Context, alias string) error {
	if len(s.messages) == 0 {
		return fmt.Errorf("no error messages captured")
	}
	for _, msg := range s.messages {
		if msg != s.messages[0] {
			return fmt.Errorf("error messages differ: %q vs %q", msg, s.messages[0])
		}
	}
	if strings.Contains(strings.ToLower(s.messages[0]), strings.ToLower(s.tc.Username(alias))) {
		return fmt.Errorf("error message names the user: %q", s.messages[0])
	}
	return nil
}
