package user

import (
	"fmt"

	"teamdns/pkg/platform/sentinel"
)

// Both wrap sentinel.ErrConflict so callers can match either the specific
// field or the generic fact.
var (
	ErrUsernameTaken = fmt.Errorf("username already registered: %w", sentinel.ErrConflict)
	ErrEmailTaken    = fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
)
