package models

import (
	"fmt"
	"time"
)

// EndpointClass groups routes that share a request budget.
type EndpointClass string

const (
	// ClassAuth covers register and login, keyed by client IP.
	ClassAuth EndpointClass = "auth"
	// ClassRead covers authenticated reads, keyed by user.
	ClassRead EndpointClass = "read"
	// ClassWrite covers record and membership mutations, keyed by user.
	ClassWrite EndpointClass = "write"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassAuth, ClassRead, ClassWrite:
		return true
	}
	return false
}

// Limit is a request budget over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Key namespaces a bucket by class and subject ("ip" or "user").
func Key(class EndpointClass, subject, value string) string {
	return fmt.Sprintf("rl:%s:%s:%s", class, subject, value)
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int
}

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
