//go:build integration

// Package containers starts throwaway backing services for the integration
// suites. Every container is terminated through t.Cleanup.
package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// started registers termination and fails the test when run returned an error.
func started[C testcontainers.Container](t *testing.T, what string, c C, err error) C {
	t.Helper()
	if err != nil {
		t.Fatalf("start %s container: %v", what, err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(context.Background())
	})
	return c
}
