package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kvServer(t *testing.T, status int, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		assert.Equal(t, "/v1/secret/data/teamdns/namecom", r.URL.Path)
		assert.Equal(t, "root-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newVault(t *testing.T, addr string) *Vault {
	t.Helper()
	v, err := NewVault(VaultConfig{Addr: addr, Token: "root-token", Mount: "secret", SecretPath: "teamdns/namecom"})
	require.NoError(t, err)
	return v
}

func TestVault_ReadsCredentials(t *testing.T) {
	srv := kvServer(t, http.StatusOK, `{"data":{"data":{"username":"acme","api_token":"s3cret"},"metadata":{"version":1}}}`, nil)

	creds, err := newVault(t, srv.URL).Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acme", creds.Username)
	assert.Equal(t, "s3cret", creds.APIToken)
	assert.NotContains(t, creds.String(), "s3cret")
}

func TestVault_MissingPathIsTyped(t *testing.T) {
	srv := kvServer(t, http.StatusNotFound, `{"errors":[]}`, nil)

	_, err := newVault(t, srv.URL).Credentials(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "teamdns/namecom", ce.Path)
}

func TestVault_IncompleteSecret(t *testing.T) {
	srv := kvServer(t, http.StatusOK, `{"data":{"data":{"username":"acme"},"metadata":{"version":1}}}`, nil)

	_, err := newVault(t, srv.URL).Credentials(context.Background())
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestStatic(t *testing.T) {
	creds, err := NewStatic("acme", "tok").Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", creds.APIToken)

	_, err = NewStatic("acme", "").Credentials(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

type countingProvider struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (p *countingProvider) Credentials(context.Context) (Credentials, error) {
	p.calls.Add(1)
	time.Sleep(p.delay)
	if p.err != nil {
		return Credentials{}, p.err
	}
	return Credentials{Username: "acme", APIToken: "tok"}, nil
}

func TestCached_CollapsesConcurrentMisses(t *testing.T) {
	next := &countingProvider{delay: 20 * time.Millisecond}
	cached := NewCached(next, time.Minute)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cached.Credentials(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), next.calls.Load())

	_, err := cached.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestCached_ExpiryAndInvalidate(t *testing.T) {
	next := &countingProvider{}
	cached := NewCached(next, time.Minute)
	now := time.Now()
	cached.clock = func() time.Time { return now }

	_, err := cached.Credentials(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = cached.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())

	cached.Invalidate()
	_, err = cached.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), next.calls.Load())
}

func TestCached_DoesNotCacheFailures(t *testing.T) {
	next := &countingProvider{err: &Error{Path: "p", Err: ErrNotFound}}
	cached := NewCached(next, time.Minute)

	_, err := cached.Credentials(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cached.Credentials(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(2), next.calls.Load())
}

type slowVault struct{ delay time.Duration }

func (p slowVault) Credentials(ctx context.Context) (Credentials, error) {
	select {
	case <-time.After(p.delay):
		return Credentials{Username: "acme", APIToken: "tok"}, nil
	case <-ctx.Done():
		return Credentials{}, ctx.Err()
	}
}

func TestCached_SharedLookupSurvivesFirstCallerCancel(t *testing.T) {
	cached := NewCached(slowVault{delay: 100 * time.Millisecond}, time.Minute)

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = cached.Credentials(first)
	}()
	time.Sleep(20 * time.Millisecond)

	waiter := make(chan error, 1)
	go func() {
		_, err := cached.Credentials(context.Background())
		waiter <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	require.NoError(t, <-waiter)
	<-firstDone
}

func TestCached_LookupIsBounded(t *testing.T) {
	cached := NewCached(slowVault{delay: time.Second}, time.Minute)
	cached.timeout = 20 * time.Millisecond

	_, err := cached.Credentials(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
