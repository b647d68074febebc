package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failN(b *Breaker, n int) {
	for range n {
		b.RecordFailure()
	}
}

func succeedN(b *Breaker, n int) {
	for range n {
		b.RecordSuccess()
	}
}

func TestNewBreakerStartsClosed(t *testing.T) {
	b := New("registrar")
	assert.Equal(t, "registrar", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
	assert.True(t, b.Allow())
}

func TestBreakerTransitions(t *testing.T) {
	t.Run("opens on the threshold failure only", func(t *testing.T) {
		b := New("r", WithFailureThreshold(2))
		open, change := b.RecordFailure()
		require.False(t, open)
		require.False(t, change.Opened)

		open, change = b.RecordFailure()
		assert.True(t, open)
		assert.True(t, change.Opened)
		assert.Equal(t, "open", b.State().String())

		open, change = b.RecordFailure()
		assert.True(t, open)
		assert.False(t, change.Opened, "already open")
	})

	t.Run("success while closed clears the failure streak", func(t *testing.T) {
		b := New("r", WithFailureThreshold(3))
		failN(b, 2)
		b.RecordSuccess()
		failN(b, 2)
		assert.False(t, b.IsOpen())
		b.RecordFailure()
		assert.True(t, b.IsOpen())
	})

	t.Run("trial successes close it", func(t *testing.T) {
		b := New("r", WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()

		closed, change := b.RecordSuccess()
		assert.False(t, closed)
		assert.False(t, change.Closed)

		closed, change = b.RecordSuccess()
		assert.True(t, closed)
		assert.True(t, change.Closed)
	})

	t.Run("trial failure restarts the success count", func(t *testing.T) {
		b := New("r", WithFailureThreshold(1), WithSuccessThreshold(3))
		b.RecordFailure()
		succeedN(b, 2)
		b.RecordFailure()
		succeedN(b, 2)
		assert.True(t, b.IsOpen())
		b.RecordSuccess()
		assert.False(t, b.IsOpen())
	})

	t.Run("reset forces closed", func(t *testing.T) {
		b := New("r", WithFailureThreshold(1))
		b.RecordFailure()
		b.Reset()
		assert.Equal(t, StateClosed, b.State())
	})
}

func TestBreakerCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := New("r",
		WithFailureThreshold(1),
		WithCooldown(30*time.Second),
		WithClock(func() time.Time { return now }),
	)
	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(29 * time.Second)
	assert.False(t, b.Allow())

	now = now.Add(time.Second)
	assert.True(t, b.Allow(), "trial call allowed once cooldown elapses")

	// a failed trial call restarts the cooldown
	b.RecordFailure()
	assert.False(t, b.Allow())
}
