package memory

import (
	"context"
	"testing"
	"time"

	id "teamdns/pkg/domain"
	audit "teamdns/pkg/platform/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_ListRecentNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := range 3 {
		require.NoError(t, store.Append(ctx, audit.Event{
			UserID:    id.NewUserID(),
			Action:    string(audit.EventRecordCreated),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	events, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, base.Add(2*time.Minute), events[0].Timestamp)
	assert.Equal(t, base.Add(time.Minute), events[1].Timestamp)
}

func TestInMemoryStore_Clear(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	userID := id.NewUserID()

	require.NoError(t, store.Append(ctx, audit.Event{UserID: userID, Action: "x"}))
	store.Clear()

	events, err := store.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestInMemoryStore_CapacityEvictsOldest(t *testing.T) {
	store := NewInMemoryStore(WithCapacity(2))
	ctx := context.Background()
	userID := id.NewUserID()

	for _, action := range []string{"first", "second", "third"} {
		require.NoError(t, store.Append(ctx, audit.Event{UserID: userID, Action: action}))
	}

	events, err := store.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "second", events[0].Action)
	assert.Equal(t, "third", events[1].Action)
}
