//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	id "teamdns/pkg/domain"
	audit "teamdns/pkg/platform/audit"
	"teamdns/pkg/testutil/containers"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestStore_AppendProducesRecord(t *testing.T) {
	broker := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := New(ctx, []string{broker.SeedBroker}, "audit-test")
	require.NoError(t, err)
	defer store.Close()

	userID := id.NewUserID()
	require.NoError(t, store.Append(ctx, audit.Event{
		Category:  audit.CategoryOperations,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Action:    string(audit.EventRecordCreated),
		Resource:  "rec-1",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.SeedBroker),
		kgo.ConsumeTopics("audit-test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, userID.String(), string(records[0].Key))

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, string(audit.EventRecordCreated), got.Action)
	require.Equal(t, userID, got.UserID)
}
