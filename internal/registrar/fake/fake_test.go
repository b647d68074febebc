package fake

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamdns/internal/registrar"
)

func TestRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	f := New()
	f.AddDomain("Example.com")

	rec, err := f.CreateRecord(ctx, "example.com", registrar.CreateRecordInput{Name: "www", Type: "a", Content: "1.2.3.4"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, "A", rec.Type)
	assert.Equal(t, registrar.DefaultTTL, rec.TTL)
	assert.Equal(t, "www.example.com.", rec.FQDN)

	ttl := 60
	updated, err := f.UpdateRecord(ctx, "example.com", rec.ID, registrar.RecordPatch{TTL: &ttl})
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", updated.Content)
	assert.Equal(t, 60, updated.TTL)

	records, err := f.ListRecords(ctx, "example.com")
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, f.DeleteRecord(ctx, "example.com", rec.ID))
	err = f.DeleteRecord(ctx, "example.com", rec.ID)
	assert.True(t, registrar.IsNotFound(err))

	_, err = f.GetRecord(ctx, "example.com", rec.ID)
	assert.True(t, registrar.IsNotFound(err))
	assert.Equal(t, 2, f.Calls("delete_record"))
}

func TestUnknownDomain(t *testing.T) {
	f := New()
	_, err := f.GetDomain(context.Background(), "nope.com")
	assert.True(t, registrar.IsNotFound(err))
	_, err = f.CreateRecord(context.Background(), "nope.com", registrar.CreateRecordInput{Name: "a", Type: "A", Content: "1.1.1.1"})
	assert.True(t, registrar.IsNotFound(err))
}

func TestFailNextIsConsumedInOrder(t *testing.T) {
	f := New()
	f.AddDomain("example.com")
	boom := &registrar.Error{Op: "list_domains", Status: http.StatusBadGateway, Message: "bad gateway"}
	f.FailNext("list_domains", boom)

	_, err := f.ListDomains(context.Background())
	assert.True(t, errors.Is(err, boom))

	domains, err := f.ListDomains(context.Background())
	require.NoError(t, err)
	assert.Len(t, domains, 1)
	assert.Equal(t, 2, f.TotalCalls())
}

func TestLatencyHonoursContext(t *testing.T) {
	f := New()
	f.AddDomain("example.com")
	f.SetLatency(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.GetDomain(ctx, "example.com")
	assert.True(t, registrar.IsTimeout(err))
}
