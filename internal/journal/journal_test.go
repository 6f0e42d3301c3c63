package journal

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestJournal(t *testing.T) (*MongoJournal, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := Connect(ctx, uri, "testdb", "storefront-test")
	require.NoError(t, err)

	j := NewMongoJournal(db)
	require.NoError(t, j.CreateIndexes(ctx))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return j, cleanup
}

func TestRecordAndList(t *testing.T) {
	j, cleanup := setupTestJournal(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.Record(ctx, domain.CaptureRecord{
		OrderID: "o1", ProviderOrderID: "PAY-1", Outcome: domain.CaptureProviderError,
		Error: "payment provider capture failed (status 502)", RecordedAt: base,
	}))
	require.NoError(t, j.Record(ctx, domain.CaptureRecord{
		OrderID: "o1", ProviderOrderID: "PAY-1", Status: "COMPLETED", PayerEmail: "a@b.c",
		Amount: "92.50", Outcome: domain.CaptureSettled, RecordedAt: base.Add(time.Minute),
	}))
	require.NoError(t, j.Record(ctx, domain.CaptureRecord{OrderID: "o2", Outcome: domain.CaptureRejected, RecordedAt: base}))

	recs, err := j.ListByOrder(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, domain.CaptureProviderError, recs[0].Outcome)
	assert.Contains(t, recs[0].Error, "502")
	assert.Equal(t, domain.CaptureSettled, recs[1].Outcome)
	assert.Equal(t, "92.50", recs[1].Amount)
	assert.True(t, base.Add(time.Minute).Equal(recs[1].RecordedAt))
}

func TestListByOrder_Empty(t *testing.T) {
	j, cleanup := setupTestJournal(t)
	defer cleanup()

	recs, err := j.ListByOrder(context.Background(), "none")
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NotNil(t, recs)
}

func TestPing(t *testing.T) {
	j, cleanup := setupTestJournal(t)
	defer cleanup()

	assert.NoError(t, j.Ping(context.Background()))
}
