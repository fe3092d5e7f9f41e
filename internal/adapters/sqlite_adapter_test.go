package adapters

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occupancy/internal/amqp"
	"occupancy/internal/core"
	"occupancy/internal/ingest"
	"occupancy/internal/storage"
)

type fakePublisher struct {
	published []string
	closed    bool
	closeErr  error
}

func (f *fakePublisher) PublishSheetImported(_ context.Context, msg *amqp.SheetImportedMessage) error {
	f.published = append(f.published, msg.SheetID)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return f.closeErr
}

func newAdapter(t *testing.T) *SQLiteAdapter {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "adapter.db"))
	require.NoError(t, err)
	return NewSQLiteAdapter(repo, nil)
}

func TestSQLiteAdapter_RoundTrip(t *testing.T) {
	a := newAdapter(t)
	defer a.Close()
	ctx := context.Background()

	info := core.SheetInfo{ID: "s1", Name: "May", ImportedAt: time.Now()}
	require.NoError(t, a.Save(ctx, info, []ingest.Record{{Row: 1, StartDay: "2024-05-01", Capacity: "2"}}))

	latest, err := a.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", latest.ID)

	rep := core.ComputeReport(latest.Reservations, core.YearMonth{Year: 2024, Month: 5}, 10)
	require.NoError(t, a.SaveSnapshot(ctx, "s1", rep, time.Now()))

	snaps, err := a.ListSnapshots(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 8, snaps[0].Report.UnreservedCapacity)
	assert.NoError(t, a.Ping(ctx))
}

func TestSQLiteAdapter_PublishWithoutClient(t *testing.T) {
	a := newAdapter(t)
	defer a.Close()

	err := a.PublishSheetImported(context.Background(), amqp.NewSheetImportedMessage("s1", "", 0))
	assert.NoError(t, err, "publishing without a client is a no-op")
}

func TestSQLiteAdapter_PublishAndClose(t *testing.T) {
	a := newAdapter(t)
	pub := &fakePublisher{closeErr: errors.New("already closed")}
	a.publisher = pub

	require.NoError(t, a.PublishSheetImported(context.Background(), amqp.NewSheetImportedMessage("s1", "", 0)))
	assert.Equal(t, []string{"s1"}, pub.published)

	err := a.Close()
	assert.Error(t, err, "Close should report the publisher error")
	assert.True(t, pub.closed)
}
