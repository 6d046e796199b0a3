package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igharvest/pkg/events"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newRun(target string, started time.Time) *Run {
	return &Run{ID: uuid.NewString(), Target: target, Kind: "profile", Status: StatusRunning, StartedAt: started}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	run := newRun("alice", time.Now())
	require.NoError(t, store.Create(run))

	got, err := store.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Target)
	assert.Equal(t, StatusRunning, got.Status)

	byPrefix, err := store.Get(run.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, run.ID, byPrefix.ID)
}

func TestStoreGetMissing(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.Get(uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreListNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, target := range []string{"alice", "bob", "alice"} {
		require.NoError(t, store.Create(newRun(target, base.Add(time.Duration(i)*time.Hour))))
	}

	all, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].StartedAt.After(all[1].StartedAt))

	alice, err := store.List("alice", 0)
	require.NoError(t, err)
	assert.Len(t, alice, 2)

	limited, err := store.List("", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStoreSetCountsAndStats(t *testing.T) {
	store := setupTestStore(t)
	done := newRun("alice", time.Now())
	done.Status = StatusCompleted
	failed := newRun("bob", time.Now())
	failed.Status = StatusFailed
	require.NoError(t, store.Create(done))
	require.NoError(t, store.Create(failed))
	require.NoError(t, store.Create(newRun("carol", time.Now())))

	require.NoError(t, store.SetCounts(done.ID, 5, 2, 1))
	got, err := store.Get(done.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Downloaded)
	assert.Equal(t, 2, got.Skipped)
	assert.Equal(t, 1, got.Failed)

	assert.ErrorIs(t, store.SetCounts(uuid.NewString(), 1, 1, 1), ErrNotFound)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Running)
}

func TestRecorderFollowsJobEvents(t *testing.T) {
	store := setupTestStore(t)
	rec, err := NewRecorder(store, &Run{ID: uuid.NewString(), Target: "alice", Kind: "profile"}, nil)
	require.NoError(t, err)

	var obs events.Observer = rec
	obs.StateChanged(events.StateStarted, "Download started")
	obs.StateChanged(events.StatePaused, "Download paused")

	got, err := store.Get(rec.Run().ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, got.Status)

	obs.StateChanged(events.StateResumed, "Download resumed")
	obs.FileDownloaded("/tmp/a.jpg")
	obs.FileDownloaded("/tmp/b.jpg")
	rec.SetRoot("/tmp/downloads/alice")
	obs.StateChanged(events.StateCompleted, "Download completed")
	obs.Finished()
	rec.SetCounts(2, 1, 0)

	got, err = store.Get(rec.Run().ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 2, got.Files)
	assert.Equal(t, 2, got.Downloaded)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, "/tmp/downloads/alice", got.Root)
	require.NotNil(t, got.FinishedAt)
	assert.GreaterOrEqual(t, got.Duration(), time.Duration(0))
}

func TestRecorderKeepsFailureMessage(t *testing.T) {
	store := setupTestStore(t)
	rec, err := NewRecorder(store, &Run{ID: uuid.NewString(), Target: "bob"}, nil)
	require.NoError(t, err)

	rec.Log("Error downloading profile picture: boom", events.LevelError)
	rec.Log("just info", events.LevelInfo)
	assert.Equal(t, "Error downloading profile picture: boom", rec.Run().Message)

	rec.StateChanged(events.StateError, "Bad credentials: wrong password")
	rec.Finished()

	got, err := store.Get(rec.Run().ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "Bad credentials: wrong password", got.Message)
}
