package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
)

func identityOf(t *testing.T, local *memStore) string {
	t.Helper()
	v, _, err := local.Get(jsonstore.KeyUserID)
	require.NoError(t, err)
	return v
}

func TestMigrate_FoldsLegacyIntoCanonical(t *testing.T) {
	local, remote := newMemStore(), newFakeRemote()
	require.NoError(t, local.Set(jsonstore.KeyUserID, "device-123"))
	local.putTasks(t, []model.Task{mk("local", "only here", "2024-01-01T00:00:00Z", "")})

	remote.set("device-123", []model.Task{
		mk("t", "T1", "2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z"),
		mk("legacy", "old device", "2024-01-01T00:00:00Z", ""),
	})
	remote.set(DefaultUserID, []model.Task{
		mk("t", "T2", "2024-01-01T00:00:00Z", "2024-01-03T00:00:00Z"),
	})

	s := New(local, remote, testOptions())
	s.loadLocal()
	require.NoError(t, s.Migrate(context.Background()))

	pushes := remote.allPushes()
	require.Len(t, pushes, 1)
	assert.Equal(t, DefaultUserID, pushes[0].userID, "nothing is written under the legacy id")
	pushed := pushes[0].tasks
	require.Len(t, pushed, 2)
	assert.Equal(t, "T2", pushed[model.Index(pushed, model.ParseID("t"))].Text)

	tasks := s.Tasks()
	assert.Len(t, tasks, 3, "device-only tasks survive adoption")
	assert.Equal(t, "T2", tasks[model.Index(tasks, model.ParseID("t"))].Text)
	assert.Len(t, local.tasks(t), 3)
	assert.Equal(t, DefaultUserID, identityOf(t, local))
}

func TestMigrate_TieGoesToCanonical(t *testing.T) {
	local, remote := newMemStore(), newFakeRemote()
	require.NoError(t, local.Set(jsonstore.KeyUserID, "old"))
	remote.set("old", []model.Task{mk("t", "legacy", "", "2024-01-02T00:00:00Z")})
	remote.set(DefaultUserID, []model.Task{mk("t", "canonical", "", "2024-01-02T00:00:00Z")})

	s := New(local, remote, testOptions())
	require.NoError(t, s.Migrate(context.Background()))

	assert.Equal(t, "canonical", s.Tasks()[0].Text)
}

func TestMigrate_NoLegacyRecordsCanonical(t *testing.T) {
	local, remote := newMemStore(), newFakeRemote()

	s := New(local, remote, testOptions())
	require.NoError(t, s.Migrate(context.Background()))

	assert.Equal(t, 0, remote.fetchCount())
	assert.Equal(t, DefaultUserID, identityOf(t, local))
}

func TestMigrate_SameIDIsNoop(t *testing.T) {
	local, remote := newMemStore(), newFakeRemote()
	require.NoError(t, local.Set(jsonstore.KeyUserID, DefaultUserID))

	s := New(local, remote, testOptions())
	require.NoError(t, s.Migrate(context.Background()))
	assert.Equal(t, 0, remote.fetchCount())
	assert.Equal(t, 0, remote.pushCount())
}

func TestMigrate_BothEmptyPushesNothing(t *testing.T) {
	local, remote := newMemStore(), newFakeRemote()
	require.NoError(t, local.Set(jsonstore.KeyUserID, "old"))

	s := New(local, remote, testOptions())
	require.NoError(t, s.Migrate(context.Background()))

	assert.Equal(t, 2, remote.fetchCount())
	assert.Equal(t, 0, remote.pushCount())
	assert.Equal(t, DefaultUserID, identityOf(t, local))
}

func TestMigrate_OneSideFailingCountsAsEmpty(t *testing.T) {
	local, remote := newMemStore(), newFakeRemote()
	require.NoError(t, local.Set(jsonstore.KeyUserID, "old"))
	remote.set("old", []model.Task{mk("a", "rescued", "", "")})
	remote.failFetch(DefaultUserID, errOffline)

	s := New(local, remote, testOptions())
	require.NoError(t, s.Migrate(context.Background()))

	require.Equal(t, 1, remote.pushCount())
	assert.Equal(t, DefaultUserID, remote.lastPush().userID)
	assert.Equal(t, DefaultUserID, identityOf(t, local))
}

func TestMigrate_BothFailingKeepsLegacy(t *testing.T) {
	local, remote := newMemStore(), newFakeRemote()
	require.NoError(t, local.Set(jsonstore.KeyUserID, "old"))
	remote.failFetch("old", errOffline)
	remote.failFetch(DefaultUserID, errOffline)

	s := New(local, remote, testOptions())
	err := s.Migrate(context.Background())

	assert.ErrorIs(t, err, ErrMigrationDeferred)
	assert.Equal(t, "old", identityOf(t, local))
	assert.Equal(t, 0, remote.pushCount())
}

func TestMigrate_PushFailureAdoptsButRetries(t *testing.T) {
	local, remote := newMemStore(), newFakeRemote()
	require.NoError(t, local.Set(jsonstore.KeyUserID, "old"))
	remote.set("old", []model.Task{mk("a", "rescued", "", "")})
	remote.pushErr = errOffline

	s := New(local, remote, testOptions())
	err := s.Migrate(context.Background())

	assert.ErrorIs(t, err, ErrMigrationDeferred)
	assert.Len(t, s.Tasks(), 1)
	assert.Equal(t, "old", identityOf(t, local))
}

func TestStart_MigratesBeforeLoading(t *testing.T) {
	local, remote := newMemStore(), newFakeRemote()
	require.NoError(t, local.Set(jsonstore.KeyUserID, "old"))
	remote.set("old", []model.Task{mk("a", "from old id", "2024-01-01T00:00:00Z", "")})

	s := startSession(t, local, remote, testOptions())

	assert.True(t, s.Enabled())
	require.Len(t, s.Tasks(), 1)
	assert.Equal(t, "from old id", s.Tasks()[0].Text)
	assert.Equal(t, DefaultUserID, identityOf(t, local))
}
