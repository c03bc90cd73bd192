package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpgcloud/gpgcloud/internal/models"
)

func TestReconcile_Clean(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.Store(ctx, "a", []byte("x"), "alice", testBackendID)
	require.NoError(t, err)
	_, err = env.engine.Store(ctx, "b", []byte("y"), "alice", testBackendID)
	require.NoError(t, err)

	report, err := env.engine.Reconcile(ctx, testBackendID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Tracked)
	assert.Equal(t, 2, report.Matched)
	assert.Empty(t, report.Orphaned)
	assert.Empty(t, report.Demoted)
}

func TestReconcile_DemotesLostRemote(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.Store(ctx, "a", []byte("x"), "alice", testBackendID)
	require.NoError(t, err)

	// The remote object disappears out-of-band.
	env.backend.Remove("objects/a")

	report, err := env.engine.Reconcile(ctx, testBackendID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, report.Demoted)

	rec, err := env.repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StateUploadFailed, rec.State)

	// Reconcile never recreates or deletes remote objects.
	paths, err := env.backend.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestReconcile_ReportsOrphans(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.NoError(t, env.backend.Put(ctx, "objects/stray", []byte("who put this here")))

	report, err := env.engine.Reconcile(ctx, testBackendID)
	require.NoError(t, err)
	assert.Equal(t, []string{"objects/stray"}, report.Orphaned)

	// Orphans are reported, never deleted.
	exists, err := env.backend.Exists(ctx, "objects/stray")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReconcile_TombstoneRemnantIsOrphaned(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.Store(ctx, "a", []byte("x"), "alice", testBackendID)
	require.NoError(t, err)
	require.NoError(t, env.engine.Remove(ctx, "a"))

	// Simulate a failed best-effort delete leaving the bytes behind.
	require.NoError(t, env.backend.Put(ctx, "objects/a", []byte("leftover")))

	report, err := env.engine.Reconcile(ctx, testBackendID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Tracked)
	assert.Equal(t, []string{"objects/a"}, report.Orphaned)
}

func TestReconcile_LeavesNonSyncedUntouched(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.backend.FailPut = 100

	_, err := env.engine.Store(ctx, "a", []byte("x"), "alice", testBackendID)
	require.Error(t, err)

	report, err := env.engine.Reconcile(ctx, testBackendID)
	require.NoError(t, err)
	assert.Empty(t, report.Demoted)

	rec, err := env.repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StateUploadFailed, rec.State)
}

func TestReconcile_SkipsBusyID(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.Store(ctx, "a", []byte("x"), "alice", testBackendID)
	require.NoError(t, err)
	env.backend.Remove("objects/a")

	// Another operation holds the id; the lost remote must not be acted on
	// from a listing snapshot taken before that operation finishes.
	require.True(t, env.engine.locks.acquire("a"))
	report, err := env.engine.Reconcile(ctx, testBackendID)
	require.NoError(t, err)
	assert.Empty(t, report.Demoted)

	rec, err := env.repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StateSynced, rec.State)

	env.engine.locks.release("a")
	report, err = env.engine.Reconcile(ctx, testBackendID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, report.Demoted)
}

func TestReconcile_UnknownBackend(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.engine.Reconcile(context.Background(), "nope")
	require.Error(t, err)
}
