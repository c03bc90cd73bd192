package objects

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpgcloud/gpgcloud/internal/common"
	"github.com/gpgcloud/gpgcloud/internal/models"
)

func setupBolt(t *testing.T) *BoltRepository {
	t.Helper()
	r, err := OpenBolt(filepath.Join(t.TempDir(), "objects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestBolt_UpsertInsertAndUpdate(t *testing.T) {
	r := setupBolt(t)
	ctx := context.Background()

	o := testObject("report.txt", models.StatePending)
	require.NoError(t, r.Upsert(ctx, o))

	o.State = models.StateSynced
	require.NoError(t, r.Upsert(ctx, o))

	got, err := r.Get(ctx, "report.txt")
	require.NoError(t, err)
	assert.Equal(t, models.StateSynced, got.State)
	assert.Equal(t, "objects/report.txt", got.RemotePath)
}

func TestBolt_GetNotFound(t *testing.T) {
	r := setupBolt(t)

	_, err := r.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestBolt_ListFilters(t *testing.T) {
	r := setupBolt(t)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, testObject("a", models.StateSynced)))
	require.NoError(t, r.Upsert(ctx, testObject("b", models.StateDeleted)))
	other := testObject("c", models.StateSynced)
	other.BackendID = "sftp-backup"
	require.NoError(t, r.Upsert(ctx, other))

	got, err := r.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = r.List(ctx, Filter{BackendID: "sftp-backup"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].LogicalID)

	got, err = r.List(ctx, Filter{IncludeTombstones: true})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestBolt_DeleteTombstones(t *testing.T) {
	r := setupBolt(t)
	ctx := context.Background()

	o := testObject("a", models.StateSynced)
	o.UpdatedAt = o.UpdatedAt.Add(-time.Hour)
	require.NoError(t, r.Upsert(ctx, o))
	require.NoError(t, r.Delete(ctx, "a"))

	got, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.Tombstoned())
	assert.True(t, got.UpdatedAt.After(o.UpdatedAt), "tombstoning must refresh UpdatedAt")

	err = r.Delete(ctx, "a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
