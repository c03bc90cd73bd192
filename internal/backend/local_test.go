package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpgcloud/gpgcloud/internal/common"
)

func newLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	return l
}

func TestLocal_PutGetRoundTrip(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, "objects/report.txt", []byte("payload")))

	got, err := l.Get(ctx, "objects/report.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	ok, err := l.Exists(ctx, "objects/report.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocal_GetMissing(t *testing.T) {
	l := newLocal(t)

	_, err := l.Get(context.Background(), "objects/absent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestLocal_PutOverwrites(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, "objects/a", []byte("one")))
	require.NoError(t, l.Put(ctx, "objects/a", []byte("two")))

	got, err := l.Get(ctx, "objects/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func TestLocal_DeleteIdempotent(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, "objects/a", []byte("one")))
	require.NoError(t, l.Delete(ctx, "objects/a"))
	// Deleting an absent object is not an error.
	require.NoError(t, l.Delete(ctx, "objects/a"))

	ok, err := l.Exists(ctx, "objects/a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocal_ListByPrefix(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, "objects/a", []byte("1")))
	require.NoError(t, l.Put(ctx, "objects/sub/b", []byte("2")))
	require.NoError(t, l.Put(ctx, "other/c", []byte("3")))

	got, err := l.List(ctx, "objects/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"objects/a", "objects/sub/b"}, got)

	all, err := l.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLocal_ListIsLive(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, "objects/a", []byte("1")))
	got, err := l.List(ctx, "objects/")
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, l.Delete(ctx, "objects/a"))
	got, err = l.List(ctx, "objects/")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"ok", "objects/report.txt", false},
		{"ok nested", "objects/2026/a-b_c.bin", false},
		{"empty", "", true},
		{"traversal", "objects/../../etc/passwd", true},
		{"absolute", "/etc/passwd", true},
		{"trailing slash", "objects/", true},
		{"double slash", "objects//a", true},
		{"null byte", "objects/a\x00b", true},
		{"space", "objects/a b", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
