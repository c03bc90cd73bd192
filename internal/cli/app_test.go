package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpgcloud/gpgcloud/internal/config"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()

	keyFile := filepath.Join(dir, "aes.key")
	require.NoError(t, os.WriteFile(keyFile, bytes.Repeat([]byte{0x42}, 32), 0o600))

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = filepath.Join(dir, "meta.db")
	cfg.LocalDir = filepath.Join(dir, "store")
	cfg.CipherSuite = "aesgcm"
	cfg.AESKeyFile = keyFile
	cfg.Recipient = "default"
	cfg.LogLevel = "error"

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	out := &bytes.Buffer{}
	app.out = out
	return app, out, dir
}

func TestApp_BackupRestoreCycle(t *testing.T) {
	app, out, dir := newTestApp(t)
	ctx := context.Background()

	src := filepath.Join(dir, "report.txt")
	content := []byte("the contents of the report")
	require.NoError(t, os.WriteFile(src, content, 0o600))

	require.Equal(t, 0, app.Run(ctx, []string{"backup", src, "report.txt"}))
	assert.Contains(t, out.String(), "report.txt synced to local:objects/report.txt")

	out.Reset()
	require.Equal(t, 0, app.Run(ctx, []string{"list"}))
	assert.Contains(t, out.String(), "synced")
	assert.Contains(t, out.String(), "report.txt")

	dest := filepath.Join(dir, "restored.txt")
	out.Reset()
	require.Equal(t, 0, app.Run(ctx, []string{"restore", "report.txt", dest}))

	restored, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, restored)
}

func TestApp_BackupDirectory(t *testing.T) {
	app, out, dir := newTestApp(t)
	ctx := context.Background()

	src := filepath.Join(dir, "photos")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "2026"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "cat.jpg"), []byte("cat"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "2026", "dog.jpg"), []byte("dog"), 0o600))

	require.Equal(t, 0, app.Run(ctx, []string{"backup", src}))
	assert.Contains(t, out.String(), "photos/cat.jpg synced to local:objects/photos/cat.jpg")
	assert.Contains(t, out.String(), "photos/2026/dog.jpg synced to local:objects/photos/2026/dog.jpg")
	assert.Contains(t, out.String(), "2 files synced from")

	dest := filepath.Join(dir, "dog-restored")
	out.Reset()
	require.Equal(t, 0, app.Run(ctx, []string{"restore", "photos/2026/dog.jpg", dest}))
	restored, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("dog"), restored)
}

func TestApp_RemoveAndReconcile(t *testing.T) {
	app, out, dir := newTestApp(t)
	ctx := context.Background()

	src := filepath.Join(dir, "doc")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o600))
	require.Equal(t, 0, app.Run(ctx, []string{"backup", src}))

	out.Reset()
	require.Equal(t, 0, app.Run(ctx, []string{"remove", "doc"}))
	assert.Contains(t, out.String(), "doc removed")

	out.Reset()
	require.Equal(t, 0, app.Run(ctx, []string{"list"}))
	assert.Contains(t, out.String(), "No tracked objects.")

	out.Reset()
	require.Equal(t, 0, app.Run(ctx, []string{"reconcile"}))
	assert.Contains(t, out.String(), "no discrepancies")
}

func TestApp_UsageAndErrors(t *testing.T) {
	app, out, _ := newTestApp(t)
	ctx := context.Background()

	assert.Equal(t, 2, app.Run(ctx, nil))
	assert.Contains(t, out.String(), "Usage: gpgcloud")

	out.Reset()
	assert.Equal(t, 2, app.Run(ctx, []string{"bogus"}))
	assert.Contains(t, out.String(), "Unknown command: bogus")

	assert.Equal(t, 1, app.Run(ctx, []string{"restore", "absent"}))
	assert.Equal(t, 1, app.Run(ctx, []string{"backup", "/no/such/file"}))
}
