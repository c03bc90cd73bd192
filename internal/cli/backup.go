package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gpgcloud/gpgcloud/internal/engine"
)

func (a *App) backup(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: backup <file-or-dir> [logical-id]")
	}
	path := args[0]
	logicalID := filepath.Base(path)
	if len(args) > 1 {
		logicalID = args[1]
	}
	if a.config.Recipient == "" {
		return fmt.Errorf("no recipient configured (use -r or the config file)")
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	eng, err := a.newEngine(false)
	if err != nil {
		return err
	}

	if info.IsDir() {
		return a.backupDir(ctx, eng, path, logicalID)
	}

	plaintext, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	rec, err := eng.Store(ctx, logicalID, plaintext, a.config.Recipient, a.backendID(""))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s synced to %s:%s (%d bytes encrypted)\n",
		rec.LogicalID, rec.BackendID, rec.RemotePath, rec.EncryptedSize)
	return nil
}

// backupDir walks dir and stores every regular file under a logical id of
// prefix plus the slash-separated path relative to dir. Symlinks, sockets
// and other irregular entries are skipped.
func (a *App) backupDir(ctx context.Context, eng *engine.Engine, dir, prefix string) error {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		logicalID := prefix + "/" + filepath.ToSlash(rel)

		plaintext, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		rec, err := eng.Store(ctx, logicalID, plaintext, a.config.Recipient, a.backendID(""))
		if err != nil {
			return fmt.Errorf("backing up %s: %w", path, err)
		}
		count++
		fmt.Fprintf(a.out, "%s synced to %s:%s (%d bytes encrypted)\n",
			rec.LogicalID, rec.BackendID, rec.RemotePath, rec.EncryptedSize)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%d files synced from %s\n", count, dir)
	return nil
}
