package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gpgcloud/gpgcloud/internal/common"
)

const localTempDir = ".tmp"

// Local stores objects in a plain directory tree. It doubles as the
// reference Backend implementation and as a practical target for
// removable media or network mounts.
type Local struct {
	root string
}

// NewLocal creates the root (and its temp area) if needed.
func NewLocal(root string) (*Local, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(filepath.Join(root, localTempDir), 0o700); err != nil {
		return nil, fmt.Errorf("creating backend root: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) objectPath(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

// Put writes to a temporary file first and renames it into place, so the
// object either fully exists or does not.
func (l *Local) Put(ctx context.Context, path string, data []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := l.objectPath(path)
	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return Transport("put", err)
	}

	tmp := filepath.Join(l.root, localTempDir, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return l.putError(err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return l.putError(err)
	}
	return nil
}

func (l *Local) putError(err error) error {
	// ENOSPC comes back as "no space left on device".
	if strings.Contains(err.Error(), "no space left") {
		return fmt.Errorf("%w: %v", common.ErrQuotaExceeded, err)
	}
	return Transport("put", err)
}

func (l *Local) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.objectPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object %q: %w", path, common.ErrNotFound)
		}
		return nil, Transport("get", err)
	}
	return data, nil
}

func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	if err := ValidatePath(path); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(l.objectPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, Transport("stat", err)
	}
	return true, nil
}

// Delete is idempotent: removing an absent object succeeds.
func (l *Local) Delete(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(l.objectPath(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Transport("delete", err)
	}
	return nil
}

func (l *Local) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			if d.Name() == localTempDir {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix == "" || strings.HasPrefix(key, prefix) {
			paths = append(paths, key)
		}
		return nil
	})
	if err != nil {
		return nil, Transport("list", err)
	}
	return paths, nil
}
