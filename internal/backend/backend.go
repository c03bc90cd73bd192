// Package backend defines the uniform storage capability the sync engine
// moves bytes through. A new provider is added by implementing Backend;
// the engine has no provider-specific branches.
//
// Adapters surface raw outcomes and never retry internally; retry policy
// lives in the engine.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gpgcloud/gpgcloud/internal/common"
)

const maxPathLength = 1024

var (
	ErrEmptyPath   = errors.New("remote path cannot be empty")
	ErrInvalidPath = errors.New("remote path contains invalid characters")
)

// Backend is one storage provider namespace.
type Backend interface {
	// Put uploads data to path. The upload is atomic from the caller's
	// perspective: a partial failure must not leave an object that reads
	// back with wrong content. Providers without atomic replace upload to
	// a temporary path and rename.
	// Errors: common.ErrTransport, common.ErrQuotaExceeded.
	Put(ctx context.Context, path string, data []byte) error

	// Get downloads the object at path.
	// Errors: common.ErrNotFound, common.ErrTransport.
	Get(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether an object is present at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes the object at path. Deleting an absent object is not
	// an error.
	Delete(ctx context.Context, path string) error

	// List returns the live set of paths under prefix, never a cached view.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ValidatePath rejects paths that could escape a backend namespace or that
// providers handle inconsistently.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > maxPathLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidPath, maxPathLength)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path traversal not allowed: %w", ErrInvalidPath)
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("null bytes not allowed: %w", ErrInvalidPath)
	}
	if strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return fmt.Errorf("path cannot start or end with slash: %w", ErrInvalidPath)
	}
	if strings.Contains(path, "//") {
		return fmt.Errorf("consecutive slashes not allowed: %w", ErrInvalidPath)
	}
	for i, r := range path {
		if !isValidPathChar(r) {
			return fmt.Errorf("invalid character %q at position %d: %w", r, i, ErrInvalidPath)
		}
	}
	return nil
}

// isValidPathChar reports whether r is allowed in a remote path:
// alphanumeric, hyphen, underscore, dot, forward slash.
func isValidPathChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r == '-' || r == '_' || r == '.' || r == '/'
}

// Transport wraps a provider error as a retryable transport failure.
func Transport(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrTransport, op, err)
}
