// Package engine orchestrates the lifecycle of encrypted objects: encrypt,
// register in the metadata store, transfer through a backend, verify, and
// reconcile drift between local records and remote listings.
//
// Every state transition is persisted locally before the next network action
// begins, so a crash at any point leaves a record that is safely resumable,
// never a synced record unbacked by verified remote bytes.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sethvargo/go-retry"

	"github.com/gpgcloud/gpgcloud/internal/backend"
	"github.com/gpgcloud/gpgcloud/internal/common"
	"github.com/gpgcloud/gpgcloud/internal/cryptox"
	"github.com/gpgcloud/gpgcloud/internal/envelope"
	"github.com/gpgcloud/gpgcloud/internal/logging"
	"github.com/gpgcloud/gpgcloud/internal/models"
	"github.com/gpgcloud/gpgcloud/internal/repositories/objects"
)

// Options configures a new Engine.
type Options struct {
	Repo     objects.Repository
	Backends map[string]backend.Backend
	Cipher   cryptox.Cipher

	// Suite is the cipher suite identifier written into envelope headers,
	// envelope.AlgoOpenPGP by default.
	Suite uint8

	// Compress enables zstd compression of plaintext before encryption.
	Compress bool

	// Backoff builds a fresh retry schedule per network call sequence.
	// Transport errors are retried against it; everything else fails fast.
	Backoff func() retry.Backoff

	// CallTimeout bounds each individual backend call, so a hung
	// connection surfaces as a retryable fault instead of stalling the
	// operation. One minute when zero.
	CallTimeout time.Duration

	Logger logging.Logger
}

// Engine is the synchronization core. It is safe for concurrent use; calls
// for the same logical id are serialized by a per-id exclusion lock.
type Engine struct {
	repo        objects.Repository
	backends    map[string]backend.Backend
	cipher      cryptox.Cipher
	suite       uint8
	compress    bool
	backoff     func() retry.Backoff
	callTimeout time.Duration
	log         logging.Logger

	locks *lockTable
	zenc  *zstd.Encoder
	zdec  *zstd.Decoder
}

func New(opts Options) (*Engine, error) {
	if opts.Repo == nil {
		return nil, errors.New("engine: metadata repository is required")
	}
	if opts.Cipher == nil {
		return nil, errors.New("engine: cipher is required")
	}
	if len(opts.Backends) == 0 {
		return nil, errors.New("engine: at least one backend is required")
	}
	if opts.Suite == 0 {
		opts.Suite = envelope.AlgoOpenPGP
	}
	if opts.Backoff == nil {
		opts.Backoff = defaultBackoff
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	zenc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("engine: init compressor: %w", err)
	}
	zdec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("engine: init decompressor: %w", err)
	}

	return &Engine{
		repo:        opts.Repo,
		backends:    opts.Backends,
		cipher:      opts.Cipher,
		suite:       opts.Suite,
		compress:    opts.Compress,
		backoff:     opts.Backoff,
		callTimeout: opts.CallTimeout,
		log:         opts.Logger,
		locks:       newLockTable(),
		zenc:        zenc,
		zdec:        zdec,
	}, nil
}

func defaultBackoff() retry.Backoff {
	b := retry.NewExponential(500 * time.Millisecond)
	b = retry.WithCappedDuration(10*time.Second, b)
	return retry.WithMaxRetries(4, b)
}

func (e *Engine) backendFor(backendID string) (backend.Backend, error) {
	be, ok := e.backends[backendID]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", backendID)
	}
	return be, nil
}

// persist records a state transition durably before any further network
// action is taken against it.
func (e *Engine) persist(ctx context.Context, o *models.TrackedObject, state models.SyncState) error {
	o.State = state
	o.UpdatedAt = time.Now().UTC()
	return e.repo.Upsert(ctx, o)
}

// markFailed best-effort persists the upload_failed state. The original
// failure is what the caller needs to see, so persistence errors are only
// logged.
func (e *Engine) markFailed(ctx context.Context, o *models.TrackedObject) {
	if err := e.persist(ctx, o, models.StateUploadFailed); err != nil {
		e.log.Error(ctx, "persisting upload_failed state", "logical_id", o.LogicalID, "error", err)
	}
}

// attempt runs a single backend call under the per-call deadline. Hitting
// that deadline means the backend hung, not that the caller gave up, so it
// counts as a transport fault and stays retryable as long as the caller's
// own context is still live.
func (e *Engine) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	err := fn(callCtx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w: backend call exceeded %s", common.ErrTransport, e.callTimeout)
	}
	if errors.Is(err, common.ErrTransport) {
		return retry.RetryableError(err)
	}
	return err
}

func (e *Engine) putWithRetry(ctx context.Context, be backend.Backend, path string, data []byte) error {
	return retry.Do(ctx, e.backoff(), func(ctx context.Context) error {
		return e.attempt(ctx, func(ctx context.Context) error {
			return be.Put(ctx, path, data)
		})
	})
}

func (e *Engine) getWithRetry(ctx context.Context, be backend.Backend, path string) ([]byte, error) {
	var data []byte
	err := retry.Do(ctx, e.backoff(), func(ctx context.Context) error {
		return e.attempt(ctx, func(ctx context.Context) error {
			var err error
			data, err = be.Get(ctx, path)
			return err
		})
	})
	return data, err
}

func (e *Engine) listWithRetry(ctx context.Context, be backend.Backend, prefix string) ([]string, error) {
	var paths []string
	err := retry.Do(ctx, e.backoff(), func(ctx context.Context) error {
		return e.attempt(ctx, func(ctx context.Context) error {
			var err error
			paths, err = be.List(ctx, prefix)
			return err
		})
	})
	return paths, err
}

func checksumHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
