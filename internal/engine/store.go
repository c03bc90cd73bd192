package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gpgcloud/gpgcloud/internal/backend"
	"github.com/gpgcloud/gpgcloud/internal/common"
	"github.com/gpgcloud/gpgcloud/internal/envelope"
	"github.com/gpgcloud/gpgcloud/internal/models"
)

// Store encrypts plaintext for recipient and uploads it to the named
// backend under a deterministic remote path. Calling it twice with the same
// logical id and identical plaintext performs at most one remote upload.
//
// The record moves pending → uploading → synced; each transition is
// persisted before the next network action, so a crash mid-upload leaves an
// uploading record that a later Store call resumes safely.
func (e *Engine) Store(ctx context.Context, logicalID string, plaintext []byte, recipient, backendID string) (*models.TrackedObject, error) {
	const op = "store"

	if err := backend.ValidatePath(logicalID); err != nil {
		return nil, opErr(op, logicalID, err)
	}
	be, err := e.backendFor(backendID)
	if err != nil {
		return nil, opErr(op, logicalID, err)
	}

	if !e.locks.acquire(logicalID) {
		return nil, opErr(op, logicalID, common.ErrBusy)
	}
	defer e.locks.release(logicalID)

	contentSum := sha256.Sum256(plaintext)
	contentChecksum := hex.EncodeToString(contentSum[:])

	rec, err := e.repo.Get(ctx, logicalID)
	switch {
	case err == nil:
		if rec.State == models.StateSynced && rec.ContentChecksum == contentChecksum {
			return rec, nil
		}
		if rec.State == models.StateSynced {
			// Content changed under a previously synced id. Demote
			// before anything touches the network.
			if err := e.persist(ctx, rec, models.StateStale); err != nil {
				return nil, opErr(op, logicalID, err)
			}
		}
	case errors.Is(err, common.ErrNotFound):
		rec = &models.TrackedObject{
			LogicalID: logicalID,
			CreatedAt: time.Now().UTC(),
		}
	default:
		return nil, opErr(op, logicalID, err)
	}

	remotePath := common.DefaultRemotePrefix + logicalID

	rec.ContentChecksum = contentChecksum
	rec.BackendID = backendID
	// The record carries no remote locator until the backend has
	// confirmed the bytes at the derived path.
	rec.RemotePath = ""
	if err := e.persist(ctx, rec, models.StatePending); err != nil {
		return nil, opErr(op, logicalID, err)
	}

	payload := plaintext
	algo := e.suite
	if e.compress {
		payload = e.zenc.EncodeAll(plaintext, nil)
		algo |= envelope.AlgoCompressed
	}

	ciphertext, err := e.cipher.Encrypt(payload, recipient)
	if err != nil {
		return nil, opErr(op, logicalID, err)
	}

	env := envelope.Encode(envelope.Header{
		Version:         envelope.FormatVersion,
		Algorithm:       algo,
		ContentChecksum: contentSum,
		PlaintextLength: uint64(len(plaintext)),
	}, ciphertext)

	rec.CiphertextChecksum = checksumHex(env)
	rec.EncryptedSize = int64(len(env))
	if err := e.persist(ctx, rec, models.StateUploading); err != nil {
		return nil, opErr(op, logicalID, err)
	}

	e.log.Debug(ctx, "uploading object",
		"logical_id", logicalID, "backend", backendID, "remote_path", remotePath, "size", rec.EncryptedSize)

	if err := e.putWithRetry(ctx, be, remotePath, env); err != nil {
		e.markFailed(ctx, rec)
		return nil, opErr(op, logicalID, err)
	}

	// Re-read what the backend stored. A transport that silently corrupts
	// bytes must never produce a synced record.
	stored, err := e.getWithRetry(ctx, be, remotePath)
	if err != nil {
		e.markFailed(ctx, rec)
		return nil, opErr(op, logicalID, err)
	}
	if checksumHex(stored) != rec.CiphertextChecksum {
		if derr := be.Delete(ctx, remotePath); derr != nil {
			e.log.Warn(ctx, "removing corrupted remote object",
				"logical_id", logicalID, "remote_path", remotePath, "error", derr)
		}
		e.markFailed(ctx, rec)
		return nil, opErr(op, logicalID,
			fmt.Errorf("%w: uploaded object reads back with a different checksum", common.ErrIntegrityViolation))
	}

	rec.RemotePath = remotePath
	if err := e.persist(ctx, rec, models.StateSynced); err != nil {
		return nil, opErr(op, logicalID, err)
	}

	e.log.Info(ctx, "object synced",
		"logical_id", logicalID, "backend", backendID, "remote_path", rec.RemotePath)
	return rec, nil
}
