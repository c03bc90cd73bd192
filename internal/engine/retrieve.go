package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/gpgcloud/gpgcloud/internal/common"
	"github.com/gpgcloud/gpgcloud/internal/envelope"
	"github.com/gpgcloud/gpgcloud/internal/models"
)

// RetrieveInfo describes the object a Retrieve call returned.
type RetrieveInfo struct {
	Object *models.TrackedObject

	// IntegrityWarning is set when the decrypted content verifies against
	// its own envelope but no longer matches the local record's checksum.
	// The plaintext is still returned; the record is demoted to stale.
	IntegrityWarning bool
}

// Retrieve downloads, decrypts and verifies the object tracked under
// logicalID and returns its plaintext.
func (e *Engine) Retrieve(ctx context.Context, logicalID string) ([]byte, *RetrieveInfo, error) {
	const op = "retrieve"

	if !e.locks.acquire(logicalID) {
		return nil, nil, opErr(op, logicalID, common.ErrBusy)
	}
	defer e.locks.release(logicalID)

	rec, err := e.repo.Get(ctx, logicalID)
	if err != nil {
		return nil, nil, opErr(op, logicalID, err)
	}
	if rec.Tombstoned() {
		return nil, nil, opErr(op, logicalID, fmt.Errorf("%w: object was removed", common.ErrNotFound))
	}
	if rec.RemotePath == "" {
		if rec.State == models.StateSynced {
			// A synced record always carries its verified locator. A record
			// claiming both is corrupt metadata, not a missing object.
			return nil, nil, opErr(op, logicalID,
				fmt.Errorf("%w: synced record without a remote path", common.ErrConflictingState))
		}
		return nil, nil, opErr(op, logicalID, fmt.Errorf("%w: object was never uploaded", common.ErrNotFound))
	}

	be, err := e.backendFor(rec.BackendID)
	if err != nil {
		return nil, nil, opErr(op, logicalID, err)
	}

	env, err := e.getWithRetry(ctx, be, rec.RemotePath)
	if err != nil {
		return nil, nil, opErr(op, logicalID, err)
	}

	h, ciphertext, err := envelope.Decode(env)
	if err != nil {
		return nil, nil, opErr(op, logicalID, err)
	}

	payload, err := e.cipher.Decrypt(ciphertext)
	if err != nil {
		return nil, nil, opErr(op, logicalID, err)
	}

	plaintext := payload
	if h.Compressed() {
		plaintext, err = e.zdec.DecodeAll(payload, nil)
		if err != nil {
			return nil, nil, opErr(op, logicalID,
				fmt.Errorf("%w: decompression failed: %v", common.ErrMalformedEnvelope, err))
		}
	}
	if uint64(len(plaintext)) != h.PlaintextLength {
		return nil, nil, opErr(op, logicalID,
			fmt.Errorf("%w: declared plaintext length %d, got %d",
				common.ErrMalformedEnvelope, h.PlaintextLength, len(plaintext)))
	}

	sum := sha256.Sum256(plaintext)
	if !bytes.Equal(sum[:], h.ContentChecksum[:]) {
		return nil, nil, opErr(op, logicalID,
			fmt.Errorf("%w: decrypted content does not match its envelope checksum", common.ErrIntegrityViolation))
	}

	info := &RetrieveInfo{Object: rec}
	if hex.EncodeToString(sum[:]) != rec.ContentChecksum {
		// The remote object is internally consistent but is not the
		// content the local record promises. Surface the plaintext
		// anyway and flag the record rather than failing silently.
		info.IntegrityWarning = true
		e.log.Warn(ctx, "retrieved content diverges from local record",
			"logical_id", logicalID, "remote_path", rec.RemotePath)
		if err := e.persist(ctx, rec, models.StateStale); err != nil {
			return nil, nil, opErr(op, logicalID, err)
		}
	}

	return plaintext, info, nil
}

// Remove tombstones the record and best-effort deletes the remote object.
// The tombstone is persisted first, so a failed remote delete leaves an
// orphan that Reconcile reports rather than a live record without bytes.
func (e *Engine) Remove(ctx context.Context, logicalID string) error {
	const op = "remove"

	if !e.locks.acquire(logicalID) {
		return opErr(op, logicalID, common.ErrBusy)
	}
	defer e.locks.release(logicalID)

	rec, err := e.repo.Get(ctx, logicalID)
	if err != nil {
		return opErr(op, logicalID, err)
	}
	if rec.Tombstoned() {
		return opErr(op, logicalID, fmt.Errorf("%w: object already removed", common.ErrNotFound))
	}

	if err := e.repo.Delete(ctx, logicalID); err != nil {
		return opErr(op, logicalID, err)
	}

	if rec.RemotePath == "" {
		return nil
	}
	be, err := e.backendFor(rec.BackendID)
	if err != nil {
		e.log.Warn(ctx, "remote copy left behind", "logical_id", logicalID, "error", err)
		return nil
	}
	if err := be.Delete(ctx, rec.RemotePath); err != nil && !errors.Is(err, common.ErrNotFound) {
		e.log.Warn(ctx, "remote copy left behind",
			"logical_id", logicalID, "remote_path", rec.RemotePath, "error", err)
	}
	return nil
}
