// Package models defines the metadata records tracked for every encrypted
// object.
package models

import "time"

// SyncState classifies where a tracked object is in its upload lifecycle.
type SyncState string

const (
	// StatePending means the object is registered locally but no transfer
	// has started for its current content.
	StatePending SyncState = "pending"

	// StateUploading means a transfer is in flight. A record left in this
	// state after a crash is safe to resume.
	StateUploading SyncState = "uploading"

	// StateSynced means an integrity-verified transfer completed for the
	// current content checksum.
	StateSynced SyncState = "synced"

	// StateStale means local content changed after a prior sync.
	StateStale SyncState = "stale"

	// StateUploadFailed means the last transfer attempt failed; the
	// operation may be retried.
	StateUploadFailed SyncState = "upload_failed"

	// StateDeleted marks a tombstone. Tombstones are retained so that
	// reconciliation can tell a removed object from an orphan.
	StateDeleted SyncState = "deleted"
)

// TrackedObject is the unit of synchronization: one logical object and its
// remote placement.
//
// Invariants maintained by the sync engine:
//   - LogicalID is unique among non-tombstoned records.
//   - State is StateSynced only after an integrity-verified transfer of the
//     current ContentChecksum.
//   - RemotePath is set only after the backend confirmed the object exists
//     at that location.
type TrackedObject struct {
	// LogicalID is the stable, caller-chosen identifier. Immutable.
	LogicalID string

	// ContentChecksum is the SHA-256 of the plaintext, hex-encoded.
	ContentChecksum string

	// CiphertextChecksum is the SHA-256 of the encrypted envelope,
	// hex-encoded. Used for transfer-integrity verification.
	CiphertextChecksum string

	// EncryptedSize is the byte length of the envelope.
	EncryptedSize int64

	// BackendID names the backend holding the remote copy.
	BackendID string

	// RemotePath is the backend-specific locator, empty until an upload
	// has been verified.
	RemotePath string

	// State is the current lifecycle state.
	State SyncState

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tombstoned reports whether the record is a retained deletion marker.
func (o *TrackedObject) Tombstoned() bool {
	return o.State == StateDeleted
}
