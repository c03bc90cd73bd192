// Package common defines shared constants and sentinel errors used across
// GPGCloud components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Crypto adapter errors.
	ErrKeyUnavailable     = errors.New("recipient key unavailable")
	ErrEncryptionFailed   = errors.New("encryption failed")
	ErrDecryptionFailed   = errors.New("decryption failed")
	ErrIntegrityViolation = errors.New("integrity violation")

	// Object codec errors.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// Backend adapter errors. ErrTransport is retryable, ErrQuotaExceeded
	// is not.
	ErrTransport     = errors.New("transport error")
	ErrQuotaExceeded = errors.New("quota exceeded")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Engine-level errors.
	ErrBusy             = errors.New("operation in flight for this object")
	ErrConflictingState = errors.New("conflicting metadata state")
)
