package engine

import (
	"errors"
	"fmt"

	"github.com/gpgcloud/gpgcloud/internal/common"
)

// OpError carries the full context of a failed operation: which logical id,
// which operation, the underlying error kind, and whether retrying is
// sensible.
type OpError struct {
	Op        string
	LogicalID string
	Err       error

	// Retryable is true for transport failures. Quota, cryptographic and
	// integrity failures are never automatically retryable.
	Retryable bool
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.LogicalID, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opErr(op, logicalID string, err error) *OpError {
	return &OpError{
		Op:        op,
		LogicalID: logicalID,
		Err:       err,
		Retryable: errors.Is(err, common.ErrTransport),
	}
}
