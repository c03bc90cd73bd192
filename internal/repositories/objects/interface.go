// Package objects persists TrackedObject records, the durable local view
// of what has been encrypted and where it lives remotely.
package objects

import (
	"context"

	"github.com/gpgcloud/gpgcloud/internal/models"
)

// Filter narrows List results. Zero value lists every non-tombstoned
// record.
type Filter struct {
	// States keeps only records in one of the given states.
	States []models.SyncState

	// BackendID keeps only records placed on the given backend.
	BackendID string

	// IncludeTombstones also returns deleted records. Reconciliation needs
	// them to tell a removed object from an orphan.
	IncludeTombstones bool
}

// Repository describes the metadata store contract. All mutations are
// transactional: readers observe a record transition fully or not at all.
type Repository interface {
	// Upsert inserts or replaces the record keyed by LogicalID.
	Upsert(ctx context.Context, o *models.TrackedObject) error

	// Get returns the record for logicalID, tombstoned or not.
	// Fails with common.ErrNotFound when no record exists.
	Get(ctx context.Context, logicalID string) (*models.TrackedObject, error)

	// List returns records matching the filter.
	List(ctx context.Context, f Filter) ([]*models.TrackedObject, error)

	// Delete tombstones the record rather than purging it.
	// Fails with common.ErrNotFound when no active record exists.
	Delete(ctx context.Context, logicalID string) error
}
