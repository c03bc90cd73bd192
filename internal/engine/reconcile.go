package engine

import (
	"context"
	"errors"
	"sort"

	"github.com/gpgcloud/gpgcloud/internal/common"
	"github.com/gpgcloud/gpgcloud/internal/models"
	"github.com/gpgcloud/gpgcloud/internal/repositories/objects"
)

// ReconcileReport summarizes the drift between local records and a
// backend's live listing.
type ReconcileReport struct {
	BackendID string

	// Tracked is the number of live local records for the backend.
	Tracked int

	// Matched is the number of synced records whose remote object exists.
	Matched int

	// Orphaned lists remote paths with no live local record. They are
	// reported, never deleted.
	Orphaned []string

	// Demoted lists logical ids of synced records whose remote object has
	// gone missing; each was demoted to upload_failed.
	Demoted []string
}

// Reconcile three-way diffs local records against the backend's live
// listing. It never mutates remote state: orphaned remote objects are only
// reported, and the single local mutation is demoting a synced record whose
// remote bytes are gone.
func (e *Engine) Reconcile(ctx context.Context, backendID string) (*ReconcileReport, error) {
	be, err := e.backendFor(backendID)
	if err != nil {
		return nil, err
	}

	remote, err := e.listWithRetry(ctx, be, common.DefaultRemotePrefix)
	if err != nil {
		return nil, err
	}
	remoteSet := make(map[string]struct{}, len(remote))
	for _, p := range remote {
		remoteSet[p] = struct{}{}
	}

	locals, err := e.repo.List(ctx, objects.Filter{BackendID: backendID, IncludeTombstones: true})
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{BackendID: backendID}
	claimed := make(map[string]struct{})

	for _, rec := range locals {
		if rec.Tombstoned() {
			// A tombstone claims nothing; a lingering remote copy from
			// a failed best-effort delete shows up as orphaned.
			continue
		}
		report.Tracked++
		claimed[rec.RemotePath] = struct{}{}

		_, present := remoteSet[rec.RemotePath]
		switch {
		case rec.State == models.StateSynced && present:
			report.Matched++
		case rec.State == models.StateSynced && !present:
			demoted, err := e.demoteLost(ctx, rec.LogicalID)
			if err != nil {
				return nil, err
			}
			if demoted {
				report.Demoted = append(report.Demoted, rec.LogicalID)
				e.log.Warn(ctx, "remote object lost",
					"logical_id", rec.LogicalID, "backend", backendID, "remote_path", rec.RemotePath)
			}
		}
		// pending, uploading, stale and upload_failed records are left
		// untouched; their remote presence is transient by definition.
	}

	for _, p := range remote {
		if _, ok := claimed[p]; !ok {
			report.Orphaned = append(report.Orphaned, p)
		}
	}

	sort.Strings(report.Orphaned)
	sort.Strings(report.Demoted)

	e.log.Info(ctx, "reconcile complete",
		"backend", backendID, "tracked", report.Tracked, "matched", report.Matched,
		"orphaned", len(report.Orphaned), "demoted", len(report.Demoted))
	return report, nil
}

// demoteLost downgrades a synced record to upload_failed under the per-id
// lock. The listing snapshot may be stale by the time it is acted on, so the
// record is re-read and left alone when another operation holds the id or
// already moved it out of synced.
func (e *Engine) demoteLost(ctx context.Context, logicalID string) (bool, error) {
	if !e.locks.acquire(logicalID) {
		return false, nil
	}
	defer e.locks.release(logicalID)

	cur, err := e.repo.Get(ctx, logicalID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if cur.State != models.StateSynced {
		return false, nil
	}
	if err := e.persist(ctx, cur, models.StateUploadFailed); err != nil {
		return false, err
	}
	return true, nil
}
