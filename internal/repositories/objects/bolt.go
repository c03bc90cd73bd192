package objects

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/gpgcloud/gpgcloud/internal/common"
	"github.com/gpgcloud/gpgcloud/internal/models"
)

var bucketObjects = []byte("objects")

// BoltRepository implements Repository on a single-file bbolt database.
// Useful where sqlite is unwanted (small installs, read-mostly tooling);
// bbolt transactions give the same all-or-nothing visibility.
type BoltRepository struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the bbolt database at dbPath. The parent
// directory is created if it does not exist.
func OpenBolt(dbPath string) (*BoltRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("objects: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("objects: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketObjects)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("objects: create bucket: %w", err)
	}

	return &BoltRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *BoltRepository) Close() error { return r.db.Close() }

func (r *BoltRepository) Upsert(ctx context.Context, o *models.TrackedObject) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("objects: encode record: %w", err)
	}
	err = r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketObjects).Put([]byte(o.LogicalID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert object: %w", err)
	}
	return nil
}

func (r *BoltRepository) Get(ctx context.Context, logicalID string) (*models.TrackedObject, error) {
	var o *models.TrackedObject
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketObjects).Get([]byte(logicalID))
		if data == nil {
			return fmt.Errorf("object %q: %w", logicalID, common.ErrNotFound)
		}
		o = &models.TrackedObject{}
		return json.Unmarshal(data, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *BoltRepository) List(ctx context.Context, f Filter) ([]*models.TrackedObject, error) {
	var result []*models.TrackedObject
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketObjects).ForEach(func(_, data []byte) error {
			o := &models.TrackedObject{}
			if err := json.Unmarshal(data, o); err != nil {
				return err
			}
			if matchFilter(o, f) {
				result = append(result, o)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select objects: %w", err)
	}
	return result, nil
}

func (r *BoltRepository) Delete(ctx context.Context, logicalID string) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		data := b.Get([]byte(logicalID))
		if data == nil {
			return fmt.Errorf("object %q: %w", logicalID, common.ErrNotFound)
		}
		o := &models.TrackedObject{}
		if err := json.Unmarshal(data, o); err != nil {
			return err
		}
		if o.State == models.StateDeleted {
			return fmt.Errorf("object %q: %w", logicalID, common.ErrNotFound)
		}
		o.State = models.StateDeleted
		o.UpdatedAt = time.Now().UTC()
		updated, err := json.Marshal(o)
		if err != nil {
			return err
		}
		return b.Put([]byte(logicalID), updated)
	})
	return err
}

func matchFilter(o *models.TrackedObject, f Filter) bool {
	if !f.IncludeTombstones && o.State == models.StateDeleted {
		return false
	}
	if f.BackendID != "" && o.BackendID != f.BackendID {
		return false
	}
	if len(f.States) > 0 {
		found := false
		for _, s := range f.States {
			if o.State == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
