package objects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/gpgcloud/gpgcloud/internal/common"
	"github.com/gpgcloud/gpgcloud/internal/dbx"
	"github.com/gpgcloud/gpgcloud/internal/migrations"
	"github.com/gpgcloud/gpgcloud/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens (or creates) the metadata database at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	// One connection: sqlite serializes writers anyway, and a pooled
	// in-memory DSN would get a separate database per connection.
	db.SetMaxOpenConns(1)
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate metadata db: %w", err)
	}
	return db, nil
}

const objectColumns = `logical_id, content_checksum, ciphertext_checksum, encrypted_size,
	backend_id, remote_path, sync_state, created_at, updated_at`

// Upsert inserts or replaces the record by logical id.
func (r *SQLiteRepository) Upsert(ctx context.Context, o *models.TrackedObject) error {
	query := `INSERT INTO objects (` + objectColumns + `)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(logical_id) DO UPDATE SET
				content_checksum = excluded.content_checksum,
				ciphertext_checksum = excluded.ciphertext_checksum,
				encrypted_size = excluded.encrypted_size,
				backend_id = excluded.backend_id,
				remote_path = excluded.remote_path,
				sync_state = excluded.sync_state,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		o.LogicalID, o.ContentChecksum, o.CiphertextChecksum, o.EncryptedSize,
		o.BackendID, o.RemotePath, string(o.State),
		o.CreatedAt.UTC(), o.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert object: %w", err)
	}
	return nil
}

// Get returns the record for logicalID, including tombstones.
func (r *SQLiteRepository) Get(ctx context.Context, logicalID string) (*models.TrackedObject, error) {
	query := `select ` + objectColumns + ` from objects where logical_id=?`
	row := r.db.QueryRowContext(ctx, query, logicalID)

	o, err := scanObject(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("object %q: %w", logicalID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select object: %w", err)
	}
	return o, nil
}

// List returns records matching the filter, ordered by logical id.
func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]*models.TrackedObject, error) {
	var conds []string
	var args []any

	if !f.IncludeTombstones {
		conds = append(conds, `sync_state <> ?`)
		args = append(args, string(models.StateDeleted))
	}
	if f.BackendID != "" {
		conds = append(conds, `backend_id = ?`)
		args = append(args, f.BackendID)
	}
	if len(f.States) > 0 {
		placeholders := make([]string, len(f.States))
		for i, s := range f.States {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		conds = append(conds, `sync_state IN (`+strings.Join(placeholders, ",")+`)`)
	}

	query := `select ` + objectColumns + ` from objects`
	if len(conds) > 0 {
		query += ` where ` + strings.Join(conds, " AND ")
	}
	query += ` order by logical_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select objects: %w", err)
	}
	defer rows.Close()

	var result []*models.TrackedObject
	for rows.Next() {
		o, err := scanObject(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete tombstones the record. It expects exactly one active row.
func (r *SQLiteRepository) Delete(ctx context.Context, logicalID string) error {
	query := `update objects set sync_state=?, updated_at=CURRENT_TIMESTAMP
			where logical_id=? and sync_state <> ?`
	res, err := r.db.ExecContext(ctx, query,
		string(models.StateDeleted), logicalID, string(models.StateDeleted))
	if err != nil {
		return fmt.Errorf("failed to tombstone object: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("object %q: %w", logicalID, common.ErrNotFound)
	}
	return nil
}

func scanObject(scan func(dest ...any) error) (*models.TrackedObject, error) {
	o := &models.TrackedObject{}
	var state string
	err := scan(&o.LogicalID, &o.ContentChecksum, &o.CiphertextChecksum, &o.EncryptedSize,
		&o.BackendID, &o.RemotePath, &state, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.State = models.SyncState(state)
	return o, nil
}
