package dbx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// Both the pooled handle and a transaction must satisfy DBTX, so repository
// code can run against either without caring which it was given.
func TestDBTX_SatisfiedByDBAndTx(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)

	insert := func(ctx context.Context, h DBTX, v string) error {
		_, err := h.ExecContext(ctx, `INSERT INTO t(v) VALUES (?)`, v)
		return err
	}

	ctx := context.Background()
	require.NoError(t, insert(ctx, db, "direct"))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, insert(ctx, tx, "transactional"))
	require.NoError(t, tx.Commit())

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&n))
	require.Equal(t, 2, n)
}
