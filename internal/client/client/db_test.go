package client

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestInitDatabase_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "journal.db")

	db, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.PingContext(ctx))

	for _, table := range []string{"goose_db_version", "operations", "known_nodes"} {
		require.True(t, tableExists(t, db, table), table)
	}
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "journal.db")

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))
	require.True(t, tableExists(t, db, "operations"))
}

func TestInitDatabase_PhaseConstraint(t *testing.T) {
	ctx := context.Background()

	db, err := InitDatabase(ctx, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, `INSERT INTO operations (at, phase, message) VALUES (1, 'pending', 'x')`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO operations (at, phase, message) VALUES (1, 'bogus', 'x')`)
	require.Error(t, err)
}
