package nodes

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/client/client"
	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPinAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	seen := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	n := models.KnownNode{
		Endpoint:  "127.0.0.1:50051",
		Contract:  keyx.Address{0xc0, 0x17},
		Oracle:    []byte{1, 2, 3},
		FirstSeen: seen,
	}
	require.NoError(t, r.Pin(ctx, n))

	got, err := r.Get(ctx, n.Endpoint)
	require.NoError(t, err)
	assert.Equal(t, n.Contract, got.Contract)
	assert.Equal(t, n.Oracle, got.Oracle)
	assert.True(t, seen.Equal(got.FirstSeen))
}

func TestPin_KeepsFirstIdentity(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Pin(ctx, models.KnownNode{Endpoint: "n", Contract: keyx.Address{1}, Oracle: []byte{1}}))
	err := r.Pin(ctx, models.KnownNode{Endpoint: "n", Contract: keyx.Address{2}, Oracle: []byte{2}})
	require.ErrorIs(t, err, common.ErrAlreadyExists)

	got, err := r.Get(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, keyx.Address{1}, got.Contract)
}

func TestGet_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	_, err := r.Get(context.Background(), "nowhere")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestForget(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Pin(ctx, models.KnownNode{Endpoint: "n", Contract: keyx.Address{1}, Oracle: []byte{1}}))
	require.NoError(t, r.Forget(ctx, "n"))
	require.NoError(t, r.Forget(ctx, "n"))

	_, err := r.Get(ctx, "n")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.NoError(t, r.Pin(ctx, models.KnownNode{Endpoint: "n", Contract: keyx.Address{2}, Oracle: []byte{2}}))
}
