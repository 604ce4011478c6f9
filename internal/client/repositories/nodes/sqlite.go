// Package nodes remembers the identity of every node the CLI has connected
// to, so that a node later presenting a different contract or oracle key is
// noticed.
package nodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/dbx"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

type Repository interface {
	Get(ctx context.Context, endpoint string) (*models.KnownNode, error)
	Pin(ctx context.Context, n models.KnownNode) error
	Forget(ctx context.Context, endpoint string) error
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns common.ErrNotFound for an endpoint never pinned.
func (r *SQLiteRepository) Get(ctx context.Context, endpoint string) (*models.KnownNode, error) {
	var (
		contract  string
		firstSeen int64
		n         = &models.KnownNode{Endpoint: endpoint}
	)

	query := `SELECT contract, oracle, first_seen FROM known_nodes WHERE endpoint = ?`
	err := r.db.QueryRowContext(ctx, query, endpoint).Scan(&contract, &n.Oracle, &firstSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", endpoint, err)
	}

	if n.Contract, err = keyx.ParseAddress(contract); err != nil {
		return nil, fmt.Errorf("node %s: %w", endpoint, err)
	}
	n.FirstSeen = time.Unix(0, firstSeen)
	return n, nil
}

// Pin records n unless its endpoint is already pinned.
func (r *SQLiteRepository) Pin(ctx context.Context, n models.KnownNode) error {
	if n.FirstSeen.IsZero() {
		n.FirstSeen = time.Now()
	}

	query := `INSERT INTO known_nodes (endpoint, contract, oracle, first_seen) VALUES (?, ?, ?, ?)
		ON CONFLICT(endpoint) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, n.Endpoint, n.Contract.Hex(), n.Oracle, n.FirstSeen.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to pin node %s: %w", n.Endpoint, err)
	}
	return dbx.ExpectOneRow(res, common.ErrAlreadyExists)
}

func (r *SQLiteRepository) Forget(ctx context.Context, endpoint string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM known_nodes WHERE endpoint = ?`, endpoint); err != nil {
		return fmt.Errorf("failed to forget node %s: %w", endpoint, err)
	}
	return nil
}
