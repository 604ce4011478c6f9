package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/dbx"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/dmitrijs2005/gophrelief/internal/server/models"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO records (id, organization_name, location, public_supply_count, handle, creator, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.OrganizationName, rec.Location, int64(rec.PublicSupplyCount),
		rec.Handle[:], rec.Creator[:], rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return dbx.ExpectOneRow(res, common.ErrAlreadyExists)
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	query := `
		SELECT id, organization_name, location, public_supply_count, handle, creator, created_at,
		       verified, verified_victim_count
		FROM records WHERE id = $1`

	var (
		rec      models.Record
		supplies int64
		handle   []byte
		creator  []byte
		verified sql.NullInt64
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.OrganizationName, &rec.Location, &supplies, &handle, &creator, &rec.CreatedAt,
		&rec.Verified, &verified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	if len(handle) != len(rec.Handle) || len(creator) != keyx.AddressLength {
		return nil, fmt.Errorf("corrupt record %s", id)
	}
	copy(rec.Handle[:], handle)
	copy(rec.Creator[:], creator)
	rec.PublicSupplyCount = uint64(supplies)

	if verified.Valid {
		v := uint64(verified.Int64)
		rec.VerifiedVictimCount = &v
	}

	return &rec, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM records WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return ids, nil
}

// MarkVerified locks the row so that concurrent verifications serialise and
// exactly one of them observes the unverified state.
func (r *PostgresRepository) MarkVerified(ctx context.Context, id string, value uint64) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var verified bool
		err := tx.QueryRowContext(ctx, `SELECT verified FROM records WHERE id = $1 FOR UPDATE`, id).Scan(&verified)
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}
		if verified {
			return common.ErrAlreadyVerified
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE records SET verified = TRUE, verified_victim_count = $2 WHERE id = $1 AND verified = FALSE`,
			id, int64(value))
		if err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}

		return dbx.ExpectOneRow(res, common.ErrAlreadyVerified)
	})
}

func (r *PostgresRepository) SaveTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (hash, kind, record_id, sender, status, reason, block, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		t.Hash, string(t.Kind), t.RecordID, t.Sender[:], string(t.Status), t.Reason, int64(t.Block), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = $2, reason = $3, block = $4 WHERE hash = $1`,
		t.Hash, string(t.Status), t.Reason, int64(t.Block))
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return dbx.ExpectOneRow(res, common.ErrNotFound)
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, hash string) (*models.Transaction, error) {
	query := `
		SELECT hash, kind, record_id, sender, status, reason, block, created_at
		FROM transactions WHERE hash = $1`

	var (
		t      models.Transaction
		kind   string
		status string
		sender []byte
		block  int64
	)

	err := r.db.QueryRowContext(ctx, query, hash).Scan(
		&t.Hash, &kind, &t.RecordID, &sender, &status, &t.Reason, &block, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	t.Kind = models.TxKind(kind)
	t.Status = models.TxStatus(status)
	t.Block = uint64(block)
	copy(t.Sender[:], sender)

	return &t, nil
}

func (r *PostgresRepository) LastBlock(ctx context.Context) (uint64, error) {
	var last int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(block), 0) FROM transactions`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return uint64(last), nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
