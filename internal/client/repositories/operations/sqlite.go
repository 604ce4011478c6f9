package operations

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Append(ctx context.Context, s models.TxStatus) error {
	at := s.At
	if at.IsZero() {
		at = time.Now()
	}

	query := `INSERT INTO operations (at, phase, message, record_id, tx_hash) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, at.UnixNano(), string(s.Phase), s.Message, s.RecordID, s.TxHash); err != nil {
		return fmt.Errorf("failed to append operation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]models.TxStatus, error) {
	query := `SELECT at, phase, message, record_id, tx_hash FROM operations ORDER BY seq DESC LIMIT ?`
	return r.query(ctx, query, limit)
}

func (r *SQLiteRepository) ForRecord(ctx context.Context, recordID string) ([]models.TxStatus, error) {
	query := `SELECT at, phase, message, record_id, tx_hash FROM operations WHERE record_id = ? ORDER BY seq`
	return r.query(ctx, query, recordID)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.TxStatus, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select operations: %w", err)
	}
	defer rows.Close()

	result := []models.TxStatus{}
	for rows.Next() {
		var (
			s     models.TxStatus
			at    int64
			phase string
		)
		if err := rows.Scan(&at, &phase, &s.Message, &s.RecordID, &s.TxHash); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		s.At = time.Unix(0, at)
		s.Phase = models.TxPhase(phase)
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}
	return result, nil
}
