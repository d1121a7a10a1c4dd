package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/service/blocklist"
)

// BlockRepo implements blocklist.Repository against PostgreSQL.
type BlockRepo struct{ db *sql.DB }

// NewBlockRepo creates a Postgres-backed block list repository.
func NewBlockRepo(db *sql.DB) *BlockRepo { return &BlockRepo{db: db} }

func (r *BlockRepo) IsBlocked(ctx context.Context, recipientID, fingerprint string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM blocks WHERE recipient_id = $1 AND fingerprint = $2)`,
		recipientID, fingerprint,
	).Scan(&exists)
	return exists, err
}

// Add relies on the (recipient_id, fingerprint) unique key. The no-op update
// makes RETURNING yield the existing row on conflict.
func (r *BlockRepo) Add(ctx context.Context, e *domain.BlockEntry) (*domain.BlockEntry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	var out domain.BlockEntry
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO blocks (id, recipient_id, fingerprint, reason, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (recipient_id, fingerprint) DO UPDATE SET reason = blocks.reason
		RETURNING id, recipient_id, fingerprint, reason, created_at
	`, e.ID, e.RecipientID, e.Fingerprint, e.Reason).Scan(
		&out.ID, &out.RecipientID, &out.Fingerprint, &out.Reason, &out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("add block: %w", err)
	}
	return &out, nil
}

func (r *BlockRepo) Remove(ctx context.Context, recipientID, fingerprint string) error {
	return r.deleteOne(ctx,
		`DELETE FROM blocks WHERE recipient_id = $1 AND fingerprint = $2`, recipientID, fingerprint)
}

func (r *BlockRepo) RemoveByID(ctx context.Context, recipientID, id string) error {
	if !validID(id) {
		return blocklist.ErrNotFound
	}
	return r.deleteOne(ctx,
		`DELETE FROM blocks WHERE recipient_id = $1 AND id = $2`, recipientID, id)
}

func (r *BlockRepo) deleteOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("remove block: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return blocklist.ErrNotFound
	}
	return nil
}

func (r *BlockRepo) List(ctx context.Context, recipientID string) ([]domain.BlockEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recipient_id, fingerprint, reason, created_at
		FROM blocks
		WHERE recipient_id = $1
		ORDER BY created_at DESC
	`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	out := []domain.BlockEntry{}
	for rows.Next() {
		var e domain.BlockEntry
		if err := rows.Scan(&e.ID, &e.RecipientID, &e.Fingerprint, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
