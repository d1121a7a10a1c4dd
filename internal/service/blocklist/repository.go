package blocklist

import (
	"context"

	"github.com/ignite/whisperbox/internal/domain"
)

// Repository defines the data access contract for block entries.
type Repository interface {
	// IsBlocked reports whether recipientID has blocked fingerprint.
	IsBlocked(ctx context.Context, recipientID, fingerprint string) (bool, error)

	// Add stores a block. If the pair is already blocked the existing record
	// is kept and returned (idempotent).
	Add(ctx context.Context, e *domain.BlockEntry) (*domain.BlockEntry, error)

	// Remove deletes the block for a pair. Returns ErrNotFound if absent.
	Remove(ctx context.Context, recipientID, fingerprint string) error

	// RemoveByID deletes a block owned by recipientID. Returns ErrNotFound if absent.
	RemoveByID(ctx context.Context, recipientID, id string) error

	// List returns the recipient's blocks, newest first.
	List(ctx context.Context, recipientID string) ([]domain.BlockEntry, error)
}
