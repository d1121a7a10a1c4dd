package inbox

import (
	"context"
	"time"

	"github.com/ignite/whisperbox/internal/domain"
)

// Repository defines recipient-scoped message access. Every method takes the
// recipient ID and must not touch rows owned by anyone else.
type Repository interface {
	List(ctx context.Context, recipientID string, q ListQuery) ([]domain.Message, error)
	Counts(ctx context.Context, recipientID string) (Counts, error)
	Get(ctx context.Context, recipientID, id string) (*domain.Message, error)
	// MarkRead sets is_read and keeps an existing read_at.
	MarkRead(ctx context.Context, recipientID, id string, at time.Time) error
	SetFlag(ctx context.Context, recipientID, id string, flagged bool) error
	Delete(ctx context.Context, recipientID, id string) error
	// BySender returns all of the recipient's messages from one fingerprint.
	BySender(ctx context.Context, recipientID, fingerprint string) ([]domain.Message, error)
}

// ListQuery selects and pages an inbox.
type ListQuery struct {
	Filter domain.MessageFilter
	Limit  int
	Offset int
}

// Counts summarises an inbox.
type Counts struct {
	Total   int `json:"total"`
	Unread  int `json:"unread"`
	Flagged int `json:"flagged"`
}
