package intake

import (
	"context"

	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/service/ratelimit"
)

// Profiles resolves recipients. Unknown usernames return profile.ErrNotFound.
type Profiles interface {
	ByUsername(ctx context.Context, username string) (*domain.Profile, error)
}

// MessageStore persists accepted messages.
type MessageStore interface {
	Create(ctx context.Context, m *domain.Message) error
}

// BlockGate is the block list check.
type BlockGate interface {
	IsBlocked(ctx context.Context, recipientID, fingerprint string) (bool, error)
}

// RateLimiter is the sliding-window check.
type RateLimiter interface {
	Check(ctx context.Context, fingerprint string) (ratelimit.Decision, error)
}

// Notifier hands a new-message notification to the dispatch path. It must
// not block on delivery and has no error to report.
type Notifier interface {
	Notify(ctx context.Context, n domain.NewMessageNotification)
}

// Locker serializes check+insert per fingerprint. Optional.
type Locker interface {
	Run(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
