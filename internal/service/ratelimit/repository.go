package ratelimit

import (
	"context"
	"time"
)

// Repository reads the sender's message history.
type Repository interface {
	// WindowStats returns how many messages the fingerprint created at or
	// after since, and the creation time of the oldest of them. oldest is the
	// zero time when count is 0.
	WindowStats(ctx context.Context, fingerprint string, since time.Time) (count int, oldest time.Time, err error)
}
