package intake

import (
	"errors"
	"time"

	"github.com/ignite/whisperbox/internal/service/ratelimit"
)

// Error taxonomy surfaced to the API layer.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("recipient not found")
	ErrForbidden          = errors.New("you cannot send messages to this user")
	ErrRateLimited        = errors.New("rate limited")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// RateLimitedError carries the reset time of the sender's window.
// errors.Is(err, ErrRateLimited) matches it.
type RateLimitedError struct {
	ResetAt time.Time
	Now     time.Time
}

func (e *RateLimitedError) Error() string {
	return ratelimit.RetryMessage(e.ResetAt, e.Now)
}

// Is lets errors.Is match the ErrRateLimited sentinel.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfter is the wait until the window frees a slot, never negative.
func (e *RateLimitedError) RetryAfter() time.Duration {
	if d := e.ResetAt.Sub(e.Now); d > 0 {
		return d
	}
	return 0
}
