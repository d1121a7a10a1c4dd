package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ignite/whisperbox/internal/pkg/logger"
)

// Defaults for anonymous message sends.
const (
	DefaultLimit  = 10
	DefaultWindow = time.Hour
)

// Config controls the limiter.
type Config struct {
	Limit    int
	Window   time.Duration
	FailOpen bool
}

// Decision is the outcome of one check.
type Decision struct {
	Allowed bool `json:"allowed"`
	// Remaining is how many more sends fit in the window once this one is stored.
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	// Degraded is set when the backend failed and the limiter failed open.
	Degraded bool `json:"-"`
}

// Limiter checks senders against the sliding window. Safe for concurrent use.
type Limiter struct {
	repo Repository
	cfg  Config
	now  func() time.Time
}

// NewLimiter creates a limiter. Non-positive limits or windows fall back to
// the defaults.
func NewLimiter(repo Repository, cfg Config) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Limiter{repo: repo, cfg: cfg, now: time.Now}
}

// WithClock returns a copy of l reading time from now.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	return &Limiter{repo: l.repo, cfg: l.cfg, now: now}
}

// Limit returns the configured per-window limit.
func (l *Limiter) Limit() int { return l.cfg.Limit }

// Check decides whether fingerprint may send one more message now.
//
// resetAt is derived from the oldest message still inside the window: that
// is the moment one slot frees up. With an empty window it is now+window.
func (l *Limiter) Check(ctx context.Context, fingerprint string) (Decision, error) {
	now := l.now().UTC()
	count, oldest, err := l.repo.WindowStats(ctx, fingerprint, now.Add(-l.cfg.Window))
	if err != nil {
		if !l.cfg.FailOpen {
			return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		logger.Warn("ratelimit: window lookup failed, allowing send", "error", err)
		return Decision{
			Allowed:   true,
			Remaining: l.cfg.Limit - 1,
			ResetAt:   now.Add(l.cfg.Window),
			Degraded:  true,
		}, nil
	}

	resetAt := now.Add(l.cfg.Window)
	if count > 0 && !oldest.IsZero() {
		resetAt = oldest.UTC().Add(l.cfg.Window)
	}

	if count >= l.cfg.Limit {
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}
	return Decision{
		Allowed:   true,
		Remaining: l.cfg.Limit - (count + 1),
		ResetAt:   resetAt,
	}, nil
}

// RetryMessage renders the wait until resetAt for a sender, rounded up to
// whole minutes: "Too many messages. Try again in 42 minutes."
func RetryMessage(resetAt, now time.Time) string {
	minutes := int(math.Ceil(resetAt.Sub(now).Minutes()))
	if minutes <= 1 {
		return "Too many messages. Try again in 1 minute."
	}
	return fmt.Sprintf("Too many messages. Try again in %d minutes.", minutes)
}
