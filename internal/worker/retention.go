package worker

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/whisperbox/internal/pkg/logger"
)

// retentionBatchSize limits each DELETE so the visits table is never locked for long.
const retentionBatchSize = 10000

// VisitRetention periodically removes visit rows older than the configured age.
// The hourly Redis counters expire on their own; this keeps the raw rows bounded.
type VisitRetention struct {
	db       *sql.DB
	maxAge   time.Duration
	interval time.Duration
	pause    time.Duration
	now      func() time.Time
}

// NewVisitRetention creates a retention worker.
func NewVisitRetention(db *sql.DB, maxAge, interval time.Duration) *VisitRetention {
	return &VisitRetention{
		db:       db,
		maxAge:   maxAge,
		interval: interval,
		pause:    100 * time.Millisecond,
		now:      time.Now,
	}
}

// Start runs a cycle immediately and then on every tick until ctx is cancelled.
func (v *VisitRetention) Start(ctx context.Context) {
	logger.Info("visit retention starting", "interval", v.interval.String(), "max_age", v.maxAge.String())

	v.RunOnce(ctx)

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("visit retention stopping")
			return
		case <-ticker.C:
			v.RunOnce(ctx)
		}
	}
}

// RunOnce prunes expired visits in batches and returns the number removed.
func (v *VisitRetention) RunOnce(ctx context.Context) int64 {
	start := time.Now()
	cutoff := v.now().Add(-v.maxAge)

	var total int64
	for ctx.Err() == nil {
		queryCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		res, err := v.db.ExecContext(queryCtx, `
			DELETE FROM visits
			WHERE id IN (
				SELECT id FROM visits
				WHERE created_at < $1
				LIMIT $2
			)`, cutoff, retentionBatchSize)
		cancel()
		if err != nil {
			if isUndefinedTable(err) {
				logger.Warn("visits table does not exist, skipping retention")
			} else {
				logger.Error("visit retention failed", "error", err, "deleted", total)
			}
			return total
		}

		affected, _ := res.RowsAffected()
		if affected == 0 {
			break
		}
		total += affected
		if affected < retentionBatchSize {
			break
		}
		time.Sleep(v.pause)
	}

	if total > 0 {
		logger.Info("visit retention cycle complete", "deleted", total, "took", time.Since(start).Round(time.Millisecond).String())
	}
	return total
}

// isUndefinedTable matches Postgres 42P01 so the worker tolerates unmigrated databases.
func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P01"
}
