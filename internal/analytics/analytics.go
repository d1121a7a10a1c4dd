// Package analytics keeps per-profile visit counters in Redis, bucketed by
// UTC hour, and sums them for the recipient's dashboard.
package analytics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/whisperbox/internal/domain"
)

const (
	// DefaultRetention keeps eight days of hourly buckets.
	DefaultRetention = 8 * 24 * time.Hour

	fieldTotal    = "total"
	prefixRef     = "referrer:"
	prefixPlat    = "platform:"
	prefixDevice  = "device:"
	prefixUTM     = "utm:"
	keyTimeLayout = "2006010215"
)

// Store records and summarises visit counters.
type Store struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewStore creates a Redis-backed counter store.
func NewStore(client *redis.Client, prefix string, retention time.Duration) *Store {
	if prefix == "" {
		prefix = "whisperbox:visits"
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{client: client, prefix: prefix, retention: retention, now: time.Now}
}

// WithClock replaces the time source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) key(profileID string, hour time.Time) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, profileID, hour.UTC().Format(keyTimeLayout))
}

// RecordVisit increments the counters for v's hour bucket.
func (s *Store) RecordVisit(ctx context.Context, v domain.Visit) error {
	hour := v.HourBucket
	if hour.IsZero() {
		hour = domain.HourBucket(s.now())
	}
	key := s.key(v.ProfileID, hour)

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, fieldTotal, 1)
	pipe.HIncrBy(ctx, key, prefixRef+label(string(v.Client.Referrer.Category)), 1)
	pipe.HIncrBy(ctx, key, prefixPlat+label(v.Client.SourcePlatform), 1)
	pipe.HIncrBy(ctx, key, prefixDevice+label(string(v.Client.Device.Type)), 1)
	if v.Client.UTM.Source != "" {
		pipe.HIncrBy(ctx, key, prefixUTM+strings.ToLower(v.Client.UTM.Source), 1)
	}
	pipe.Expire(ctx, key, s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record visit counters: %w", err)
	}
	return nil
}

func label(s string) string {
	if s == "" {
		return domain.Unknown
	}
	return s
}

// HourCount is one bucket of the trailing series.
type HourCount struct {
	Hour  time.Time `json:"hour"`
	Total int64     `json:"total"`
}

// Summary is the sum of the trailing buckets.
type Summary struct {
	Enabled    bool             `json:"enabled"`
	Hours      int              `json:"hours"`
	Total      int64            `json:"total"`
	Referrers  map[string]int64 `json:"referrers"`
	Platforms  map[string]int64 `json:"platforms"`
	Devices    map[string]int64 `json:"devices"`
	UTMSources map[string]int64 `json:"utm_sources"`
	Series     []HourCount      `json:"series"`
}

// EmptySummary is returned when analytics is not configured.
func EmptySummary(hours int) Summary {
	return Summary{
		Hours:      hours,
		Referrers:  map[string]int64{},
		Platforms:  map[string]int64{},
		Devices:    map[string]int64{},
		UTMSources: map[string]int64{},
		Series:     []HourCount{},
	}
}

// MaxHours returns the widest window the retention can answer.
func (s *Store) MaxHours() int {
	return int(s.retention / time.Hour)
}

// Summary sums the profile's counters over the trailing hours, including the
// current partial hour. hours is clamped to [1, MaxHours].
func (s *Store) Summary(ctx context.Context, profileID string, hours int) (Summary, error) {
	if hours < 1 {
		hours = 1
	}
	if limit := s.MaxHours(); hours > limit {
		hours = limit
	}

	current := domain.HourBucket(s.now())
	buckets := make([]time.Time, hours)
	cmds := make([]*redis.MapStringStringCmd, hours)

	pipe := s.client.Pipeline()
	for i := 0; i < hours; i++ {
		buckets[i] = current.Add(-time.Duration(hours-1-i) * time.Hour)
		cmds[i] = pipe.HGetAll(ctx, s.key(profileID, buckets[i]))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return Summary{}, fmt.Errorf("read visit counters: %w", err)
	}

	sum := EmptySummary(hours)
	sum.Enabled = true
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil && err != redis.Nil {
			return Summary{}, fmt.Errorf("read visit counters: %w", err)
		}
		hc := HourCount{Hour: buckets[i]}
		for field, raw := range fields {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			switch {
			case field == fieldTotal:
				hc.Total = n
			case strings.HasPrefix(field, prefixRef):
				sum.Referrers[strings.TrimPrefix(field, prefixRef)] += n
			case strings.HasPrefix(field, prefixPlat):
				sum.Platforms[strings.TrimPrefix(field, prefixPlat)] += n
			case strings.HasPrefix(field, prefixDevice):
				sum.Devices[strings.TrimPrefix(field, prefixDevice)] += n
			case strings.HasPrefix(field, prefixUTM):
				sum.UTMSources[strings.TrimPrefix(field, prefixUTM)] += n
			}
		}
		sum.Total += hc.Total
		sum.Series = append(sum.Series, hc)
	}
	return sum, nil
}
