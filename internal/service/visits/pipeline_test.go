package visits

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/whisperbox/internal/classify"
	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/fingerprint"
	"github.com/ignite/whisperbox/internal/service/profile"
)

// memRepo enforces the (profile, fingerprint, hour) uniqueness the database
// constraint provides.
type memRepo struct {
	mu   sync.Mutex
	rows map[string]domain.Visit
	err  error
}

func (m *memRepo) Record(_ context.Context, v *domain.Visit) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	k := v.ProfileID + "|" + v.VisitorFingerprint + "|" + v.HourBucket.Format(time.RFC3339)
	if _, dup := m.rows[k]; dup {
		return false, nil
	}
	m.rows[k] = *v
	return true, nil
}

type memProfiles map[string]bool

func (m memProfiles) ByID(_ context.Context, id string) (*domain.Profile, error) {
	if !m[id] {
		return nil, profile.ErrNotFound
	}
	return &domain.Profile{ID: id}, nil
}

type recRecorder struct {
	events []domain.Visit
	err    error
}

func (r *recRecorder) RecordVisit(_ context.Context, v domain.Visit) error {
	r.events = append(r.events, v)
	return r.err
}

type fixture struct {
	pipeline *Pipeline
	repo     *memRepo
	recorder *recRecorder
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h, err := fingerprint.NewHasher("test-secret")
	require.NoError(t, err)

	f := &fixture{
		repo:     &memRepo{rows: map[string]domain.Visit{}},
		recorder: &recRecorder{},
		clock:    time.Date(2026, 6, 1, 14, 5, 0, 0, time.UTC),
	}
	f.pipeline = NewPipeline(f.repo, memProfiles{"user-alice": true}, h, classify.New("whisperbox.example"), f.recorder)
	f.pipeline.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) track(ip string) (*TrackResult, error) {
	return f.pipeline.Track(context.Background(), TrackRequest{
		ProfileID: "user-alice",
		ClientIP:  ip,
		Request: classify.Input{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Query:     url.Values{"utm_source": {"tiktok"}, "utm_medium": {"bio"}},
		},
	})
}

func TestTrack_DedupWithinHour(t *testing.T) {
	f := newFixture(t)

	first, err := f.track("203.0.113.45")
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	f.clock = f.clock.Add(40 * time.Minute)
	second, err := f.track("203.0.113.45")
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	assert.Len(t, f.repo.rows, 1)
	assert.Len(t, f.recorder.events, 1, "analytics fires only for new rows")
}

func TestTrack_NextHourAddsRow(t *testing.T) {
	f := newFixture(t)

	_, err := f.track("203.0.113.45")
	require.NoError(t, err)

	f.clock = f.clock.Add(time.Hour)
	res, err := f.track("203.0.113.45")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Len(t, f.repo.rows, 2)
}

func TestTrack_ReportsClassification(t *testing.T) {
	f := newFixture(t)
	res, err := f.track("198.51.100.7")
	require.NoError(t, err)

	assert.Equal(t, domain.DeviceDesktop, res.DeviceType)
	assert.Equal(t, "Chrome", res.Browser)
	assert.Equal(t, "Windows", res.OS)
	assert.Equal(t, domain.ReferrerDirect, res.Category)
	assert.Equal(t, "tiktok", res.SourcePlatform)
	assert.True(t, res.HasUTM)
	assert.Equal(t, "bio", res.UTM.Medium)

	require.Len(t, f.recorder.events, 1)
	ev := f.recorder.events[0]
	assert.Equal(t, time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC), ev.HourBucket)
	assert.Len(t, ev.VisitorFingerprint, 64)
}

func TestTrack_UnknownProfile(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline.Track(context.Background(), TrackRequest{ProfileID: "ghost", ClientIP: "203.0.113.45"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.pipeline.Track(context.Background(), TrackRequest{ClientIP: "203.0.113.45"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTrack_AnalyticsFailureSwallowed(t *testing.T) {
	f := newFixture(t)
	f.recorder.err = errors.New("redis down")

	res, err := f.track("203.0.113.45")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
}

func TestTrack_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.err = errors.New("db down")

	_, err := f.track("203.0.113.45")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Empty(t, f.recorder.events)
}
