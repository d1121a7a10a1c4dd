// Package visits tracks profile views: classify, fingerprint, store with
// hourly de-duplication, then emit a best-effort analytics event.
package visits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/whisperbox/internal/classify"
	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/fingerprint"
	"github.com/ignite/whisperbox/internal/pkg/logger"
	"github.com/ignite/whisperbox/internal/service/profile"
)

const analyticsTimeout = 2 * time.Second

// TrackRequest is one profile view.
type TrackRequest struct {
	ProfileID string
	ClientIP  string
	Request   classify.Input
}

// TrackResult summarises what was recorded.
type TrackResult struct {
	Duplicate      bool                    `json:"duplicate"`
	DeviceType     domain.DeviceType       `json:"device_type"`
	Browser        string                  `json:"browser"`
	OS             string                  `json:"os"`
	InAppBrowser   bool                    `json:"in_app_browser"`
	Referrer       string                  `json:"referrer"`
	Category       domain.ReferrerCategory `json:"referrer_category"`
	SourcePlatform string                  `json:"source_platform"`
	HasUTM         bool                    `json:"has_utm"`
	UTM            domain.UTMParams        `json:"utm"`
}

// Pipeline runs visit tracking. Recorder may be nil.
type Pipeline struct {
	repo       Repository
	profiles   Profiles
	hasher     *fingerprint.Hasher
	classifier *classify.Classifier
	recorder   Recorder
	now        func() time.Time
}

// NewPipeline creates a visit pipeline.
func NewPipeline(repo Repository, profiles Profiles, hasher *fingerprint.Hasher, classifier *classify.Classifier, recorder Recorder) *Pipeline {
	return &Pipeline{
		repo:       repo,
		profiles:   profiles,
		hasher:     hasher,
		classifier: classifier,
		recorder:   recorder,
		now:        time.Now,
	}
}

// Track records a visit. A repeat within the same UTC hour is reported as a
// duplicate and is not an error.
func (p *Pipeline) Track(ctx context.Context, req TrackRequest) (*TrackResult, error) {
	if strings.TrimSpace(req.ProfileID) == "" {
		return nil, fmt.Errorf("%w: profileId is required", ErrValidation)
	}
	if _, err := p.profiles.ByID(ctx, req.ProfileID); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: lookup profile: %v", ErrBackendUnavailable, err)
	}

	clientCtx := p.classifier.Classify(req.Request)
	now := p.now().UTC()
	v := &domain.Visit{
		ID:                 uuid.New().String(),
		ProfileID:          req.ProfileID,
		VisitorFingerprint: p.hasher.HashAt(req.ClientIP, now),
		HourBucket:         domain.HourBucket(now),
		Client:             clientCtx,
		CreatedAt:          now,
	}

	inserted, err := p.repo.Record(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("%w: store visit: %v", ErrBackendUnavailable, err)
	}

	if inserted && p.recorder != nil {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), analyticsTimeout)
		if err := p.recorder.RecordVisit(actx, *v); err != nil {
			logger.Warn("visits: analytics event failed", "profile_id", v.ProfileID, "error", err)
		}
		cancel()
	}

	return &TrackResult{
		Duplicate:      !inserted,
		DeviceType:     clientCtx.Device.Type,
		Browser:        clientCtx.Device.Browser,
		OS:             clientCtx.Device.OS,
		InAppBrowser:   clientCtx.Device.InAppBrowser,
		Referrer:       clientCtx.Referrer.Platform,
		Category:       clientCtx.Referrer.Category,
		SourcePlatform: clientCtx.SourcePlatform,
		HasUTM:         clientCtx.UTM.HasUTM(),
		UTM:            clientCtx.UTM,
	}, nil
}
