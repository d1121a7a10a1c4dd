// Package profile owns recipient profiles, their notification preferences
// and their Web Push subscriptions.
package profile

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ignite/whisperbox/internal/domain"
)

// Service implements profile business logic. It is safe for concurrent use.
type Service struct {
	repo Repository
	subs SubscriptionRepository
}

// NewService creates a profile service.
func NewService(repo Repository, subs SubscriptionRepository) *Service {
	return &Service{repo: repo, subs: subs}
}

// NormalizeUsername trims and lowercases; lookups are case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(username), "@")))
}

// ByUsername resolves a public username to its profile.
func (s *Service) ByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return nil, ErrNotFound
	}
	return s.repo.ByUsername(ctx, username)
}

// ByID loads a profile by its identity-provider user ID.
func (s *Service) ByID(ctx context.Context, id string) (*domain.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	return s.repo.ByID(ctx, id)
}

// SetPreferences switches notification channels on or off.
func (s *Service) SetPreferences(ctx context.Context, profileID string, prefs Preferences) error {
	if err := s.repo.UpdatePreferences(ctx, profileID, prefs); err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	return nil
}

// Subscribe registers a browser push endpoint for the profile.
func (s *Service) Subscribe(ctx context.Context, profileID string, sub domain.PushSubscription) (*domain.PushSubscription, error) {
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	sub.P256dh = strings.TrimSpace(sub.P256dh)
	sub.Auth = strings.TrimSpace(sub.Auth)
	u, err := url.Parse(sub.Endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint must be an https URL", ErrInvalidSubscription)
	}
	if sub.P256dh == "" || sub.Auth == "" {
		return nil, fmt.Errorf("%w: keys.p256dh and keys.auth are required", ErrInvalidSubscription)
	}
	sub.ProfileID = profileID
	if err := s.subs.Save(ctx, &sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	return &sub, nil
}

// Unsubscribe removes one endpoint.
func (s *Service) Unsubscribe(ctx context.Context, profileID, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ErrInvalidSubscription
	}
	return s.subs.Delete(ctx, profileID, endpoint)
}
