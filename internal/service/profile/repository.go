package profile

import (
	"context"

	"github.com/ignite/whisperbox/internal/domain"
)

// Repository defines the data access contract for recipient profiles.
// Lookups return ErrNotFound when no row matches.
type Repository interface {
	ByUsername(ctx context.Context, username string) (*domain.Profile, error)
	ByID(ctx context.Context, id string) (*domain.Profile, error)
	UpdatePreferences(ctx context.Context, id string, prefs Preferences) error
}

// SubscriptionRepository stores Web Push endpoints.
type SubscriptionRepository interface {
	// Save upserts by endpoint.
	Save(ctx context.Context, sub *domain.PushSubscription) error
	// Delete removes the profile's subscription for endpoint. Returns ErrNotFound if absent.
	Delete(ctx context.Context, profileID, endpoint string) error
	ListByProfile(ctx context.Context, profileID string) ([]domain.PushSubscription, error)
	// DeleteEndpoints removes expired endpoints regardless of owner.
	DeleteEndpoints(ctx context.Context, endpoints []string) (int, error)
}

// Preferences are the recipient's notification switches.
type Preferences struct {
	PushEnabled  bool `json:"push_enabled"`
	EmailEnabled bool `json:"email_enabled"`
}
