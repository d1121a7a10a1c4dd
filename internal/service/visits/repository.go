package visits

import (
	"context"

	"github.com/ignite/whisperbox/internal/domain"
)

// Repository stores visits. Record reports inserted=false, with a nil error,
// when a visit for the same (profile, fingerprint, hour) already exists.
type Repository interface {
	Record(ctx context.Context, v *domain.Visit) (inserted bool, err error)
}

// Profiles resolves the visited profile. Unknown IDs return profile.ErrNotFound.
type Profiles interface {
	ByID(ctx context.Context, id string) (*domain.Profile, error)
}

// Recorder receives an analytics event for each newly stored visit.
type Recorder interface {
	RecordVisit(ctx context.Context, v domain.Visit) error
}
