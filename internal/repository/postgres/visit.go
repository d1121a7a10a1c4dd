package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/whisperbox/internal/domain"
)

// VisitRepo implements visits.Repository against PostgreSQL.
type VisitRepo struct{ db *sql.DB }

// NewVisitRepo creates a Postgres-backed visit repository.
func NewVisitRepo(db *sql.DB) *VisitRepo { return &VisitRepo{db: db} }

// Record inserts a visit. The (profile_id, visitor_fingerprint, hour_bucket)
// unique key collapses repeats within an hour; that violation is reported as
// inserted=false rather than an error.
func (r *VisitRepo) Record(ctx context.Context, v *domain.Visit) (bool, error) {
	client, err := json.Marshal(v.Client)
	if err != nil {
		return false, fmt.Errorf("encode client context: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO visits (id, profile_id, visitor_fingerprint, hour_bucket, client,
			device_type, referrer_category, source_platform, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, v.ID, v.ProfileID, v.VisitorFingerprint, v.HourBucket, client,
		string(v.Client.Device.Type), string(v.Client.Referrer.Category), v.Client.SourcePlatform, v.CreatedAt)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert visit: %w", err)
	}
	return true, nil
}
