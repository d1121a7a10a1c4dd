package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/service/profile"
)

// SubscriptionRepo implements profile.SubscriptionRepository against PostgreSQL.
type SubscriptionRepo struct{ db *sql.DB }

// NewSubscriptionRepo creates a Postgres-backed push subscription repository.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

func (r *SubscriptionRepo) Save(ctx context.Context, s *domain.PushSubscription) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO push_subscriptions (id, profile_id, endpoint, p256dh, auth, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (endpoint) DO UPDATE
		SET profile_id = EXCLUDED.profile_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth
		RETURNING id, created_at
	`, s.ID, s.ProfileID, s.Endpoint, s.P256dh, s.Auth).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) Delete(ctx context.Context, profileID, endpoint string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE profile_id = $1 AND endpoint = $2`,
		profileID, endpoint,
	)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return profile.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepo) ListByProfile(ctx context.Context, profileID string) ([]domain.PushSubscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, profile_id, endpoint, p256dh, auth, created_at
		FROM push_subscriptions
		WHERE profile_id = $1
		ORDER BY created_at
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []domain.PushSubscription
	for rows.Next() {
		var s domain.PushSubscription
		if err := rows.Scan(&s.ID, &s.ProfileID, &s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SubscriptionRepo) DeleteEndpoints(ctx context.Context, endpoints []string) (int, error) {
	if len(endpoints) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = ANY($1)`,
		pq.Array(endpoints),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired subscriptions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
