package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/service/profile"
)

// ProfileRepo implements profile.Repository against PostgreSQL.
type ProfileRepo struct{ db *sql.DB }

// NewProfileRepo creates a Postgres-backed profile repository.
func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileColumns = `id, username, display_name, COALESCE(email, ''), push_enabled, email_enabled, created_at`

func (r *ProfileRepo) ByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	return r.one(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(username) = lower($1)`, username)
}

func (r *ProfileRepo) ByID(ctx context.Context, id string) (*domain.Profile, error) {
	if !validID(id) {
		return nil, profile.ErrNotFound
	}
	return r.one(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (r *ProfileRepo) one(ctx context.Context, query string, arg string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ID, &p.Username, &p.DisplayName, &p.Email, &p.PushEnabled, &p.EmailEnabled, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (r *ProfileRepo) UpdatePreferences(ctx context.Context, id string, prefs profile.Preferences) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET push_enabled = $2, email_enabled = $3, updated_at = NOW() WHERE id = $1`,
		id, prefs.PushEnabled, prefs.EmailEnabled,
	)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return profile.ErrNotFound
	}
	return nil
}
