package domain

import "time"

// Profile is a recipient's public inbox. Its ID is the identity provider's user ID.
type Profile struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	Email        string    `json:"-" db:"email"`
	PushEnabled  bool      `json:"push_enabled" db:"push_enabled"`
	EmailEnabled bool      `json:"email_enabled" db:"email_enabled"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NotificationsEnabled reports whether any alert channel is switched on.
func (p *Profile) NotificationsEnabled() bool {
	return p.PushEnabled || p.EmailEnabled
}

// User is the authenticated caller as reported by the identity provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
