package domain

import "time"

// PushSubscription is a browser Web Push endpoint registered by a recipient.
type PushSubscription struct {
	ID        string    `json:"id" db:"id"`
	ProfileID string    `json:"profile_id" db:"profile_id"`
	Endpoint  string    `json:"endpoint" db:"endpoint"`
	P256dh    string    `json:"p256dh" db:"p256dh"`
	Auth      string    `json:"auth" db:"auth"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewMessageNotification is the job handed to the notification dispatcher
// once a message is durably stored.
type NewMessageNotification struct {
	RecipientID      string    `json:"recipient_id"`
	MessageID        string    `json:"message_id"`
	Preview          string    `json:"preview"`
	ReferrerPlatform string    `json:"referrer_platform"`
	DeviceType       string    `json:"device_type"`
	CreatedAt        time.Time `json:"created_at"`
}
