package domain

import "time"

// Content length bounds, counted in characters after trimming.
const (
	MessageMinLength = 1
	MessageMaxLength = 500
)

// Message is one anonymous note delivered to a recipient.
//
// SenderIP is the raw client address. It is visible to the recipient only;
// everything else identifies the sender by the day-scoped fingerprint.
type Message struct {
	ID                string        `json:"id" db:"id"`
	RecipientID       string        `json:"recipient_id" db:"recipient_id"`
	Content           string        `json:"content" db:"content"`
	SenderFingerprint string        `json:"sender_fingerprint" db:"sender_fingerprint"`
	SenderIP          string        `json:"sender_ip,omitempty" db:"sender_ip"`
	Client            ClientContext `json:"client"`
	IsRead            bool          `json:"is_read" db:"is_read"`
	IsFlagged         bool          `json:"is_flagged" db:"is_flagged"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	ReadAt            *time.Time    `json:"read_at,omitempty" db:"read_at"`
}

// MessageFilter selects a slice of a recipient's inbox.
type MessageFilter string

const (
	FilterAll     MessageFilter = "all"
	FilterUnread  MessageFilter = "unread"
	FilterFlagged MessageFilter = "flagged"
)

// ParseMessageFilter defaults unknown values to FilterAll.
func ParseMessageFilter(s string) MessageFilter {
	switch MessageFilter(s) {
	case FilterUnread, FilterFlagged:
		return MessageFilter(s)
	default:
		return FilterAll
	}
}
