package domain

import "time"

// Visit is one profile view, unique per (profile, fingerprint, hour).
type Visit struct {
	ID                 string        `json:"id" db:"id"`
	ProfileID          string        `json:"profile_id" db:"profile_id"`
	VisitorFingerprint string        `json:"-" db:"visitor_fingerprint"`
	HourBucket         time.Time     `json:"hour_bucket" db:"hour_bucket"`
	Client             ClientContext `json:"client"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
}

// HourBucket truncates t to the start of its UTC clock hour.
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
