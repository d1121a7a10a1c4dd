package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// InsecurePlaceholderSecret is the value shipped in sample configs. It is
// rejected so a deployment cannot silently run with a public salt.
const InsecurePlaceholderSecret = "change-me"

var (
	// ErrMissingSecret is returned when no hashing secret is configured.
	ErrMissingSecret = errors.New("fingerprint: secret is required")
	// ErrInsecureSecret is returned for the sample placeholder secret.
	ErrInsecureSecret = errors.New("fingerprint: placeholder secret must be replaced")
)

const dateLayout = "2006-01-02"

// DailySalt returns SHA256(UTC date + secret), hex-encoded. It is a pure
// function of its inputs and is never stored.
func DailySalt(day time.Time, secret string) string {
	sum := sha256.Sum256([]byte(day.UTC().Format(dateLayout) + secret))
	return hex.EncodeToString(sum[:])
}

// Hasher computes sender fingerprints. It is safe for concurrent use.
type Hasher struct {
	secret string
	now    func() time.Time
}

// NewHasher validates the secret and returns a Hasher using the wall clock.
func NewHasher(secret string) (*Hasher, error) {
	switch secret {
	case "":
		return nil, ErrMissingSecret
	case InsecurePlaceholderSecret:
		return nil, ErrInsecureSecret
	}
	return &Hasher{secret: secret, now: time.Now}, nil
}

// WithClock returns a copy of h that reads time from now.
func (h *Hasher) WithClock(now func() time.Time) *Hasher {
	return &Hasher{secret: h.secret, now: now}
}

// Hash fingerprints rawIP for the current UTC day.
func (h *Hasher) Hash(rawIP string) string {
	return h.HashAt(rawIP, h.now())
}

// HashAt fingerprints rawIP for the UTC day containing t:
// hex(SHA256(Anonymize(rawIP) + DailySalt(t, secret))).
func (h *Hasher) HashAt(rawIP string, t time.Time) string {
	sum := sha256.Sum256([]byte(Anonymize(rawIP) + DailySalt(t, h.secret)))
	return hex.EncodeToString(sum[:])
}

// Valid reports whether s has the shape of a fingerprint: 64 lowercase hex characters.
func Valid(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
