package blocklist

import "errors"

// Sentinel errors for the block list service layer.
var (
	ErrNotFound           = errors.New("block entry not found")
	ErrInvalidFingerprint = errors.New("invalid sender fingerprint")
	ErrUnavailable        = errors.New("block list backend unavailable")
)
