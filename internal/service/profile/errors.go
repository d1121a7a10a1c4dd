package profile

import "errors"

// Sentinel errors for the profile service layer.
var (
	ErrNotFound            = errors.New("profile not found")
	ErrInvalidSubscription = errors.New("invalid push subscription")
)
