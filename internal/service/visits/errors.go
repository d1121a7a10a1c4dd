package visits

import "errors"

// Sentinel errors for the visit pipeline.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("profile not found")
	ErrBackendUnavailable = errors.New("backend unavailable")
)
