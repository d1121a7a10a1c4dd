package ratelimit

import "errors"

// ErrUnavailable is returned when the window cannot be read and the limiter
// is configured to fail closed.
var ErrUnavailable = errors.New("rate limit backend unavailable")
