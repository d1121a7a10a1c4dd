package inbox

import "errors"

// ErrNotFound is returned for missing messages and for messages owned by
// another recipient, so ownership is never disclosed.
var ErrNotFound = errors.New("message not found")
