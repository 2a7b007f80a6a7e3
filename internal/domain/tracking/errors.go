package tracking

import "errors"

// ErrNotTracking indicates an operation that needs a live tracking session
// was called before Start (or after Stop).
var ErrNotTracking = errors.New("tracking has not been started")
