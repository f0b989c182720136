package emotion

import "errors"

// Sentinel error kinds for verdict building and classification. Callers match
// them with errors.Is.
var (
	// ErrInvalidInput marks a malformed score map or an out-of-range threshold.
	ErrInvalidInput = errors.New("invalid input")
	// ErrModelUnavailable marks a classifier that is not ready to serve.
	ErrModelUnavailable = errors.New("model unavailable")
)
