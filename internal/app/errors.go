package service

import (
	"errors"
	"fmt"

	"github.com/okian/moodtune/internal/domain/emotion"
)

// Sentinel kinds for service errors. Validation failures wrap
// emotion.ErrInvalidInput and lookups wrap repository.ErrNotFound.
var (
	ErrDuplicate = errors.New("duplicate request")
	ErrNoMatch   = errors.New("no catalog match")
	ErrNoSubject = errors.New("subject required")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", emotion.ErrInvalidInput, fmt.Sprintf(format, args...))
}
