// Package classifier adapts emotion classifiers to the service. A classifier
// turns text into one probability per label; the Manager in front of it tracks
// readiness so callers get emotion.ErrModelUnavailable instead of a bogus
// verdict.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/moodtune/internal/domain/emotion"
)

// Classifier scores text against the label set.
type Classifier interface {
	Classify(ctx context.Context, text string) (map[string]float64, error)
}

// Prober reports whether a backend can serve requests and which model version
// it runs.
type Prober interface {
	Health(ctx context.Context) (modelVersion string, err error)
}

// Versioner is implemented by backends that learn the model version from
// classification responses.
type Versioner interface {
	ModelVersion() string
}

// Backend is a classifier that can be probed.
type Backend interface {
	Classifier
	Prober
}

// ErrIncompleteScores is returned when a backend omits labels or sends
// unknown ones.
var ErrIncompleteScores = errors.New("classifier returned an incomplete score map")

// checkScores verifies that scores cover exactly the label set.
func checkScores(scores map[string]float64) error {
	if len(scores) != emotion.LabelCount() {
		return fmt.Errorf("%w: got %d labels, want %d", ErrIncompleteScores, len(scores), emotion.LabelCount())
	}
	for l := range scores {
		if !emotion.IsLabel(l) {
			return fmt.Errorf("%w: unknown label %q", ErrIncompleteScores, l)
		}
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", emotion.ErrModelUnavailable, err)
}
