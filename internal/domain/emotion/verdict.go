package emotion

import (
	"fmt"
	"math"
)

// Verdict building constants.
const (
	// DefaultThreshold is the detection cut-off used when callers have no preference.
	DefaultThreshold = 0.5

	highTierFloor   = 0.8
	mediumTierFloor = 0.5

	// entropyFloor keeps the normalization and the logarithm finite when
	// scores are exactly zero.
	entropyFloor = 1e-10
)

// Tier is a coarse bucket for the primary label's confidence.
type Tier string

// Confidence tiers.
const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// TierFor maps a primary confidence to its tier. Lower bounds are inclusive.
func TierFor(confidence float64) Tier {
	switch {
	case confidence >= highTierFloor:
		return TierHigh
	case confidence >= mediumTierFloor:
		return TierMedium
	default:
		return TierLow
	}
}

// Verdict is the structured interpretation of one text's label probabilities.
// A Verdict is never mutated after BuildVerdict returns it.
type Verdict struct {
	Scores            map[string]float64 `json:"emotions"`
	PrimaryLabel      string             `json:"primary_emotion"`
	PrimaryConfidence float64            `json:"primary_confidence"`
	DetectedLabels    []string           `json:"detected_emotions"`
	SecondaryLabels   []string           `json:"secondary_emotions"`
	ConfidenceTier    Tier               `json:"confidence_level"`
	Complexity        float64            `json:"emotional_complexity"`
	Threshold         float64            `json:"threshold"`
	ModelVersion      string             `json:"model_version"`
}

// Score returns the verdict's probability for label, 0 when unknown.
func (v Verdict) Score(label string) float64 {
	return v.Scores[label]
}

// Option applies a configuration option to BuildVerdict.
type Option func(*buildOptions)

type buildOptions struct {
	modelVersion string
}

// WithModelVersion tags the verdict with the classifier version that produced
// the scores.
func WithModelVersion(version string) Option {
	return func(o *buildOptions) {
		if version != "" {
			o.modelVersion = version
		}
	}
}

// BuildVerdict turns a full label->probability map into a Verdict.
// scores must hold exactly the label set, each value a finite number in
// [0,1], and threshold must be in [0,1]; otherwise ErrInvalidInput is
// returned and nothing is computed.
func BuildVerdict(scores map[string]float64, threshold float64, opts ...Option) (Verdict, error) {
	o := buildOptions{modelVersion: DefaultModelVersion}
	for _, opt := range opts {
		opt(&o)
	}

	if err := validate(scores, threshold); err != nil {
		return Verdict{}, err
	}

	vector := make([]float64, len(labels))
	copied := make(map[string]float64, len(labels))
	for i, l := range labels {
		vector[i] = scores[l]
		copied[l] = scores[l]
	}

	// Strict comparison keeps the earliest label on exact ties.
	primary := 0
	for i := 1; i < len(vector); i++ {
		if vector[i] > vector[primary] {
			primary = i
		}
	}

	detected := make([]string, 0, len(labels))
	secondary := make([]string, 0, len(labels))
	for i, l := range labels {
		if vector[i] >= threshold {
			detected = append(detected, l)
			if i != primary {
				secondary = append(secondary, l)
			}
		}
	}

	return Verdict{
		Scores:            copied,
		PrimaryLabel:      labels[primary],
		PrimaryConfidence: vector[primary],
		DetectedLabels:    detected,
		SecondaryLabels:   secondary,
		ConfidenceTier:    TierFor(vector[primary]),
		Complexity:        Complexity(vector),
		Threshold:         threshold,
		ModelVersion:      o.modelVersion,
	}, nil
}

// Complexity is the Shannon entropy of the normalized score vector divided by
// ln(len(vector)), clamped to [0,1]. Near 1 means diffuse, near 0 means one
// label dominates.
func Complexity(vector []float64) float64 {
	if len(vector) < 2 {
		return 0
	}

	var sum float64
	for _, s := range vector {
		sum += s
	}
	sum += entropyFloor

	var entropy float64
	for _, s := range vector {
		p := s / sum
		entropy -= p * math.Log(p+entropyFloor)
	}

	c := entropy / math.Log(float64(len(vector)))
	return math.Max(0, math.Min(1, c))
}

func validate(scores map[string]float64, threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold %v outside [0,1]: %w", threshold, ErrInvalidInput)
	}
	if len(scores) != len(labels) {
		return fmt.Errorf("expected %d scores, got %d: %w", len(labels), len(scores), ErrInvalidInput)
	}
	for _, l := range labels {
		s, ok := scores[l]
		if !ok {
			return fmt.Errorf("missing score for %q: %w", l, ErrInvalidInput)
		}
		if math.IsNaN(s) || s < 0 || s > 1 {
			return fmt.Errorf("score for %q is %v, outside [0,1]: %w", l, s, ErrInvalidInput)
		}
	}
	return nil
}
