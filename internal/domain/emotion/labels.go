// Package emotion interprets a classifier's label probabilities as a
// structured verdict.
package emotion

// LabelSetVersion identifies the label vocabulary shared with the classifier.
// Changing Labels requires bumping it together with the model version.
const LabelSetVersion = "moodtune-17-v1"

// DefaultModelVersion is attached to verdicts when the classifier does not
// report its own version.
const DefaultModelVersion = "bert-emotion-v1.0"

// Label names, in vector order.
const (
	Happiness    = "Happiness"
	Contentment  = "Contentment"
	Confidence   = "Confidence"
	Neutral      = "Neutral"
	Sadness      = "Sadness"
	Anger        = "Anger"
	Fear         = "Fear"
	Surprise     = "Surprise"
	Disgust      = "Disgust"
	Love         = "Love"
	Excitement   = "Excitement"
	Anticipation = "Anticipation"
	Nostalgia    = "Nostalgia"
	Confusion    = "Confusion"
	Frustration  = "Frustration"
	Longing      = "Longing"
	Optimism     = "Optimism"
)

var labels = [...]string{
	Happiness,
	Contentment,
	Confidence,
	Neutral,
	Sadness,
	Anger,
	Fear,
	Surprise,
	Disgust,
	Love,
	Excitement,
	Anticipation,
	Nostalgia,
	Confusion,
	Frustration,
	Longing,
	Optimism,
}

var labelIndex = func() map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}()

// Labels returns a copy of the label set in vector order.
func Labels() []string {
	out := make([]string, len(labels))
	copy(out, labels[:])
	return out
}

// LabelCount is N, the size of the label set.
func LabelCount() int { return len(labels) }

// IsLabel reports whether name belongs to the label set.
func IsLabel(name string) bool {
	_, ok := labelIndex[name]
	return ok
}

// IndexOf returns the position of name in the label set, or -1.
func IndexOf(name string) int {
	if i, ok := labelIndex[name]; ok {
		return i
	}
	return -1
}

// positive is the label subset counted as an uplifting mood by trend analysis.
var positive = map[string]struct{}{
	Happiness:   {},
	Excitement:  {},
	Love:        {},
	Contentment: {},
	Optimism:    {},
	Confidence:  {},
}

// IsPositive reports whether label is one of the positive moods.
func IsPositive(label string) bool {
	_, ok := positive[label]
	return ok
}
