// Package matching selects the catalog item that best fits an emotion verdict.
//
// Selection is a pure function of its inputs: usage counters are read but
// never written here. Recording the outcome is the storage layer's job.
package matching

import (
	"github.com/okian/moodtune/internal/domain/emotion"
)

// labelScoreFloor is the per-label score above which a sparse score map
// counts as tagging the item with that label.
const labelScoreFloor = 0.5

// CatalogItem is an emotion-tagged entry in the catalog.
type CatalogItem struct {
	ID            string             `json:"id"`
	ExternalID    string             `json:"external_id,omitempty"`
	Title         string             `json:"name"`
	Artist        string             `json:"artists"`
	Labels        []string           `json:"emotions"`
	LabelScores   map[string]float64 `json:"emotion_scores,omitempty"`
	PlayCount     int                `json:"times_played"`
	MatchCount    int                `json:"total_matches"`
	AverageRating *float64           `json:"average_rating,omitempty"`
}

// EffectiveLabels returns the labels used for matching. Explicit labels win;
// otherwise labels whose sparse score exceeds 0.5 are used, in label set order.
func (c CatalogItem) EffectiveLabels() []string {
	if len(c.Labels) > 0 {
		return c.Labels
	}
	var out []string
	for _, l := range emotion.Labels() {
		if s, ok := c.LabelScores[l]; ok && s > labelScoreFloor {
			out = append(out, l)
		}
	}
	return out
}

// HasLabel reports whether label is among the item's effective labels.
func (c CatalogItem) HasLabel(label string) bool {
	for _, l := range c.EffectiveLabels() {
		if l == label {
			return true
		}
	}
	return false
}

// Result is the outcome of a match request.
type Result struct {
	Item          CatalogItem `json:"song"`
	MatchedLabels []string    `json:"matched_emotions"`
	MatchScore    float64     `json:"match_score"`
}

// candidate holds the selection keys for one item.
type candidate struct {
	index    int
	matched  []string
	weighted float64
	plays    int
}

// beats reports whether c strictly outranks best on
// (coverage, weighted score, fewer plays).
func (c candidate) beats(best candidate) bool {
	if len(c.matched) != len(best.matched) {
		return len(c.matched) > len(best.matched)
	}
	if c.weighted != best.weighted {
		return c.weighted > best.weighted
	}
	return c.plays < best.plays
}

func evaluate(v emotion.Verdict, item CatalogItem, index int) candidate {
	labels := item.EffectiveLabels()
	tagged := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		tagged[l] = struct{}{}
	}

	c := candidate{index: index, plays: item.PlayCount, matched: []string{}}
	for _, l := range v.DetectedLabels {
		if _, ok := tagged[l]; ok {
			c.matched = append(c.matched, l)
			c.weighted += v.Score(l)
		}
	}
	return c
}

// FindBestMatch returns the catalog item that best covers the verdict's
// detected labels. The second return value is false only when the catalog is
// empty.
//
// Items are ranked by number of matched labels, then by the sum of the
// verdict's scores over those labels, then by lowest play count. Remaining
// ties keep the first item in catalog order.
func FindBestMatch(v emotion.Verdict, catalog []CatalogItem) (Result, bool) {
	if len(catalog) == 0 {
		return Result{}, false
	}

	best := evaluate(v, catalog[0], 0)
	for i := 1; i < len(catalog); i++ {
		if c := evaluate(v, catalog[i], i); c.beats(best) {
			best = c
		}
	}

	return Result{
		Item:          catalog[best.index],
		MatchedLabels: best.matched,
		MatchScore:    CoverageScore(len(best.matched), len(v.DetectedLabels)),
	}, true
}

// CoverageScore is matched/max(detected,1), or 0 when nothing matched.
func CoverageScore(matched, detected int) float64 {
	if matched == 0 {
		return 0
	}
	if detected < 1 {
		detected = 1
	}
	return float64(matched) / float64(detected)
}
