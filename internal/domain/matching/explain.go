package matching

import (
	"fmt"
	"math"
	"strings"
)

const (
	highlyRatedFloor = 4.0
	popularPlayCount = 10
)

// Explanation is the templated rationale for a match.
type Explanation struct {
	Text    string   `json:"explanation"`
	Reasons []string `json:"why_this_song"`
}

// Explain renders why item was chosen for a verdict whose primary label is
// primary. Output depends only on its arguments.
func Explain(item CatalogItem, primary string, matched []string, score float64) Explanation {
	pct := int(math.Round(score * 100))

	var text string
	switch len(matched) {
	case 0:
		text = "This song was selected to complement your current mood."
	case 1:
		text = fmt.Sprintf("This song captures your %s mood perfectly with a %d%% match score.", matched[0], pct)
	default:
		text = fmt.Sprintf(
			"This track matches your emotional state with a %d%% compatibility score. It resonates with your feelings of %s.",
			pct, joinLabels(matched),
		)
	}

	var reasons []string
	if len(matched) > 0 {
		reasons = append(reasons, fmt.Sprintf("Matches your %s mood", primary))
	}
	if len(matched) > 1 {
		reasons = append(reasons, fmt.Sprintf("Covers %d of your detected emotions", len(matched)))
	}
	if item.AverageRating != nil && *item.AverageRating >= highlyRatedFloor {
		reasons = append(reasons, fmt.Sprintf("Highly rated by other users (%.1f/5)", *item.AverageRating))
	}
	if item.PlayCount > popularPlayCount {
		reasons = append(reasons, "Popular choice for similar moods")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Selected to match your emotional state")
	}

	return Explanation{Text: text, Reasons: reasons}
}

// joinLabels joins all but the last label with commas and the last with "and".
func joinLabels(labels []string) string {
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	}
	return strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
}
