package emotion

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	describeSecondaryLimit = 3
	fallbackSecondaryLimit = 3
	wordsSecondaryLimit    = 2
	positiveWordLimit      = 3
)

// WordWeight is a word with its importance toward a target label.
type WordWeight struct {
	Word       string  `json:"word"`
	Importance float64 `json:"importance"`
}

// percent truncates a probability to a whole percentage.
func percent(p float64) int {
	return int(p * 100)
}

// Describe renders the analysis explanation shown next to a verdict.
func Describe(v Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your text expresses strong **%s** (%d%% confidence). ", v.PrimaryLabel, percent(v.PrimaryConfidence))

	if len(v.SecondaryLabels) > 0 {
		secondary := v.SecondaryLabels
		if len(secondary) > describeSecondaryLimit {
			secondary = secondary[:describeSecondaryLimit]
		}
		quoted := make([]string, len(secondary))
		for i, l := range secondary {
			quoted[i] = "**" + l + "**"
		}
		fmt.Fprintf(&b, "Secondary emotions detected include %s. ", strings.Join(quoted, ", "))
	}

	switch v.ConfidenceTier {
	case TierHigh:
		b.WriteString("The emotional tone is clear and well-defined.")
	case TierMedium:
		b.WriteString("The emotional tone suggests a blend of feelings.")
	default:
		b.WriteString("The emotional tone is subtle or mixed.")
	}
	return b.String()
}

// FallbackSummary is the explanation used when no explainability backend can
// serve a request. It only uses data already in the verdict.
func FallbackSummary(v Verdict) string {
	s := fmt.Sprintf("Your text expresses **%s** (%d%% confidence).", v.PrimaryLabel, percent(v.PrimaryConfidence))
	if len(v.SecondaryLabels) > 0 {
		secondary := v.SecondaryLabels
		if len(secondary) > fallbackSecondaryLimit {
			secondary = secondary[:fallbackSecondaryLimit]
		}
		s += fmt.Sprintf(" Secondary emotions: %s.", strings.Join(secondary, ", "))
	}
	return s
}

// SummarizeWords explains a verdict using per-word importances toward its
// primary label.
func SummarizeWords(v Verdict, importance map[string]float64) string {
	ranked := rankWords(importance, func(a, b WordWeight) bool { return a.Importance > b.Importance })

	var positives []string
	for _, w := range ranked {
		if len(positives) == positiveWordLimit {
			break
		}
		if w.Importance > 0 {
			positives = append(positives, "'"+w.Word+"'")
		}
	}

	s := fmt.Sprintf("Your text expresses **%s** (%d%% confidence). ", v.PrimaryLabel, percent(v.PrimaryConfidence))
	if len(positives) > 0 {
		s += fmt.Sprintf("Key words contributing to this emotion include %s. ", strings.Join(positives, ", "))
	}
	if len(v.SecondaryLabels) > 0 {
		secondary := v.SecondaryLabels
		if len(secondary) > wordsSecondaryLimit {
			secondary = secondary[:wordsSecondaryLimit]
		}
		s += fmt.Sprintf("Secondary emotions detected: %s.", strings.Join(secondary, ", "))
	}
	return strings.TrimSpace(s)
}

// TopWords returns up to n words ordered by absolute importance, rounded to
// three decimals.
func TopWords(importance map[string]float64, n int) []WordWeight {
	ranked := rankWords(importance, func(a, b WordWeight) bool {
		return math.Abs(a.Importance) > math.Abs(b.Importance)
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	for i := range ranked {
		ranked[i].Importance = math.Round(ranked[i].Importance*1000) / 1000
	}
	return ranked
}

// rankWords sorts words by less, falling back to the word itself so map
// iteration order never leaks into the result.
func rankWords(importance map[string]float64, less func(a, b WordWeight) bool) []WordWeight {
	out := make([]WordWeight, 0, len(importance))
	for w, v := range importance {
		out = append(out, WordWeight{Word: w, Importance: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if less(out[i], out[j]) {
			return true
		}
		if less(out[j], out[i]) {
			return false
		}
		return out[i].Word < out[j].Word
	})
	return out
}
