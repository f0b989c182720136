// Package explainer provides the optional word-importance explainability
// capability. Callers query Available at call time; any failure degrades to a
// summary built from the verdict alone.
package explainer

import (
	"context"

	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/pkg/logger"
	"github.com/okian/moodtune/pkg/metrics"
)

const defaultTopWords = 10

// Explanation is what an explainability backend returns for one text.
type Explanation struct {
	WordImportance map[string]float64 `json:"word_importance"`
	Summary        string             `json:"summary"`
}

// Explainer attributes a label to the words of a text.
type Explainer interface {
	Available(ctx context.Context) bool
	Explain(ctx context.Context, text, label string) (Explanation, error)
}

// Noop is the explainer used when none is configured.
type Noop struct{}

// Available implements Explainer.
func (Noop) Available(context.Context) bool { return false }

// Explain implements Explainer. It is never called by Describe.
func (Noop) Explain(context.Context, string, string) (Explanation, error) {
	return Explanation{}, ErrUnavailable
}

// Result is the explanation attached to an analysis response.
type Result struct {
	Summary  string               `json:"summary"`
	TopWords []emotion.WordWeight `json:"top_words"`
	Degraded bool                 `json:"degraded"`
}

// Describe explains v's primary label for text. It never fails: an absent,
// unavailable or erroring explainer yields the templated fallback with
// Degraded set.
func Describe(ctx context.Context, ex Explainer, text string, v emotion.Verdict, log logger.Logger) Result {
	if ex == nil || !ex.Available(ctx) {
		return fallback(v)
	}
	exp, err := ex.Explain(ctx, text, v.PrimaryLabel)
	if err != nil {
		if log != nil {
			log.Warn(ctx, "explainer failed, using fallback summary", logger.Error(err))
		}
		return fallback(v)
	}

	summary := exp.Summary
	if summary == "" {
		summary = emotion.SummarizeWords(v, exp.WordImportance)
	}
	return Result{
		Summary:  summary,
		TopWords: emotion.TopWords(exp.WordImportance, defaultTopWords),
	}
}

func fallback(v emotion.Verdict) Result {
	metrics.RecordExplainDegraded()
	return Result{
		Summary:  emotion.FallbackSummary(v),
		TopWords: []emotion.WordWeight{},
		Degraded: true,
	}
}
