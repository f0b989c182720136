package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/okian/moodtune/internal/adapters/explainer"
	"github.com/okian/moodtune/internal/adapters/worker"
	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/internal/domain/model"
	"github.com/okian/moodtune/pkg/logger"
	"github.com/okian/moodtune/pkg/metrics"
)

const supportedDescription = "MoodTune detects 17 nuanced emotions from text using multi-label classification"

// AnalyzeRequest asks for the verdict of one text.
type AnalyzeRequest struct {
	Text               string   `json:"text"`
	Threshold          *float64 `json:"threshold,omitempty"`
	IncludeExplanation *bool    `json:"include_explanation,omitempty"`
}

// BatchRequest asks for verdicts of several independent texts.
type BatchRequest struct {
	Texts              []string `json:"texts"`
	Threshold          *float64 `json:"threshold,omitempty"`
	IncludeExplanation bool     `json:"include_explanation"`
}

// Analysis is a verdict as returned to API callers.
type Analysis struct {
	ID string `json:"id,omitempty"`
	emotion.Verdict
	Explanation         string               `json:"explanation,omitempty"`
	ExplanationSummary  string               `json:"explanation_summary,omitempty"`
	WordImportance      []emotion.WordWeight `json:"word_importance,omitempty"`
	ExplanationDegraded bool                 `json:"explanation_degraded,omitempty"`
	ProcessingTimeMs    int64                `json:"processing_time_ms"`
	CreatedAt           time.Time            `json:"created_at"`
}

// BatchResult holds one Analysis per text, in request order.
type BatchResult struct {
	Results               []Analysis `json:"results"`
	TotalProcessingTimeMs int64      `json:"total_processing_time_ms"`
}

// Supported describes the label set.
type Supported struct {
	Emotions    []string `json:"emotions"`
	Total       int      `json:"total"`
	Version     string   `json:"label_set_version"`
	Description string   `json:"description"`
}

func (s *Service) checkText(text string) error {
	if strings.TrimSpace(text) == "" {
		return invalid("text must not be empty")
	}
	if n := utf8.RuneCountInString(text); n > s.maxTextLength {
		return invalid("text is %d characters, limit is %d", n, s.maxTextLength)
	}
	return nil
}

func (s *Service) thresholdOr(t *float64) float64 {
	if t == nil {
		return s.threshold
	}
	return *t
}

// verdict classifies text and builds its verdict.
func (s *Service) verdict(ctx context.Context, text string, threshold float64) (emotion.Verdict, error) {
	if threshold < 0 || threshold > 1 {
		return emotion.Verdict{}, invalid("threshold %v outside [0,1]", threshold)
	}
	scores, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return emotion.Verdict{}, fmt.Errorf("classify: %w", err)
	}
	v, err := emotion.BuildVerdict(scores, threshold, emotion.WithModelVersion(s.classifier.ModelVersion()))
	if err != nil {
		// The classifier produced scores the verdict builder rejects.
		metrics.RecordClassifierError("invalid_scores")
		return emotion.Verdict{}, fmt.Errorf("%w: %v", emotion.ErrModelUnavailable, err)
	}
	metrics.RecordVerdict(string(v.ConfidenceTier), v.PrimaryLabel, v.Complexity)
	return v, nil
}

func (s *Service) analyze(ctx context.Context, text string, threshold float64, explain bool) (Analysis, error) {
	start := time.Now()
	if err := s.checkText(text); err != nil {
		return Analysis{}, err
	}
	v, err := s.verdict(ctx, text, threshold)
	if err != nil {
		return Analysis{}, err
	}
	out := Analysis{Verdict: v, CreatedAt: s.now().UTC()}
	if explain {
		out.Explanation = emotion.Describe(v)
		res := explainer.Describe(ctx, s.explainer, text, v, s.logger)
		out.ExplanationSummary = res.Summary
		out.WordImportance = res.TopWords
		out.ExplanationDegraded = res.Degraded
	}
	out.ProcessingTimeMs = time.Since(start).Milliseconds()
	return out, nil
}

// save stores the analysis for subject and sets its ID. Anonymous analyses
// are not stored.
func (s *Service) save(ctx context.Context, subject, text string, a *Analysis) error {
	if subject == "" {
		return nil
	}
	rec := model.Analysis{ID: uuid.NewString(), Subject: subject, Text: text, Verdict: a.Verdict, CreatedAt: a.CreatedAt}
	if err := s.store.SaveAnalysis(ctx, rec); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	a.ID = rec.ID
	return nil
}

// Analyze builds the verdict for one text and stores it when subject is set.
// The explanation is included unless explicitly turned off.
func (s *Service) Analyze(ctx context.Context, subject string, req AnalyzeRequest) (Analysis, error) {
	explain := req.IncludeExplanation == nil || *req.IncludeExplanation
	a, err := s.analyze(ctx, req.Text, s.thresholdOr(req.Threshold), explain)
	if err != nil {
		return Analysis{}, err
	}
	if err := s.save(ctx, subject, req.Text, &a); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

// AnalyzeBatch analyzes each text independently on the worker pool. Batch
// results are not stored. Any failing text fails the batch with the error of
// the first failing text.
func (s *Service) AnalyzeBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	start := time.Now()
	if n := len(req.Texts); n == 0 || n > s.maxBatchSize {
		return BatchResult{}, invalid("batch holds %d texts, allowed 1 to %d", n, s.maxBatchSize)
	}
	threshold := s.thresholdOr(req.Threshold)
	for i, t := range req.Texts {
		if err := s.checkText(t); err != nil {
			return BatchResult{}, fmt.Errorf("text %d: %w", i, err)
		}
	}
	metrics.RecordBatchSize(len(req.Texts))

	results := make([]Analysis, len(req.Texts))
	jobs := make([]worker.Job, len(req.Texts))
	for i, text := range req.Texts {
		i, text := i, text
		jobs[i] = func(ctx context.Context) error {
			a, err := s.analyze(ctx, text, threshold, req.IncludeExplanation)
			if err != nil {
				return err
			}
			results[i] = a
			return nil
		}
	}
	for i, err := range s.pool.Do(ctx, jobs) {
		if err != nil {
			s.logger.Warn(ctx, "batch analysis failed", logger.Int("index", i), logger.Error(err))
			return BatchResult{}, fmt.Errorf("text %d: %w", i, err)
		}
	}
	return BatchResult{Results: results, TotalProcessingTimeMs: time.Since(start).Milliseconds()}, nil
}

// SupportedLabels lists the label set.
func (s *Service) SupportedLabels() Supported {
	return Supported{
		Emotions:    emotion.Labels(),
		Total:       emotion.LabelCount(),
		Version:     emotion.LabelSetVersion,
		Description: supportedDescription,
	}
}
