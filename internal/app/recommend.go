package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/okian/moodtune/internal/adapters/repository"
	"github.com/okian/moodtune/internal/domain/dedupe"
	"github.com/okian/moodtune/internal/domain/matching"
	"github.com/okian/moodtune/internal/domain/model"
	"github.com/okian/moodtune/pkg/logger"
	"github.com/okian/moodtune/pkg/metrics"
)

const (
	maxFeedbackText = 1000
	maxPerPage      = 100
)

// RecommendRequest asks for the catalog item that best fits a text.
type RecommendRequest struct {
	Text               string `json:"text"`
	IncludeExplanation *bool  `json:"include_explanation,omitempty"`
	SaveToHistory      *bool  `json:"save_to_history,omitempty"`
}

// Recommendation is a stored match with the analysis that produced it.
type Recommendation struct {
	ID            string               `json:"id"`
	Item          matching.CatalogItem `json:"song"`
	MatchScore    float64              `json:"match_score"`
	MatchedLabels []string             `json:"matched_emotions"`
	Explanation   string               `json:"explanation,omitempty"`
	Reasons       []string             `json:"why_this_song,omitempty"`
	Analysis      *Analysis            `json:"emotion_analysis,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// FeedbackRequest rates a recommendation.
type FeedbackRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"feedback_text,omitempty"`
	Played bool   `json:"was_played"`
	Saved  bool   `json:"was_saved"`
}

// FeedbackResult acknowledges feedback.
type FeedbackResult struct {
	Message string `json:"message"`
	Rating  int    `json:"rating"`
}

func flag(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// Recommend analyzes text, selects the best catalog item and records the
// match. For a known subject, a non-empty idempotency key makes a repeat of
// the same request fail with ErrDuplicate; the key is released again if the
// request fails. Anonymous callers have no scope to share keys in, so their
// keys are ignored. The analysis is stored only when save_to_history holds
// and subject is set.
func (s *Service) Recommend(ctx context.Context, subject, idemKey string, req RecommendRequest) (rec Recommendation, err error) {
	if idemKey != "" && subject != "" {
		key := dedupe.Key(subject, idemKey)
		seen, derr := s.deduper.SeenAndRecord(ctx, key)
		switch {
		case derr != nil:
			s.logger.Warn(ctx, "idempotency check failed, continuing", logger.Error(derr))
		case seen:
			metrics.RecordDuplicate()
			return Recommendation{}, fmt.Errorf("%w: idempotency key %q", ErrDuplicate, idemKey)
		default:
			defer func() {
				if err == nil {
					return
				}
				if uerr := s.deduper.Unrecord(ctx, key); uerr != nil {
					s.logger.Warn(ctx, "failed to release idempotency key", logger.Error(uerr))
				}
			}()
		}
	}

	explain := flag(req.IncludeExplanation, true)
	a, err := s.analyze(ctx, req.Text, s.threshold, false)
	if err != nil {
		return Recommendation{}, err
	}
	if flag(req.SaveToHistory, true) {
		if err := s.save(ctx, subject, req.Text, &a); err != nil {
			return Recommendation{}, err
		}
	}

	catalog, err := s.store.ListCatalogItems(ctx, repository.CatalogFilter{})
	if err != nil {
		return Recommendation{}, fmt.Errorf("load catalog: %w", err)
	}
	res, ok := matching.FindBestMatch(a.Verdict, catalog.Items)
	if !ok {
		metrics.RecordNoMatch()
		return Recommendation{}, ErrNoMatch
	}

	m := model.Match{
		ID:            uuid.NewString(),
		Subject:       subject,
		AnalysisID:    a.ID,
		ItemID:        res.Item.ID,
		Item:          res.Item,
		PrimaryLabel:  a.PrimaryLabel,
		MatchedLabels: res.MatchedLabels,
		MatchScore:    res.MatchScore,
		CreatedAt:     s.now().UTC(),
	}
	if explain {
		exp := matching.Explain(res.Item, a.PrimaryLabel, res.MatchedLabels, res.MatchScore)
		m.Explanation = exp.Text
		m.Reasons = exp.Reasons
	}
	if err := s.store.RecordMatch(ctx, m); err != nil {
		return Recommendation{}, fmt.Errorf("record match: %w", err)
	}
	metrics.RecordMatch(res.MatchScore)

	item, gerr := s.store.GetCatalogItem(ctx, res.Item.ID)
	if gerr != nil {
		s.logger.Warn(ctx, "failed to reload matched item", logger.Error(gerr))
		item = res.Item
		item.MatchCount++
	}

	return Recommendation{
		ID:            m.ID,
		Item:          item,
		MatchScore:    m.MatchScore,
		MatchedLabels: m.MatchedLabels,
		Explanation:   m.Explanation,
		Reasons:       m.Reasons,
		Analysis:      &a,
		CreatedAt:     m.CreatedAt,
	}, nil
}

func requireSubject(subject string) error {
	if subject == "" {
		return ErrNoSubject
	}
	return nil
}

func checkPage(page, perPage, maxPer int) error {
	if page < 1 {
		return invalid("page must be at least 1")
	}
	if perPage < 1 || perPage > maxPer {
		return invalid("per_page must be between 1 and %d", maxPer)
	}
	return nil
}

// History pages through subject's recommendations, newest first.
func (s *Service) History(ctx context.Context, subject string, page, perPage int) (model.Page[model.Match], error) {
	if err := requireSubject(subject); err != nil {
		return model.Page[model.Match]{}, err
	}
	if err := checkPage(page, perPage, maxPerPage); err != nil {
		return model.Page[model.Match]{}, err
	}
	return s.store.ListMatches(ctx, subject, page, perPage)
}

// GetMatch returns one of subject's recommendations.
func (s *Service) GetMatch(ctx context.Context, subject, id string) (model.Match, error) {
	if err := requireSubject(subject); err != nil {
		return model.Match{}, err
	}
	return s.store.GetMatch(ctx, subject, id)
}

// Feedback attaches a rating to one of subject's recommendations. It never
// changes the stored match score.
func (s *Service) Feedback(ctx context.Context, subject, id string, req FeedbackRequest) (FeedbackResult, error) {
	if err := requireSubject(subject); err != nil {
		return FeedbackResult{}, err
	}
	if req.Rating < 1 || req.Rating > 5 {
		return FeedbackResult{}, invalid("rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(req.Text) > maxFeedbackText {
		return FeedbackResult{}, invalid("feedback_text exceeds %d characters", maxFeedbackText)
	}
	fb := model.Feedback{Rating: req.Rating, Text: req.Text, Played: req.Played, Saved: req.Saved, At: s.now().UTC()}
	if _, err := s.store.RecordFeedback(ctx, subject, id, fb); err != nil {
		return FeedbackResult{}, err
	}
	metrics.RecordFeedback(req.Rating)
	return FeedbackResult{Message: "Feedback submitted successfully", Rating: req.Rating}, nil
}
