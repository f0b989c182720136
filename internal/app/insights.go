package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/moodtune/internal/domain/insights"
	"github.com/okian/moodtune/internal/domain/model"
	"github.com/okian/moodtune/pkg/metrics"
)

// Accepted period lengths in days.
const (
	minStatsDays   = 1
	minPatternDays = 7
	maxDays        = 365
)

// MoodReport is the mood-pattern analysis over a period.
type MoodReport struct {
	PeriodDays int `json:"period_days"`
	insights.InsightSet
}

// HistoryReport is the history overview over a period.
type HistoryReport struct {
	PeriodDays int `json:"period_days"`
	insights.Stats
}

// daysOr resolves an optional period, 0 meaning the configured default.
func (s *Service) daysOr(days, lo int) (int, error) {
	if days == 0 {
		days = s.insightDays
	}
	if days < lo || days > maxDays {
		return 0, invalid("days must be between %d and %d", lo, maxDays)
	}
	return days, nil
}

func (s *Service) history(ctx context.Context, subject string, since time.Time) (model.History, error) {
	h, err := s.store.QueryHistory(ctx, subject, since)
	if err != nil {
		return model.History{}, fmt.Errorf("query history: %w", err)
	}
	h.Until = s.now()
	return h, nil
}

// HistoryStats summarizes subject's recommendations and verdicts over the
// last days days.
func (s *Service) HistoryStats(ctx context.Context, subject string, days int) (HistoryReport, error) {
	if err := requireSubject(subject); err != nil {
		return HistoryReport{}, err
	}
	days, err := s.daysOr(days, minStatsDays)
	if err != nil {
		return HistoryReport{}, err
	}
	h, err := s.history(ctx, subject, s.now().AddDate(0, 0, -days))
	if err != nil {
		return HistoryReport{}, err
	}
	return HistoryReport{PeriodDays: days, Stats: insights.Summarize(h.Window())}, nil
}

// ClearHistory deletes subject's stored analyses and recommendations.
func (s *Service) ClearHistory(ctx context.Context, subject string) (int, error) {
	if err := requireSubject(subject); err != nil {
		return 0, err
	}
	return s.store.ClearHistory(ctx, subject)
}

// MoodPatterns aggregates subject's verdicts over the last days days.
func (s *Service) MoodPatterns(ctx context.Context, subject string, days int) (MoodReport, error) {
	if err := requireSubject(subject); err != nil {
		return MoodReport{}, err
	}
	days, err := s.daysOr(days, minPatternDays)
	if err != nil {
		return MoodReport{}, err
	}
	now := s.now()
	h, err := s.history(ctx, subject, now.AddDate(0, 0, -days))
	if err != nil {
		return MoodReport{}, err
	}
	set := insights.Aggregate(h.Window(), insights.Options{RecentDays: s.recentDays, Now: now, Location: s.location})
	for _, in := range set.Insights {
		metrics.RecordInsight(in.Type)
	}
	return MoodReport{PeriodDays: days, InsightSet: set}, nil
}

// MusicTaste profiles every recommendation subject has received.
func (s *Service) MusicTaste(ctx context.Context, subject string) (insights.Taste, error) {
	if err := requireSubject(subject); err != nil {
		return insights.Taste{}, err
	}
	h, err := s.history(ctx, subject, time.Time{})
	if err != nil {
		return insights.Taste{}, err
	}
	return insights.AnalyzeTaste(h.Window()), nil
}
