package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/moodtune/internal/domain/matching"
	"github.com/okian/moodtune/internal/domain/model"
)

// MemoryStore is a Store held in process memory. All state is lost on exit.
type MemoryStore struct {
	mu       sync.RWMutex
	items    []matching.CatalogItem // catalog order
	analyses []model.Analysis
	matches  []model.Match
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) indexOfItem(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	for i := range s.items {
		if s.items[i].ExternalID != "" && s.items[i].ExternalID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) indexOfMatch(subject, id string) int {
	for i := range s.matches {
		if s.matches[i].ID == id && s.matches[i].Subject == subject {
			return i
		}
	}
	return -1
}

// cloneItem copies the slices and maps of an item so callers cannot reach
// into the store.
func cloneItem(it matching.CatalogItem) matching.CatalogItem {
	out := it
	out.Labels = append([]string(nil), it.Labels...)
	if it.LabelScores != nil {
		out.LabelScores = make(map[string]float64, len(it.LabelScores))
		for k, v := range it.LabelScores {
			out.LabelScores[k] = v
		}
	}
	if it.AverageRating != nil {
		r := *it.AverageRating
		out.AverageRating = &r
	}
	return out
}

func (s *MemoryStore) hydrate(m model.Match) model.Match {
	if i := s.indexOfItem(m.ItemID); i >= 0 {
		m.Item = cloneItem(s.items[i])
	}
	m.MatchedLabels = append([]string(nil), m.MatchedLabels...)
	m.Reasons = append([]string(nil), m.Reasons...)
	if m.Feedback != nil {
		fb := *m.Feedback
		m.Feedback = &fb
	}
	return m
}

// ListCatalogItems implements Store.
func (s *MemoryStore) ListCatalogItems(_ context.Context, f CatalogFilter) (model.Page[matching.CatalogItem], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]matching.CatalogItem, len(s.items))
	for i, it := range s.items {
		items[i] = cloneItem(it)
	}
	return pageCatalog(items, f), nil
}

// GetCatalogItem implements Store.
func (s *MemoryStore) GetCatalogItem(_ context.Context, id string) (matching.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOfItem(id)
	if i < 0 {
		return matching.CatalogItem{}, fmt.Errorf("catalog item %q: %w", id, ErrNotFound)
	}
	return cloneItem(s.items[i]), nil
}

// UpsertCatalogItem implements Store.
func (s *MemoryStore) UpsertCatalogItem(_ context.Context, item matching.CatalogItem) (matching.CatalogItem, error) {
	if !validItem(item) {
		return matching.CatalogItem{}, fmt.Errorf("%w: %q", ErrInvalidItem, item.Title)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := -1
	if item.ID != "" {
		i = s.indexOfItem(item.ID)
	}
	if i < 0 && item.ExternalID != "" {
		i = s.indexOfItem(item.ExternalID)
	}
	if i >= 0 {
		item.ID = s.items[i].ID
		s.items[i] = cloneItem(item)
		return cloneItem(item), nil
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	s.items = append(s.items, cloneItem(item))
	return cloneItem(item), nil
}

// SaveAnalysis implements Store.
func (s *MemoryStore) SaveAnalysis(_ context.Context, a model.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses = append(s.analyses, a)
	return nil
}

// RecordMatch implements Store.
func (s *MemoryStore) RecordMatch(_ context.Context, m model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfItem(m.ItemID)
	if i < 0 {
		return fmt.Errorf("catalog item %q: %w", m.ItemID, ErrNotFound)
	}
	s.items[i].MatchCount++
	m.Item = matching.CatalogItem{}
	s.matches = append(s.matches, m)
	return nil
}

// GetMatch implements Store.
func (s *MemoryStore) GetMatch(_ context.Context, subject, id string) (model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOfMatch(subject, id)
	if i < 0 {
		return model.Match{}, fmt.Errorf("match %q: %w", id, ErrNotFound)
	}
	return s.hydrate(s.matches[i]), nil
}

// RecordFeedback implements Store.
func (s *MemoryStore) RecordFeedback(_ context.Context, subject, id string, fb model.Feedback) (model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mi := s.indexOfMatch(subject, id)
	if mi < 0 {
		return model.Match{}, fmt.Errorf("match %q: %w", id, ErrNotFound)
	}
	m := &s.matches[mi]
	wasPlayed := m.Feedback != nil && m.Feedback.Played
	m.Feedback = &fb

	if ii := s.indexOfItem(m.ItemID); ii >= 0 {
		item := &s.items[ii]
		if fb.Played && !wasPlayed {
			item.PlayCount++
		}
		item.AverageRating = s.averageRating(item.ID)
	}
	return s.hydrate(*m), nil
}

func (s *MemoryStore) averageRating(itemID string) *float64 {
	var sum, n int
	for _, m := range s.matches {
		if m.ItemID == itemID && m.Feedback != nil {
			sum += m.Feedback.Rating
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := float64(sum) / float64(n)
	return &avg
}

// QueryHistory implements Store.
func (s *MemoryStore) QueryHistory(_ context.Context, subject string, since time.Time) (model.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := model.History{Subject: subject, Since: since, Analyses: []model.Analysis{}, Matches: []model.Match{}}
	for _, a := range s.analyses {
		if a.Subject == subject && !a.CreatedAt.Before(since) {
			h.Analyses = append(h.Analyses, a)
		}
	}
	for _, m := range s.matches {
		if m.Subject == subject && !m.CreatedAt.Before(since) {
			h.Matches = append(h.Matches, s.hydrate(m))
		}
	}
	sort.SliceStable(h.Analyses, func(i, j int) bool { return h.Analyses[i].CreatedAt.Before(h.Analyses[j].CreatedAt) })
	sort.SliceStable(h.Matches, func(i, j int) bool { return h.Matches[i].CreatedAt.Before(h.Matches[j].CreatedAt) })
	return h, nil
}

// ListMatches implements Store.
func (s *MemoryStore) ListMatches(_ context.Context, subject string, page, perPage int) (model.Page[model.Match], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var mine []model.Match
	for _, m := range s.matches {
		if m.Subject == subject {
			mine = append(mine, m)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	lo, hi := bounds(len(mine), page, perPage)
	out := make([]model.Match, 0, hi-lo)
	for _, m := range mine[lo:hi] {
		out = append(out, s.hydrate(m))
	}
	return model.NewPage(out, len(mine), normalizePage(page), perPage), nil
}

// ClearHistory implements Store.
func (s *MemoryStore) ClearHistory(_ context.Context, subject string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	analyses := s.analyses[:0]
	for _, a := range s.analyses {
		if a.Subject == subject {
			removed++
			continue
		}
		analyses = append(analyses, a)
	}
	s.analyses = analyses
	matches := s.matches[:0]
	for _, m := range s.matches {
		if m.Subject == subject {
			removed++
			continue
		}
		matches = append(matches, m)
	}
	s.matches = matches
	return removed, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
