// Package model contains the persisted records passed between layers.
package model

import (
	"sort"
	"time"

	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/internal/domain/insights"
	"github.com/okian/moodtune/internal/domain/matching"
)

// Analysis is a stored verdict for one piece of text.
type Analysis struct {
	ID        string          `json:"id"`
	Subject   string          `json:"subject_id"`
	Text      string          `json:"text"`
	Verdict   emotion.Verdict `json:"verdict"`
	CreatedAt time.Time       `json:"created_at"`
}

// Event reduces the analysis to what history analytics reads.
func (a Analysis) Event() insights.VerdictEvent {
	return insights.VerdictEvent{
		ID:                a.ID,
		At:                a.CreatedAt,
		PrimaryLabel:      a.Verdict.PrimaryLabel,
		PrimaryConfidence: a.Verdict.PrimaryConfidence,
		Complexity:        a.Verdict.Complexity,
	}
}

// Feedback is what a subject said about a match after the fact.
type Feedback struct {
	Rating int       `json:"rating"`
	Text   string    `json:"feedback_text,omitempty"`
	Played bool      `json:"was_played"`
	Saved  bool      `json:"was_saved"`
	At     time.Time `json:"created_at"`
}

// Match is a stored recommendation. Item is hydrated on read and may be zero
// when the catalog entry is gone.
type Match struct {
	ID            string               `json:"id"`
	Subject       string               `json:"subject_id"`
	AnalysisID    string               `json:"analysis_id,omitempty"`
	ItemID        string               `json:"song_id"`
	Item          matching.CatalogItem `json:"song"`
	PrimaryLabel  string               `json:"primary_emotion"`
	MatchedLabels []string             `json:"matched_emotions"`
	MatchScore    float64              `json:"match_score"`
	Explanation   string               `json:"explanation,omitempty"`
	Reasons       []string             `json:"why_this_song,omitempty"`
	Feedback      *Feedback            `json:"feedback,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Event reduces the match to what history analytics reads.
func (m Match) Event() insights.MatchEvent {
	ev := insights.MatchEvent{
		ID:            m.ID,
		At:            m.CreatedAt,
		ItemID:        m.ItemID,
		Artist:        m.Item.Artist,
		MatchedLabels: m.MatchedLabels,
		MatchScore:    m.MatchScore,
	}
	if m.Feedback != nil {
		r := m.Feedback.Rating
		ev.Rating = &r
	}
	return ev
}

// History is everything stored for a subject since a point in time, oldest
// first.
type History struct {
	Subject  string
	Since    time.Time
	Until    time.Time
	Analyses []Analysis
	Matches  []Match
}

// Window converts the history into an analytics window.
func (h History) Window() insights.Window {
	w := insights.Window{
		Subject:  h.Subject,
		From:     h.Since,
		To:       h.Until,
		Verdicts: make([]insights.VerdictEvent, 0, len(h.Analyses)),
		Matches:  make([]insights.MatchEvent, 0, len(h.Matches)),
	}
	for _, a := range h.Analyses {
		w.Verdicts = append(w.Verdicts, a.Event())
	}
	for _, m := range h.Matches {
		w.Matches = append(w.Matches, m.Event())
	}
	return w
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// NewPage wraps items with paging metadata.
func NewPage[T any](items []T, total, page, perPage int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Page[T]{Items: items, Total: total, Page: page, PerPage: perPage, TotalPages: pages}
}

const mostPlayedLimit = 5

// CatalogStats summarizes the catalog.
type CatalogStats struct {
	TotalItems    int                    `json:"total_songs"`
	TotalPlays    int                    `json:"total_plays"`
	TotalMatches  int                    `json:"total_matches"`
	LabelsCovered []string               `json:"emotions_covered"`
	ByLabel       map[string]int         `json:"emotion_distribution"`
	MostPlayed    []matching.CatalogItem `json:"most_played_songs"`
}

// SummarizeCatalog computes catalog stats. Every label appears in ByLabel,
// zero counts included. Most played ties keep catalog order.
func SummarizeCatalog(items []matching.CatalogItem) CatalogStats {
	stats := CatalogStats{
		TotalItems:    len(items),
		LabelsCovered: emotion.Labels(),
		ByLabel:       make(map[string]int, emotion.LabelCount()),
		MostPlayed:    []matching.CatalogItem{},
	}
	for _, l := range stats.LabelsCovered {
		stats.ByLabel[l] = 0
	}
	for _, it := range items {
		stats.TotalPlays += it.PlayCount
		stats.TotalMatches += it.MatchCount
		for _, l := range it.EffectiveLabels() {
			if _, ok := stats.ByLabel[l]; ok {
				stats.ByLabel[l]++
			}
		}
	}

	sorted := make([]matching.CatalogItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PlayCount > sorted[j].PlayCount })
	if len(sorted) > mostPlayedLimit {
		sorted = sorted[:mostPlayedLimit]
	}
	stats.MostPlayed = append(stats.MostPlayed, sorted...)
	return stats
}
