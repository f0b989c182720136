// Package insights computes longitudinal analytics over one subject's history
// of verdicts and matches.
//
// Everything here works on an already materialized Window. The package does no
// I/O and holds no state, so callers may aggregate concurrently.
package insights

import "time"

// VerdictEvent is a stored verdict reduced to the fields analytics reads.
type VerdictEvent struct {
	ID                string    `json:"id"`
	At                time.Time `json:"created_at"`
	PrimaryLabel      string    `json:"primary_emotion"`
	PrimaryConfidence float64   `json:"primary_confidence"`
	Complexity        float64   `json:"emotional_complexity"`
}

// MatchEvent is a stored match with any feedback attached to it.
type MatchEvent struct {
	ID            string    `json:"id"`
	At            time.Time `json:"created_at"`
	ItemID        string    `json:"song_id"`
	Artist        string    `json:"artists"`
	MatchedLabels []string  `json:"matched_emotions"`
	MatchScore    float64   `json:"match_score"`
	Rating        *int      `json:"feedback_rating,omitempty"`
}

// Window is one subject's history over [From, To]. Events are ordered by time,
// oldest first.
type Window struct {
	Subject  string
	From     time.Time
	To       time.Time
	Verdicts []VerdictEvent
	Matches  []MatchEvent
}

// Empty reports whether the window holds no events at all.
func (w Window) Empty() bool {
	return len(w.Verdicts) == 0 && len(w.Matches) == 0
}
