package insights

import "fmt"

const (
	topN              = 5
	topPreferences    = 3
	tasteMinMatches   = 5
	preferredRating   = 4
	dislikedRating    = 2
	tasteNoDataFormat = "Get at least %d recommendations to see your music taste profile!"
)

// DayStat summarizes the verdicts of one calendar day.
type DayStat struct {
	Date          string  `json:"date"`
	DominantLabel string  `json:"dominant_emotion"`
	AvgConfidence float64 `json:"avg_confidence"`
	Count         int     `json:"count"`
}

// Stats is the history overview for a window.
type Stats struct {
	TotalMatches  int           `json:"total_recommendations"`
	AverageRating *float64      `json:"average_rating"`
	TopLabels     []LabelCount  `json:"most_common_emotions"`
	TopArtists    []ArtistCount `json:"favorite_artists"`
	DailyTrend    []DayStat     `json:"emotion_trend"`
}

// Summarize computes history stats. Days are UTC calendar dates, oldest first.
func Summarize(w Window) Stats {
	stats := Stats{
		TotalMatches: len(w.Matches),
		TopLabels:    []LabelCount{},
		TopArtists:   []ArtistCount{},
		DailyTrend:   []DayStat{},
	}

	var ratingSum, rated int
	artists := newTally()
	for _, m := range w.Matches {
		if m.Rating != nil {
			ratingSum += *m.Rating
			rated++
		}
		if m.Artist != "" {
			artists.add(m.Artist)
		}
	}
	if rated > 0 {
		avg := round2(float64(ratingSum) / float64(rated))
		stats.AverageRating = &avg
	}
	stats.TopArtists = artistCounts(artists.top(topN))

	labels := newTally()
	type day struct {
		labels        *tally
		confidenceSum float64
	}
	var order []string
	days := make(map[string]*day)
	for _, v := range w.Verdicts {
		labels.add(v.PrimaryLabel)

		key := v.At.UTC().Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			d = &day{labels: newTally()}
			days[key] = d
			order = append(order, key)
		}
		d.labels.add(v.PrimaryLabel)
		d.confidenceSum += v.PrimaryConfidence
	}
	stats.TopLabels = labelCounts(labels.top(topN))

	for _, key := range order {
		d := days[key]
		dominant, _ := d.labels.mode()
		stats.DailyTrend = append(stats.DailyTrend, DayStat{
			Date:          key,
			DominantLabel: dominant.key,
			AvgConfidence: round2(d.confidenceSum / float64(d.labels.total)),
			Count:         d.labels.total,
		})
	}
	return stats
}

// TasteProfile describes which artists and labels a subject's matches lean to.
type TasteProfile struct {
	TopArtists          []ArtistCount `json:"top_artists"`
	LabelPreferences    []LabelCount  `json:"music_emotion_preferences"`
	PreferredLabels     []LabelCount  `json:"preferred_emotions"`
	LessPreferredLabels []LabelCount  `json:"less_preferred_emotions"`
	TotalMatches        int           `json:"total_recommendations"`
	AverageMatchScore   float64       `json:"average_match_score"`
	FeedbackCount       int           `json:"feedback_count"`
	Description         string        `json:"description"`
}

// Taste is the result of the music-taste analysis.
type Taste struct {
	HasData bool          `json:"has_data"`
	Message string        `json:"message,omitempty"`
	Profile *TasteProfile `json:"profile"`
}

// AnalyzeTaste builds a taste profile from the window's matches. Fewer than
// five matches yield HasData false.
func AnalyzeTaste(w Window) Taste {
	if len(w.Matches) < tasteMinMatches {
		return Taste{Message: fmt.Sprintf(tasteNoDataFormat, tasteMinMatches)}
	}

	artists, matched := newTally(), newTally()
	preferred, avoided := newTally(), newTally()
	var scoreSum float64
	var feedback int

	for _, m := range w.Matches {
		if m.Artist != "" {
			artists.add(m.Artist)
		}
		for _, l := range m.MatchedLabels {
			matched.add(l)
		}
		scoreSum += m.MatchScore
		if m.Rating == nil {
			continue
		}
		feedback++
		switch {
		case *m.Rating >= preferredRating:
			for _, l := range m.MatchedLabels {
				preferred.add(l)
			}
		case *m.Rating <= dislikedRating:
			for _, l := range m.MatchedLabels {
				avoided.add(l)
			}
		}
	}

	p := &TasteProfile{
		TopArtists:          artistCounts(artists.top(topN)),
		LabelPreferences:    labelCounts(matched.top(topN)),
		PreferredLabels:     labelCounts(preferred.top(topPreferences)),
		LessPreferredLabels: labelCounts(avoided.top(topPreferences)),
		TotalMatches:        len(w.Matches),
		AverageMatchScore:   round2(scoreSum / float64(len(w.Matches))),
		FeedbackCount:       feedback,
	}
	if len(p.TopArtists) > 0 {
		p.Description = fmt.Sprintf(
			"Based on %d recommendations, you gravitate towards artists like **%s**. ",
			p.TotalMatches, p.TopArtists[0].Artist,
		)
	}
	if len(p.LabelPreferences) > 0 {
		p.Description += fmt.Sprintf("You tend to seek out music that evokes **%s**.", p.LabelPreferences[0].Label)
	}

	return Taste{HasData: true, Profile: p}
}
