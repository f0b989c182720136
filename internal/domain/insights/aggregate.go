package insights

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/moodtune/internal/domain/emotion"
)

const (
	// DefaultRecentDays splits the window into recent and older halves.
	DefaultRecentDays = 7

	trendSignificance = 0.10
	complexityFloor   = 0.6

	noDataMessage = "Not enough data to generate insights. Keep using MoodTune!"
)

// Insight types, in the order they are emitted.
const (
	TypeWeekdayPattern = "weekday_pattern"
	TypeTimePattern    = "time_pattern"
	TypeTrend          = "trend"
	TypeComplexity     = "complexity"
)

// Day parts by local hour.
const (
	Morning   = "morning"
	Afternoon = "afternoon"
	Evening   = "evening"
	Night     = "night"
)

// DayPart buckets an hour of the day. Night wraps across midnight.
func DayPart(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 21:
		return Evening
	default:
		return Night
	}
}

// Options tune Aggregate. Zero values fall back to defaults.
type Options struct {
	RecentDays int
	Now        time.Time
	Location   *time.Location
}

func (o Options) normalized() Options {
	if o.RecentDays <= 0 {
		o.RecentDays = DefaultRecentDays
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// Partition describes the modal label of one slice of the window.
type Partition struct {
	Label      string  `json:"emotion"`
	Count      int     `json:"count"`
	Total      int     `json:"total"`
	Share      float64 `json:"share"`
	Percentage int     `json:"percentage"`
}

// Trend compares the positive share of recent verdicts against older ones.
type Trend struct {
	RecentShare float64 `json:"recent_positive_ratio"`
	OlderShare  float64 `json:"older_positive_ratio"`
	Delta       float64 `json:"change"`
	Direction   string  `json:"direction"`
	Percentage  int     `json:"percentage"`
	Significant bool    `json:"significant"`
}

// Insight is one observation surfaced to the subject.
type Insight struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Data        any    `json:"data"`
}

// InsightSet is the result of Aggregate. With HasData false every other field
// except Message is zero.
type InsightSet struct {
	HasData        bool                 `json:"has_data"`
	Message        string               `json:"message,omitempty"`
	Total          int                  `json:"total_analyses"`
	Overall        Partition            `json:"overall"`
	Weekdays       map[string]Partition `json:"weekdays,omitempty"`
	DayParts       map[string]Partition `json:"day_parts,omitempty"`
	BusiestDay     string               `json:"busiest_day,omitempty"`
	BusiestCount   int                  `json:"busiest_day_count,omitempty"`
	Trend          *Trend               `json:"trend,omitempty"`
	MeanComplexity float64              `json:"mean_complexity"`
	Insights       []Insight            `json:"insights"`
}

// Aggregate computes mood patterns, the recent trend and the complexity
// insight over the window's verdicts.
func Aggregate(w Window, opts Options) InsightSet {
	opts = opts.normalized()
	if len(w.Verdicts) == 0 {
		return InsightSet{Message: noDataMessage, Insights: []Insight{}}
	}

	overall := newTally()
	weekdays := make(map[string]*tally)
	dayParts := make(map[string]*tally)
	var complexitySum float64

	for _, v := range w.Verdicts {
		local := v.At.In(opts.Location)
		overall.add(v.PrimaryLabel)
		bucket(weekdays, local.Weekday().String()).add(v.PrimaryLabel)
		bucket(dayParts, DayPart(local.Hour())).add(v.PrimaryLabel)
		complexitySum += v.Complexity
	}

	set := InsightSet{
		HasData:        true,
		Total:          overall.total,
		Overall:        partitionOf(overall),
		Weekdays:       partitions(weekdays),
		DayParts:       partitions(dayParts),
		MeanComplexity: complexitySum / float64(len(w.Verdicts)),
		Insights:       []Insight{},
	}
	set.BusiestDay, set.BusiestCount = busiest(weekdays)

	set.Insights = append(set.Insights, Insight{
		Type:  TypeWeekdayPattern,
		Title: "Your Most Active Day",
		Description: fmt.Sprintf(
			"You tend to check in most on **%ss** - you've shared your mood %d times on this day.",
			set.BusiestDay, set.BusiestCount,
		),
		Data: set.Weekdays,
	})
	set.Insights = append(set.Insights, Insight{
		Type:        TypeTimePattern,
		Title:       "Mood by Time of Day",
		Description: "Your emotional patterns vary throughout the day.",
		Data:        set.DayParts,
	})

	set.Trend = trend(w.Verdicts, opts.Now.AddDate(0, 0, -opts.RecentDays))
	if set.Trend != nil && set.Trend.Significant {
		set.Insights = append(set.Insights, Insight{
			Type:  TypeTrend,
			Title: "Recent Mood Trend",
			Description: fmt.Sprintf(
				"Your mood has been **%d%% %s** this week compared to before.",
				set.Trend.Percentage, set.Trend.Direction,
			),
			Data: set.Trend,
		})
	}

	if set.MeanComplexity > complexityFloor {
		set.Insights = append(set.Insights, Insight{
			Type:        TypeComplexity,
			Title:       "Rich Emotional Expression",
			Description: "You experience a diverse range of emotions - your emotional complexity score is above average!",
			Data:        map[string]float64{"complexity_score": round2(set.MeanComplexity)},
		})
	}

	return set
}

func bucket(m map[string]*tally, key string) *tally {
	t, ok := m[key]
	if !ok {
		t = newTally()
		m[key] = t
	}
	return t
}

func partitionOf(t *tally) Partition {
	top, ok := t.mode()
	if !ok {
		return Partition{}
	}
	share := float64(top.count) / float64(t.total)
	return Partition{
		Label:      top.key,
		Count:      top.count,
		Total:      t.total,
		Share:      share,
		Percentage: int(math.Round(share * 100)),
	}
}

func partitions(m map[string]*tally) map[string]Partition {
	out := make(map[string]Partition, len(m))
	for k, t := range m {
		out[k] = partitionOf(t)
	}
	return out
}

// busiest picks the weekday with the most verdicts; ties go to the
// alphabetically first name.
func busiest(m map[string]*tally) (string, int) {
	var (
		day   string
		count int
	)
	for name, t := range m {
		if t.total > count || (t.total == count && name < day) {
			day, count = name, t.total
		}
	}
	return day, count
}

// trend returns nil unless both halves around cutoff hold verdicts.
func trend(verdicts []VerdictEvent, cutoff time.Time) *Trend {
	var recent, older, recentPos, olderPos int
	for _, v := range verdicts {
		positive := emotion.IsPositive(v.PrimaryLabel)
		if v.At.Before(cutoff) {
			older++
			if positive {
				olderPos++
			}
			continue
		}
		recent++
		if positive {
			recentPos++
		}
	}
	if recent == 0 || older == 0 {
		return nil
	}

	t := &Trend{
		RecentShare: float64(recentPos) / float64(recent),
		OlderShare:  float64(olderPos) / float64(older),
	}
	t.Delta = t.RecentShare - t.OlderShare
	t.Percentage = int(math.Round(math.Abs(t.Delta) * 100))
	t.Significant = math.Abs(t.Delta) > trendSignificance
	t.Direction = "more reflective"
	if t.Delta > 0 {
		t.Direction = "more positive"
	}
	return t
}
