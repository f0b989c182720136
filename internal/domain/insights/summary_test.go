package insights_test

import (
	"testing"
	"time"

	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/internal/domain/insights"
	. "github.com/smartystreets/goconvey/convey"
)

func rating(r int) *int { return &r }

func match(artist string, score float64, r *int, labels ...string) insights.MatchEvent {
	return insights.MatchEvent{Artist: artist, MatchScore: score, Rating: r, MatchedLabels: labels}
}

func TestSummarize(t *testing.T) {
	Convey("Given a window with verdicts on two days and rated matches", t, func() {
		day1 := time.Date(2024, time.March, 18, 8, 0, 0, 0, time.UTC)
		day2 := day1.AddDate(0, 0, 1)
		w := insights.Window{
			Verdicts: []insights.VerdictEvent{
				{At: day1, PrimaryLabel: emotion.Love, PrimaryConfidence: 0.9},
				{At: day1.Add(time.Hour), PrimaryLabel: emotion.Anger, PrimaryConfidence: 0.6},
				{At: day2, PrimaryLabel: emotion.Anger, PrimaryConfidence: 0.7},
			},
			Matches: []insights.MatchEvent{
				match("Adele", 1, rating(5)),
				match("Queen", 0.5, nil),
				match("Adele", 0.5, rating(4)),
				match("", 0, rating(4)),
			},
		}
		stats := insights.Summarize(w)

		Convey("Then totals and averages should come from matches", func() {
			So(stats.TotalMatches, ShouldEqual, 4)
			So(stats.AverageRating, ShouldNotBeNil)
			So(*stats.AverageRating, ShouldEqual, 4.33)
			So(stats.TopArtists, ShouldResemble, []insights.ArtistCount{
				{Artist: "Adele", Count: 2},
				{Artist: "Queen", Count: 1},
			})
		})

		Convey("Then label counts should come from verdicts", func() {
			So(stats.TopLabels, ShouldResemble, []insights.LabelCount{
				{Label: emotion.Anger, Count: 2},
				{Label: emotion.Love, Count: 1},
			})
		})

		Convey("Then the daily trend should hold one entry per active day", func() {
			So(stats.DailyTrend, ShouldResemble, []insights.DayStat{
				{Date: "2024-03-18", DominantLabel: emotion.Love, AvgConfidence: 0.75, Count: 2},
				{Date: "2024-03-19", DominantLabel: emotion.Anger, AvgConfidence: 0.7, Count: 1},
			})
		})
	})

	Convey("Given an empty window", t, func() {
		stats := insights.Summarize(insights.Window{})

		Convey("Then averages should be absent rather than zero", func() {
			So(stats.TotalMatches, ShouldEqual, 0)
			So(stats.AverageRating, ShouldBeNil)
			So(stats.TopLabels, ShouldBeEmpty)
			So(stats.DailyTrend, ShouldBeEmpty)
		})
	})
}

func TestAnalyzeTaste(t *testing.T) {
	Convey("Given fewer than five matches", t, func() {
		w := insights.Window{Matches: []insights.MatchEvent{match("Adele", 1, nil, emotion.Love)}}
		taste := insights.AnalyzeTaste(w)

		Convey("Then no profile should be built", func() {
			So(taste.HasData, ShouldBeFalse)
			So(taste.Profile, ShouldBeNil)
			So(taste.Message, ShouldContainSubstring, "at least 5")
		})
	})

	Convey("Given five matches with mixed feedback", t, func() {
		w := insights.Window{Matches: []insights.MatchEvent{
			match("Queen", 1, rating(5), emotion.Happiness, emotion.Love),
			match("Adele", 0.5, rating(1), emotion.Sadness),
			match("Adele", 1, rating(4), emotion.Love),
			match("Queen", 0, nil),
			match("Adele", 0.5, rating(3), emotion.Sadness),
		}}
		taste := insights.AnalyzeTaste(w)

		Convey("Then the profile should rank artists and labels", func() {
			So(taste.HasData, ShouldBeTrue)
			p := taste.Profile
			So(p.TopArtists, ShouldResemble, []insights.ArtistCount{
				{Artist: "Adele", Count: 3},
				{Artist: "Queen", Count: 2},
			})
			So(p.LabelPreferences, ShouldResemble, []insights.LabelCount{
				{Label: emotion.Love, Count: 2},
				{Label: emotion.Sadness, Count: 2},
				{Label: emotion.Happiness, Count: 1},
			})
			So(p.PreferredLabels, ShouldResemble, []insights.LabelCount{
				{Label: emotion.Love, Count: 2},
				{Label: emotion.Happiness, Count: 1},
			})
			So(p.LessPreferredLabels, ShouldResemble, []insights.LabelCount{
				{Label: emotion.Sadness, Count: 1},
			})
			So(p.FeedbackCount, ShouldEqual, 4)
			So(p.AverageMatchScore, ShouldEqual, 0.6)
			So(p.Description, ShouldEqual,
				"Based on 5 recommendations, you gravitate towards artists like **Adele**. "+
					"You tend to seek out music that evokes **Love**.")
		})
	})
}
