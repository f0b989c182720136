package model_test

import (
	"testing"
	"time"

	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/internal/domain/matching"
	model "github.com/okian/moodtune/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestHistoryWindow(t *testing.T) {
	convey.Convey("Given a stored history", t, func() {
		at := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
		h := model.History{
			Subject: "subject-1",
			Since:   at.AddDate(0, 0, -30),
			Until:   at,
			Analyses: []model.Analysis{{
				ID: "a1", CreatedAt: at,
				Verdict: emotion.Verdict{PrimaryLabel: emotion.Love, PrimaryConfidence: 0.8, Complexity: 0.4},
			}},
			Matches: []model.Match{
				{
					ID: "m1", ItemID: "s1", CreatedAt: at,
					Item:          matching.CatalogItem{ID: "s1", Artist: "Adele"},
					MatchedLabels: []string{emotion.Love}, MatchScore: 1,
					Feedback: &model.Feedback{Rating: 4, Played: true},
				},
				{ID: "m2", ItemID: "gone", CreatedAt: at},
			},
		}

		convey.Convey("When converting it to an analytics window", func() {
			w := h.Window()

			convey.Convey("Then verdict and match events should carry the analytics fields", func() {
				convey.So(w.Subject, convey.ShouldEqual, "subject-1")
				convey.So(w.Verdicts, convey.ShouldHaveLength, 1)
				convey.So(w.Verdicts[0].PrimaryLabel, convey.ShouldEqual, emotion.Love)
				convey.So(w.Verdicts[0].Complexity, convey.ShouldEqual, 0.4)
				convey.So(w.Matches, convey.ShouldHaveLength, 2)
				convey.So(w.Matches[0].Artist, convey.ShouldEqual, "Adele")
				convey.So(*w.Matches[0].Rating, convey.ShouldEqual, 4)
				convey.So(w.Matches[1].Rating, convey.ShouldBeNil)
				convey.So(w.Matches[1].Artist, convey.ShouldEqual, "")
			})
		})
	})
}

func TestNewPage(t *testing.T) {
	convey.Convey("Given paging inputs", t, func() {
		p := model.NewPage[string](nil, 41, 2, 20)

		convey.Convey("Then total pages should round up and items never be nil", func() {
			convey.So(p.TotalPages, convey.ShouldEqual, 3)
			convey.So(p.Items, convey.ShouldNotBeNil)
			convey.So(p.Items, convey.ShouldBeEmpty)
		})
	})
}

func TestSummarizeCatalog(t *testing.T) {
	convey.Convey("Given a small catalog", t, func() {
		items := []matching.CatalogItem{
			{ID: "a", Labels: []string{emotion.Happiness, emotion.Love}, PlayCount: 3, MatchCount: 1},
			{ID: "b", LabelScores: map[string]float64{emotion.Sadness: 0.9}, PlayCount: 7},
			{ID: "c", Labels: []string{emotion.Love}, PlayCount: 3, MatchCount: 4},
		}
		stats := model.SummarizeCatalog(items)

		convey.Convey("Then totals and the distribution should be computed", func() {
			convey.So(stats.TotalItems, convey.ShouldEqual, 3)
			convey.So(stats.TotalPlays, convey.ShouldEqual, 13)
			convey.So(stats.TotalMatches, convey.ShouldEqual, 5)
			convey.So(stats.ByLabel[emotion.Love], convey.ShouldEqual, 2)
			convey.So(stats.ByLabel[emotion.Sadness], convey.ShouldEqual, 1)
			convey.So(stats.ByLabel, convey.ShouldContainKey, emotion.Fear)
			convey.So(stats.LabelsCovered, convey.ShouldHaveLength, emotion.LabelCount())
		})

		convey.Convey("Then most played should be ordered by plays with stable ties", func() {
			ids := []string{}
			for _, it := range stats.MostPlayed {
				ids = append(ids, it.ID)
			}
			convey.So(ids, convey.ShouldResemble, []string{"b", "a", "c"})
		})
	})
}
