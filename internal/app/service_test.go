package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/moodtune/internal/adapters/repository"
	service "github.com/okian/moodtune/internal/app"
	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/internal/domain/matching"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

// fakeClassifier scores a label high when the text names it.
type fakeClassifier struct {
	down    atomic.Bool
	partial atomic.Bool
	calls   atomic.Int32
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (map[string]float64, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return nil, fmt.Errorf("%w: down", emotion.ErrModelUnavailable)
	}
	if f.partial.Load() {
		return map[string]float64{emotion.Happiness: 1}, nil
	}
	scores := make(map[string]float64, emotion.LabelCount())
	hit := false
	for _, l := range emotion.Labels() {
		scores[l] = 0.05
		if strings.Contains(strings.ToLower(text), strings.ToLower(l)) {
			scores[l] = 0.9
			hit = true
		}
	}
	if !hit {
		scores[emotion.Neutral] = 0.7
	}
	return scores, nil
}

func (f *fakeClassifier) Ready() bool          { return !f.down.Load() }
func (f *fakeClassifier) ModelVersion() string { return "fake-v1" }

func newService(t *testing.T, c *fakeClassifier, items []matching.CatalogItem, opts ...service.Option) (*service.Service, repository.Store) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	if _, err := repository.Seed(ctx, store, items); err != nil {
		t.Fatalf("seed: %v", err)
	}
	opts = append([]service.Option{
		service.WithStore(store),
		service.WithClock(func() time.Time { return now }),
	}, opts...)
	s := service.New(c, opts...)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s, store
}

func catalog() []matching.CatalogItem {
	return []matching.CatalogItem{
		{ID: "calm", Title: "Calm", Artist: "Quiet", Labels: []string{emotion.Contentment}},
		{ID: "joy", Title: "Joy", Artist: "Bright", Labels: []string{emotion.Happiness}, PlayCount: 2},
		{ID: "joylove", Title: "Joy and Love", Artist: "Bright", Labels: []string{emotion.Happiness, emotion.Love}, PlayCount: 5},
	}
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a working classifier", t, func() {
		c := &fakeClassifier{}
		s, store := newService(t, c, nil)
		defer func() { _ = s.Stop(ctx) }()

		Convey("When a subject analyzes text", func() {
			a, err := s.Analyze(ctx, "u1", service.AnalyzeRequest{Text: "pure happiness and love"})

			Convey("Then the verdict should be built, explained and stored", func() {
				So(err, ShouldBeNil)
				So(a.PrimaryLabel, ShouldEqual, emotion.Happiness)
				So(a.DetectedLabels, ShouldResemble, []string{emotion.Happiness, emotion.Love})
				So(a.ModelVersion, ShouldEqual, "fake-v1")
				So(a.Explanation, ShouldStartWith, "Your text expresses strong **Happiness** (90% confidence).")
				So(a.ExplanationDegraded, ShouldBeTrue)
				So(a.ExplanationSummary, ShouldEqual, emotion.FallbackSummary(a.Verdict))
				So(a.ID, ShouldNotBeEmpty)

				h, _ := store.QueryHistory(ctx, "u1", time.Time{})
				So(h.Analyses, ShouldHaveLength, 1)
				So(h.Analyses[0].ID, ShouldEqual, a.ID)
			})
		})

		Convey("When an anonymous caller analyzes text without explanation", func() {
			off := false
			a, err := s.Analyze(ctx, "", service.AnalyzeRequest{Text: "meh", IncludeExplanation: &off})

			Convey("Then nothing should be stored or explained", func() {
				So(err, ShouldBeNil)
				So(a.ID, ShouldBeEmpty)
				So(a.Explanation, ShouldBeEmpty)
				So(a.PrimaryLabel, ShouldEqual, emotion.Neutral)
			})
		})

		Convey("When the input is invalid", func() {
			bad := 1.5
			_, errEmpty := s.Analyze(ctx, "u1", service.AnalyzeRequest{Text: "   "})
			_, errLong := s.Analyze(ctx, "u1", service.AnalyzeRequest{Text: strings.Repeat("a", 5001)})
			_, errThreshold := s.Analyze(ctx, "u1", service.AnalyzeRequest{Text: "fine", Threshold: &bad})

			Convey("Then each should be rejected before classifying", func() {
				So(errors.Is(errEmpty, emotion.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errLong, emotion.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errThreshold, emotion.ErrInvalidInput), ShouldBeTrue)
				So(c.calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the classifier is down", func() {
			c.down.Store(true)
			_, err := s.Analyze(ctx, "u1", service.AnalyzeRequest{Text: "hello"})

			Convey("Then the model should be reported unavailable", func() {
				So(errors.Is(err, emotion.ErrModelUnavailable), ShouldBeTrue)
				So(s.Ready(ctx).Ready, ShouldBeFalse)
			})
		})

		Convey("When the classifier returns an incomplete score map", func() {
			c.partial.Store(true)
			_, err := s.Analyze(ctx, "u1", service.AnalyzeRequest{Text: "hello"})

			Convey("Then it should be treated as a model failure", func() {
				So(errors.Is(err, emotion.ErrModelUnavailable), ShouldBeTrue)
				So(errors.Is(err, emotion.ErrInvalidInput), ShouldBeFalse)
			})
		})
	})
}

func TestAnalyzeBatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a batch limit of three", t, func() {
		c := &fakeClassifier{}
		s, _ := newService(t, c, nil, service.WithMaxBatchSize(3))
		defer func() { _ = s.Stop(ctx) }()

		Convey("When analyzing a batch", func() {
			res, err := s.AnalyzeBatch(ctx, service.BatchRequest{Texts: []string{"fear", "anger", "surprise"}})

			Convey("Then results should keep request order", func() {
				So(err, ShouldBeNil)
				So(res.Results, ShouldHaveLength, 3)
				So(res.Results[0].PrimaryLabel, ShouldEqual, emotion.Fear)
				So(res.Results[1].PrimaryLabel, ShouldEqual, emotion.Anger)
				So(res.Results[2].PrimaryLabel, ShouldEqual, emotion.Surprise)
			})
		})

		Convey("When the batch is empty or too large", func() {
			_, errEmpty := s.AnalyzeBatch(ctx, service.BatchRequest{})
			_, errLarge := s.AnalyzeBatch(ctx, service.BatchRequest{Texts: []string{"a", "b", "c", "d"}})
			_, errText := s.AnalyzeBatch(ctx, service.BatchRequest{Texts: []string{"a", ""}})

			Convey("Then it should be rejected", func() {
				So(errors.Is(errEmpty, emotion.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errLarge, emotion.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errText, emotion.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the classifier fails", func() {
			c.down.Store(true)
			_, err := s.AnalyzeBatch(ctx, service.BatchRequest{Texts: []string{"a", "b"}})

			Convey("Then the batch should fail", func() {
				So(errors.Is(err, emotion.ErrModelUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestRecommend(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a catalog", t, func() {
		c := &fakeClassifier{}
		s, store := newService(t, c, catalog())
		defer func() { _ = s.Stop(ctx) }()

		Convey("When recommending for text", func() {
			rec, err := s.Recommend(ctx, "u1", "", service.RecommendRequest{Text: "happiness and love"})

			Convey("Then the best item should be returned, explained and recorded", func() {
				So(err, ShouldBeNil)
				So(rec.Item.ID, ShouldEqual, "joylove")
				So(rec.MatchScore, ShouldEqual, 1.0)
				So(rec.MatchedLabels, ShouldResemble, []string{emotion.Happiness, emotion.Love})
				So(rec.Explanation, ShouldContainSubstring, "100% compatibility score")
				So(rec.Reasons, ShouldContain, "Covers 2 of your detected emotions")
				So(rec.Analysis, ShouldNotBeNil)

				item, _ := store.GetCatalogItem(ctx, "joylove")
				So(item.MatchCount, ShouldEqual, 1)
				So(rec.Item.MatchCount, ShouldEqual, item.MatchCount)

				m, err := s.GetMatch(ctx, "u1", rec.ID)
				So(err, ShouldBeNil)
				So(m.AnalysisID, ShouldEqual, rec.Analysis.ID)
				So(m.CreatedAt.Equal(now), ShouldBeTrue)
			})
		})

		Convey("When history saving is turned off", func() {
			off := false
			rec, err := s.Recommend(ctx, "u1", "", service.RecommendRequest{Text: "happiness", SaveToHistory: &off})
			h, _ := store.QueryHistory(ctx, "u1", time.Time{})

			Convey("Then the match is kept but not the analysis", func() {
				So(err, ShouldBeNil)
				So(rec.Analysis.ID, ShouldBeEmpty)
				So(h.Analyses, ShouldBeEmpty)
				So(h.Matches, ShouldHaveLength, 1)
			})
		})

		Convey("When the same idempotency key is used twice", func() {
			_, err1 := s.Recommend(ctx, "u1", "k1", service.RecommendRequest{Text: "happiness"})
			_, err2 := s.Recommend(ctx, "u1", "k1", service.RecommendRequest{Text: "happiness"})
			_, err3 := s.Recommend(ctx, "u2", "k1", service.RecommendRequest{Text: "happiness"})

			Convey("Then the repeat should be refused for that subject only", func() {
				So(err1, ShouldBeNil)
				So(errors.Is(err2, service.ErrDuplicate), ShouldBeTrue)
				So(err3, ShouldBeNil)
			})
		})

		Convey("When recommending the same item again", func() {
			_, _ = s.Recommend(ctx, "u1", "", service.RecommendRequest{Text: "happiness and love"})
			rec, err := s.Recommend(ctx, "u2", "", service.RecommendRequest{Text: "happiness and love"})
			item, _ := store.GetCatalogItem(ctx, "joylove")

			Convey("Then the returned total should include this match", func() {
				So(err, ShouldBeNil)
				So(item.MatchCount, ShouldEqual, 2)
				So(rec.Item.MatchCount, ShouldEqual, 2)
			})
		})

		Convey("When subjects and keys contain the separator", func() {
			_, err1 := s.Recommend(ctx, "a:b", "c", service.RecommendRequest{Text: "happiness"})
			_, err2 := s.Recommend(ctx, "a", "b:c", service.RecommendRequest{Text: "happiness"})

			Convey("Then the keys should not collide", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
			})
		})

		Convey("When anonymous callers reuse an idempotency key", func() {
			_, err1 := s.Recommend(ctx, "", "retry-1", service.RecommendRequest{Text: "happiness"})
			_, err2 := s.Recommend(ctx, "", "retry-1", service.RecommendRequest{Text: "happiness"})
			h, _ := store.QueryHistory(ctx, "", time.Time{})

			Convey("Then each request should be served and recorded", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(h.Matches, ShouldHaveLength, 2)
			})
		})

		Convey("When a keyed request fails", func() {
			c.down.Store(true)
			_, err := s.Recommend(ctx, "u1", "k2", service.RecommendRequest{Text: "happiness"})
			c.down.Store(false)
			_, retry := s.Recommend(ctx, "u1", "k2", service.RecommendRequest{Text: "happiness"})

			Convey("Then the key should be released for a retry", func() {
				So(errors.Is(err, emotion.ErrModelUnavailable), ShouldBeTrue)
				So(retry, ShouldBeNil)
			})
		})

		Convey("When feedback is given", func() {
			rec, _ := s.Recommend(ctx, "u1", "", service.RecommendRequest{Text: "happiness"})
			_, errRating := s.Feedback(ctx, "u1", rec.ID, service.FeedbackRequest{Rating: 6})
			_, errMissing := s.Feedback(ctx, "u1", "nope", service.FeedbackRequest{Rating: 3})
			_, errAnon := s.Feedback(ctx, "", rec.ID, service.FeedbackRequest{Rating: 3})
			res, err := s.Feedback(ctx, "u1", rec.ID, service.FeedbackRequest{Rating: 5, Played: true})

			Convey("Then valid feedback should be attached and counted", func() {
				So(errors.Is(errRating, emotion.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errMissing, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(errAnon, service.ErrNoSubject), ShouldBeTrue)
				So(err, ShouldBeNil)
				So(res.Rating, ShouldEqual, 5)

				m, _ := s.GetMatch(ctx, "u1", rec.ID)
				So(m.Feedback.Rating, ShouldEqual, 5)
				So(m.MatchScore, ShouldEqual, rec.MatchScore)
				So(m.Item.PlayCount, ShouldEqual, rec.Item.PlayCount+1)
				So(*m.Item.AverageRating, ShouldEqual, 5.0)
			})
		})

		Convey("When paging history", func() {
			for i := 0; i < 3; i++ {
				_, err := s.Recommend(ctx, "u1", "", service.RecommendRequest{Text: "happiness"})
				So(err, ShouldBeNil)
			}
			page, err := s.History(ctx, "u1", 2, 2)
			_, errPage := s.History(ctx, "u1", 0, 2)

			Convey("Then the page should be sized and counted", func() {
				So(err, ShouldBeNil)
				So(page.Total, ShouldEqual, 3)
				So(page.Items, ShouldHaveLength, 1)
				So(errors.Is(errPage, emotion.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service with an empty catalog", t, func() {
		s, _ := newService(t, &fakeClassifier{}, nil)
		defer func() { _ = s.Stop(ctx) }()

		Convey("Then recommending should report no match", func() {
			_, err := s.Recommend(ctx, "u1", "", service.RecommendRequest{Text: "happiness"})
			So(errors.Is(err, service.ErrNoMatch), ShouldBeTrue)
		})
	})
}

func TestCatalogAndInsights(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with history", t, func() {
		s, _ := newService(t, &fakeClassifier{}, catalog())
		defer func() { _ = s.Stop(ctx) }()
		for _, text := range []string{"happiness", "happiness and love", "sadness", "happiness", "optimism", "fear"} {
			_, err := s.Recommend(ctx, "u1", "", service.RecommendRequest{Text: text})
			So(err, ShouldBeNil)
		}

		Convey("When reading the catalog", func() {
			page, err := s.Catalog(ctx, emotion.Happiness, 1, 10)
			_, errLabel := s.Catalog(ctx, "Joy", 1, 10)
			stats, _ := s.CatalogStats(ctx)

			Convey("Then listings and stats should reflect the store", func() {
				So(err, ShouldBeNil)
				So(page.Total, ShouldEqual, 2)
				So(page.Items[0].ID, ShouldEqual, "joylove")
				So(errors.Is(errLabel, emotion.ErrInvalidInput), ShouldBeTrue)
				So(stats.TotalItems, ShouldEqual, 3)
				So(stats.TotalMatches, ShouldEqual, 6)
				So(stats.ByLabel[emotion.Happiness], ShouldEqual, 2)
			})
		})

		Convey("When computing mood patterns", func() {
			report, err := s.MoodPatterns(ctx, "u1", 0)
			_, errDays := s.MoodPatterns(ctx, "u1", 3)
			_, errAnon := s.MoodPatterns(ctx, "", 30)

			Convey("Then the default period should be used", func() {
				So(err, ShouldBeNil)
				So(report.PeriodDays, ShouldEqual, 30)
				So(report.HasData, ShouldBeTrue)
				So(report.Total, ShouldEqual, 6)
				So(report.Overall.Label, ShouldEqual, emotion.Happiness)
				So(report.Insights[0].Type, ShouldEqual, "weekday_pattern")
				So(errors.Is(errDays, emotion.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errAnon, service.ErrNoSubject), ShouldBeTrue)
			})
		})

		Convey("When summarizing history and taste", func() {
			stats, err := s.HistoryStats(ctx, "u1", 7)
			taste, terr := s.MusicTaste(ctx, "u1")

			Convey("Then both should cover the stored recommendations", func() {
				So(err, ShouldBeNil)
				So(stats.PeriodDays, ShouldEqual, 7)
				So(stats.TotalMatches, ShouldEqual, 6)
				So(stats.TopLabels[0].Label, ShouldEqual, emotion.Happiness)
				So(terr, ShouldBeNil)
				So(taste.HasData, ShouldBeTrue)
				So(taste.Profile.TotalMatches, ShouldEqual, 6)
			})
		})

		Convey("When clearing history", func() {
			n, err := s.ClearHistory(ctx, "u1")
			taste, _ := s.MusicTaste(ctx, "u1")

			Convey("Then analyses and matches should be gone", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 12)
				So(taste.HasData, ShouldBeFalse)
			})
		})
	})
}
