package loadgen

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/moodtune/internal/adapters/classifier"
	"github.com/okian/moodtune/internal/adapters/http/api"
	"github.com/okian/moodtune/internal/adapters/repository"
	service "github.com/okian/moodtune/internal/app"
	"github.com/okian/moodtune/internal/domain/emotion"
)

func startService(ctx context.Context) *httptest.Server {
	store := repository.NewMemoryStore()
	if _, err := repository.Seed(ctx, store, repository.DefaultCatalog()); err != nil {
		panic(err)
	}
	m := classifier.NewManager(classifier.NewLexicon())
	if err := m.Start(ctx); err != nil {
		panic(err)
	}
	svc := service.New(m, service.WithStore(store))
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	return httptest.NewServer(api.NewServer(svc).Routes())
}

func TestGenerateRequests(t *testing.T) {
	convey.Convey("Given a generator config with replays", t, func() {
		cfg := &Config{Subjects: 3, Requests: 12, RepeatEach: 4}
		stats := &Stats{}

		reqs, err := generateRequests(context.Background(), cfg, stats)

		convey.Convey("Then every fourth request should replay its predecessor", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(reqs, convey.ShouldHaveLength, 12)
			convey.So(stats.Generated, convey.ShouldEqual, 12)
			convey.So(reqs[4], convey.ShouldResemble, reqs[3])
			convey.So(reqs[8], convey.ShouldResemble, reqs[7])
			convey.So(reqs[1].IdempotencyKey, convey.ShouldNotEqual, reqs[0].IdempotencyKey)
		})

		convey.Convey("Then every text should come from its intended label's phrases", func() {
			for _, r := range reqs {
				convey.So(emotion.IsLabel(r.Label), convey.ShouldBeTrue)
				convey.So(phrases[r.Label], convey.ShouldContain, r.Text)
			}
		})
	})

	convey.Convey("Given an empty config", t, func() {
		_, err := generateRequests(context.Background(), &Config{}, &Stats{})
		convey.So(err, convey.ShouldNotBeNil)
	})

	convey.Convey("Every label should have phrases", t, func() {
		for _, l := range emotion.Labels() {
			convey.So(phrases[l], convey.ShouldNotBeEmpty)
		}
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running service", t, func() {
		ctx := context.Background()
		srv := startService(ctx)
		defer srv.Close()
		out := filepath.Join(t.TempDir(), "requests.json")

		cfg := &Config{
			BaseURL:    srv.URL,
			Subjects:   4,
			Requests:   40,
			RepeatEach: 5,
			Workers:    4,
			Timeout:    5 * time.Second,
			OutputFile: out,
		}

		convey.Convey("When a load run completes", func() {
			stats, err := Run(ctx, cfg)

			convey.Convey("Then replays should be rejected and history should verify", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Submitted, convey.ShouldEqual, 40)
				convey.So(stats.Duplicate, convey.ShouldEqual, 7)
				convey.So(stats.Successful, convey.ShouldEqual, 33)
				convey.So(stats.Failed, convey.ShouldEqual, 0)
				convey.So(stats.SubjectsVerified, convey.ShouldEqual, 4)

				data, err := os.ReadFile(out)
				convey.So(err, convey.ShouldBeNil)
				var saved []Request
				convey.So(json.Unmarshal(data, &saved), convey.ShouldBeNil)
				convey.So(saved, convey.ShouldHaveLength, 40)
			})
		})
	})

	convey.Convey("Given no service", t, func() {
		_, err := Run(context.Background(), &Config{BaseURL: "http://127.0.0.1:1", Subjects: 1, Requests: 1, Workers: 1, Timeout: time.Second})
		convey.So(err, convey.ShouldNotBeNil)
	})
}
