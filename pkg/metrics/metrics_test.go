package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with custom options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors should carry the namespace and labels", func() {
				So(manager, ShouldNotBeNil)
				manager.matches.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_unit_matches_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When registering twice on the same registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then promauto should panic on the duplicate", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording verdicts", func() {
			before := testutil.ToFloat64(globalManager.verdicts.WithLabelValues("high"))
			RecordVerdict("high", "Happiness", 0.2)
			RecordVerdict("high", "Love", 0.4)

			Convey("Then the tier counter should move", func() {
				So(testutil.ToFloat64(globalManager.verdicts.WithLabelValues("high")), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.primaryLabels.WithLabelValues("Love")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording matches and feedback", func() {
			matches := testutil.ToFloat64(globalManager.matches)
			RecordMatch(1)
			RecordNoMatch()
			RecordFeedback(5)

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(globalManager.matches), ShouldEqual, matches+1)
				So(testutil.ToFloat64(globalManager.noMatches), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.feedback.WithLabelValues("5")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording the remaining recorders", func() {
			Convey("Then none should panic", func() {
				So(func() {
					RecordClassifierLatency(12)
					RecordClassifierError("timeout")
					UpdateBreakerState("classifier", 2)
					RecordExplainDegraded()
					RecordBatchSize(3)
					RecordInsight("trend")
					RecordDuplicate()
					RecordStoreLatency("list_catalog", 1.5)
					RecordStoreError("record_match")
					UpdateWorkerActiveCount(4)
					UpdateWorkerQueueSize(2)
					RecordWorkerJobLatency(3)
					RecordWorkerError()
					RecordHTTPRequest("/v1/catalog", "GET", "200")
					RecordHTTPRequestDuration("/v1/catalog", "GET", "200", 5)
					RecordErrorByEndpoint("/v1/recommendations", "POST", "model_unavailable")
					RecordErrorByComponent("classifier", "breaker_open")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
				}, ShouldNotPanic)
			})
		})

		Convey("Then the custom registry should be exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
