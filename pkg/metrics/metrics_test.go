package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("ranking"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.scoresAccepted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_ranking_scores_accepted_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When score intake is recorded", func() {
			before := testutil.ToFloat64(globalManager.scoresAccepted)
			RecordScoreAccepted()
			RecordScoreAccepted()
			RecordScoreDuplicate()
			RecordScoreRejected("invalid")

			Convey("Then counters advance", func() {
				So(testutil.ToFloat64(globalManager.scoresAccepted), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.scoresRejected.WithLabelValues("invalid")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When gauges are updated", func() {
			UpdateQueueSize(12)
			UpdateQueueCapacity(100)
			UpdateCompetitions(3)
			UpdateWorkerCount(4)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.competitions), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
			})
		})

		Convey("When latencies and labelled metrics are recorded", func() {
			So(func() {
				RecordRecompute(3.5)
				RecordRecomputeError()
				RecordRepositoryQueryLatency(0.2)
				RecordRepositoryUpdateLatency(0.4)
				RecordSnapshotPublished()
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(1)
				UpdateQueueUtilization(0.12)
				UpdateWorkerActiveCount(1)
				UpdateWorkerIdleCount(3)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 0.3)
				RecordErrorByComponent("api", "not_found")
				UpdateScoresStored(40)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)
		})

		Convey("When the registry is exported", func() {
			RecordHTTPRequest("/stats", "GET", "200")
			out, err := testutil.GatherAndCount(GetRegistry(), "wodsmith_ranking_http_requests_total")
			So(err, ShouldBeNil)
			So(out, ShouldBeGreaterThan, 0)
		})
	})
}
