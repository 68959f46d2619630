package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When a manager is created with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.runsTotal.WithLabelValues("published").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_runs_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When clamps are recorded", func() {
			before := testutil.ToFloat64(globalManager.clamps.WithLabelValues("scoring", "probability"))
			RecordClamps("scoring", "probability", 3)
			after := testutil.ToFloat64(globalManager.clamps.WithLabelValues("scoring", "probability"))

			Convey("Then the counter grows by the count", func() {
				So(after-before, ShouldEqual, float64(3))
			})
		})

		Convey("When recorders are called", func() {
			So(func() {
				RecordRun("published")
				RecordRunDuration(1.5)
				UpdateRunPlayers(10)
				UpdateRunLastPublished(1)
				RecordPlayerIssue("timeout")
				RecordModelDegraded("sleeper", "batting")
				RecordPlayerProcessed("batting", "ok")
				RecordStageLatency("features", 0.2)
				RecordLowConfidence("bust")
				UpdateQueueSize(1)
				UpdateQueueCapacity(2)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerActiveCount(4)
				RecordWorkerTimeout()
				RecordRepositoryPublishLatency(3)
				RecordRepositoryQueryLatency(1)
				UpdateRepositoryRecords(10)
				RecordErrorByComponent("worker", "timeout")
			}, ShouldNotPanic)

			Convey("Then the custom registry exposes them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				joined := strings.Join(names, ",")
				So(joined, ShouldContainSubstring, "valuator_engine_players_processed_total")
				So(joined, ShouldContainSubstring, "valuator_engine_worker_timeouts_total")
			})
		})
	})
}
