package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricBuildsTotal   = "mds.builds.total"
	metricBuildDuration = "mds.build.duration.seconds"
	metricPhaseDuration = "mds.build.phase.duration.seconds"
	metricCutsTotal     = "mds.balance.cuts.total"
	metricMessagesTotal = "mds.balance.messages.total"
	metricRounds        = "mds.balance.rounds"
	metricPairs         = "mds.structure.pairs"

	attrStatus = "status"
	attrWidth  = "width"
)

// Build outcomes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms to 10min, from toy inputs to
// genome-scale BWTs.
var durationBucketBoundaries = []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

var roundBucketBoundaries = []float64{1, 2, 3, 4, 6, 8, 12, 16, 32}

// BuildRecord summarizes one finished build.
type BuildRecord struct {
	Status   string
	Width    int
	Duration time.Duration
	Cuts     int
	Messages int
	Rounds   int
	Pairs    int
}

// BuildMetrics holds the OTel instruments describing builds.
type BuildMetrics struct {
	buildsTotal   metric.Int64Counter
	buildDuration metric.Float64Histogram
	phaseDuration metric.Float64Histogram
	cutsTotal     metric.Int64Counter
	messagesTotal metric.Int64Counter
	rounds        metric.Int64Histogram
	pairs         metric.Int64Histogram
}

// NewBuildMetrics creates build metric instruments from the given meter.
func NewBuildMetrics(mt metric.Meter) (*BuildMetrics, error) {
	b := newMetricBuilder(mt)

	bm := &BuildMetrics{
		buildsTotal: b.counter(metricBuildsTotal, "Total number of move datastructure builds", "{build}"),
		buildDuration: b.histogram(metricBuildDuration, "Build duration in seconds", "s",
			durationBucketBoundaries...),
		phaseDuration: b.histogram(metricPhaseDuration, "Build phase duration in seconds", "s",
			durationBucketBoundaries...),
		cutsTotal:     b.counter(metricCutsTotal, "Pairs added by balancing", "{pair}"),
		messagesTotal: b.counter(metricMessagesTotal, "Insertions exchanged between sections", "{message}"),
		rounds:        b.intHistogram(metricRounds, "Balancing rounds per build", "{round}", roundBucketBoundaries...),
		pairs:         b.intHistogram(metricPairs, "Pairs in the finished structure", "{pair}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return bm, nil
}

// RecordBuild records a finished build.
func (bm *BuildMetrics) RecordBuild(ctx context.Context, rec BuildRecord) {
	attrs := metric.WithAttributes(
		attribute.String(attrStatus, rec.Status),
		attribute.Int(attrWidth, rec.Width),
	)

	bm.buildsTotal.Add(ctx, 1, attrs)
	bm.buildDuration.Record(ctx, rec.Duration.Seconds(), attrs)

	if rec.Status != StatusOK {
		return
	}

	bm.cutsTotal.Add(ctx, int64(rec.Cuts))
	bm.messagesTotal.Add(ctx, int64(rec.Messages))
	bm.rounds.Record(ctx, int64(rec.Rounds))
	bm.pairs.Record(ctx, int64(rec.Pairs))
}

// RecordPhase records the duration of one build phase.
func (bm *BuildMetrics) RecordPhase(ctx context.Context, phase Phase, duration time.Duration) {
	bm.phaseDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrPhase, string(phase)),
	))
}
