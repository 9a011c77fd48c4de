package mds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lukasn42/move-datastructure/internal/colcodec"
	"github.com/lukasn42/move-datastructure/pkg/balance"
	"github.com/lukasn42/move-datastructure/pkg/dualindex"
	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/observability"
)

// Build precondition errors.
var (
	ErrEmptySequence   = intervals.ErrEmpty
	ErrTooFewPositions = intervals.ErrTooShort
	ErrInvalidThreads  = errors.New("thread count must be positive")
	ErrInvalidB        = balance.ErrInvalidB
	ErrInvalidA        = balance.ErrInvalidA
	ErrCapacity        = dualindex.ErrCapacity
)

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	params  balance.Params
	threads int
	logger  *slog.Logger
	hooks   observability.PhaseHooks
	tracer  trace.Tracer
	clock   clock.Clock
	metrics *observability.BuildMetrics
}

// WithParams sets the balancing parameters: an output interval with a
// input starts is cut so that b of them remain in front.
func WithParams(a, b int) Option {
	return func(o *buildOptions) {
		o.params = balance.Params{A: a, B: b}
	}
}

// WithThreads sets the number of goroutines used for balancing and indexing.
func WithThreads(threads int) Option {
	return func(o *buildOptions) {
		o.threads = threads
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *buildOptions) {
		o.logger = logger
	}
}

// WithHooks sets the phase hooks. The default is observability.Phases().
func WithHooks(hooks observability.PhaseHooks) Option {
	return func(o *buildOptions) {
		o.hooks = hooks
	}
}

// WithTracer sets the tracer used for phase spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *buildOptions) {
		o.tracer = tracer
	}
}

// WithClock sets the clock used to time phases.
func WithClock(clk clock.Clock) Option {
	return func(o *buildOptions) {
		o.clock = clk
	}
}

// WithMetrics records every build in bm.
func WithMetrics(bm *observability.BuildMetrics) Option {
	return func(o *buildOptions) {
		o.metrics = bm
	}
}

func defaultOptions() buildOptions {
	return buildOptions{
		params:  balance.DefaultParams(),
		threads: 1,
	}
}

// PhaseTiming is the duration of one build phase.
type PhaseTiming struct {
	Phase    observability.Phase `json:"phase"    yaml:"phase"`
	Pairs    int                 `json:"pairs"    yaml:"pairs"`
	Duration time.Duration       `json:"duration" yaml:"duration"`
}

// Report describes a finished build.
type Report struct {
	ID       string        `json:"id"        yaml:"id"`
	Width    int           `json:"width"     yaml:"width"`
	A        int           `json:"a"         yaml:"a"`
	B        int           `json:"b"         yaml:"b"`
	Threads  int           `json:"threads"   yaml:"threads"`
	N        uint64        `json:"n"         yaml:"n"`
	InputK   int           `json:"input_k"   yaml:"input_k"`
	K        int           `json:"k"         yaml:"k"`
	Stats    balance.Stats `json:"stats"     yaml:"stats"`
	Phases   []PhaseTiming `json:"phases"    yaml:"phases"`
	Duration time.Duration `json:"duration"  yaml:"duration"`
	Started  time.Time     `json:"started"   yaml:"started"`
}

// BuildPairs builds a move datastructure from pairs ordered by input start
// over [0, n).
func BuildPairs[T intervals.Position](ctx context.Context, pairs []intervals.Pair[T], n T, opts ...Option) (*Structure[T], *Report, error) {
	return Build(ctx, intervals.New(n, pairs), opts...)
}

// Build balances seq and flattens it into a move datastructure. All
// preconditions are checked before any work starts; seq is not modified.
func Build[T intervals.Position](ctx context.Context, seq intervals.Sequence[T], opts ...Option) (*Structure[T], *Report, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	err := checkPreconditions(seq, o)
	if err != nil {
		return nil, nil, err
	}

	b := newBuilder[T](o)
	ctx = observability.WithBuild(ctx, b.report.ID)

	s, err := b.run(ctx, seq)
	b.finish(ctx, err)

	if err != nil {
		return nil, nil, err
	}

	return s, b.report, nil
}

// checkPreconditions rejects inputs that cannot be balanced before any work
// starts. The balanced output holds at most n pairs, so only structures with
// n above dualindex.MaxNodes can still run out of nodes while balancing;
// that surfaces as ErrCapacity from the balanced phase.
func checkPreconditions[T intervals.Position](seq intervals.Sequence[T], o buildOptions) error {
	k := len(seq.Pairs)

	switch {
	case k == 0:
		return ErrEmptySequence
	case uint64(seq.N) < uint64(k):
		return fmt.Errorf("%w: n=%d k=%d", ErrTooFewPositions, seq.N, k)
	case o.threads < 1:
		return fmt.Errorf("%w: %d", ErrInvalidThreads, o.threads)
	}

	err := o.params.Validate()
	if err != nil {
		return err
	}

	if k+min(o.threads, k) > dualindex.MaxNodes {
		return fmt.Errorf("%w: %d intervals", ErrCapacity, k)
	}

	return nil
}

type builder[T intervals.Position] struct {
	opts   buildOptions
	report *Report
	start  time.Time
}

func newBuilder[T intervals.Position](o buildOptions) *builder[T] {
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if o.hooks == nil {
		o.hooks = observability.Phases()
	}

	if o.tracer == nil {
		o.tracer = otel.Tracer(observability.TracerName)
	}

	if o.clock == nil {
		o.clock = clock.New()
	}

	start := o.clock.Now()

	return &builder[T]{
		opts:  o,
		start: start,
		report: &Report{
			ID:      uuid.NewString(),
			Width:   colcodec.Width[T](),
			A:       o.params.A,
			B:       o.params.B,
			Threads: o.threads,
			Started: start,
		},
	}
}

func (b *builder[T]) run(ctx context.Context, seq intervals.Sequence[T]) (*Structure[T], error) {
	k := len(seq.Pairs)
	b.report.N = uint64(seq.N)
	b.report.InputK = k

	err := b.phase(ctx, observability.PhaseValidated, k, func(context.Context) error {
		return seq.Validate()
	})
	if err != nil {
		return nil, err
	}

	var res *balance.Result[T]

	err = b.phase(ctx, observability.PhaseBalanced, k, func(ctx context.Context) error {
		var runErr error

		res, runErr = balance.Run(ctx, seq, b.opts.params, balance.Options{
			Workers: b.opts.threads,
			Logger:  b.opts.logger,
		})

		return runErr
	})
	if err != nil {
		return nil, err
	}

	b.report.Stats = res.Stats
	b.report.K = res.Len()

	var s *Structure[T]

	err = b.phase(ctx, observability.PhaseFlattened, res.Len(), func(context.Context) error {
		s = flatten(res, b.opts.params.A)

		return nil
	})
	if err != nil {
		return nil, err
	}

	err = b.phase(ctx, observability.PhaseIndexed, s.K(), func(ctx context.Context) error {
		return s.buildIndex(ctx, b.opts.threads)
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// phase runs fn inside a span, reporting it to the hooks and the report.
func (b *builder[T]) phase(ctx context.Context, phase observability.Phase, size int, fn func(context.Context) error) error {
	ctx = observability.WithPhase(ctx, phase)
	ctx, span := b.opts.tracer.Start(ctx, "mds.build."+string(phase),
		trace.WithAttributes(attribute.Int("mds.pairs", size)))
	defer span.End()

	b.opts.hooks.OnPhaseStart(ctx, phase, size)

	started := b.opts.clock.Now()
	err := fn(ctx)
	duration := b.opts.clock.Since(started)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		err = fmt.Errorf("%s: %w", phase, err)
	}

	b.opts.hooks.OnPhaseComplete(ctx, phase, size, duration, err)
	b.report.Phases = append(b.report.Phases, PhaseTiming{Phase: phase, Pairs: size, Duration: duration})

	return err
}

func (b *builder[T]) finish(ctx context.Context, err error) {
	b.report.Duration = b.opts.clock.Since(b.start)

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError
	}

	if b.opts.metrics != nil {
		b.opts.metrics.RecordBuild(ctx, observability.BuildRecord{
			Status:   status,
			Width:    b.report.Width,
			Duration: b.report.Duration,
			Cuts:     b.report.Stats.Cuts + b.report.Stats.BoundaryCuts,
			Messages: b.report.Stats.Messages,
			Rounds:   b.report.Stats.Rounds,
			Pairs:    b.report.K,
		})
	}

	if err != nil {
		b.opts.logger.ErrorContext(ctx, "move datastructure build failed", "error", err)

		return
	}

	b.opts.logger.InfoContext(ctx, "move datastructure built",
		"n", b.report.N,
		"input_intervals", b.report.InputK,
		"intervals", b.report.K,
		"params", b.opts.params.String(),
		"workers", b.report.Stats.Workers,
		"rounds", b.report.Stats.Rounds,
		"duration", b.report.Duration,
	)
}
