package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Phase names a step of a move datastructure build.
type Phase string

// Build phases in execution order.
const (
	PhaseValidated Phase = "validated"
	PhaseBalanced  Phase = "balanced"
	PhaseFlattened Phase = "flattened"
	PhaseIndexed   Phase = "indexed"
)

// PhaseHooks receives events around every build phase. size is the number
// of pairs the phase works on.
type PhaseHooks interface {
	OnPhaseStart(ctx context.Context, phase Phase, size int)
	OnPhaseComplete(ctx context.Context, phase Phase, size int, duration time.Duration, err error)
}

// NoopPhaseHooks is a no-op implementation of PhaseHooks.
type NoopPhaseHooks struct{}

func (NoopPhaseHooks) OnPhaseStart(context.Context, Phase, int)                          {}
func (NoopPhaseHooks) OnPhaseComplete(context.Context, Phase, int, time.Duration, error) {}

var (
	phaseHooks PhaseHooks = NoopPhaseHooks{}
	hooksMu    sync.RWMutex
)

// SetPhaseHooks registers process-wide phase hooks, used by builds that
// are not given hooks explicitly. Nil is ignored.
func SetPhaseHooks(h PhaseHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()

	if h != nil {
		phaseHooks = h
	}
}

// Phases returns the registered phase hooks.
func Phases() PhaseHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()

	return phaseHooks
}

// RecordingHooks logs every phase and records its duration in BuildMetrics.
type RecordingHooks struct {
	logger  *slog.Logger
	metrics *BuildMetrics
}

// NewRecordingHooks creates hooks logging to logger. metrics may be nil.
func NewRecordingHooks(logger *slog.Logger, metrics *BuildMetrics) *RecordingHooks {
	if logger == nil {
		logger = slog.Default()
	}

	return &RecordingHooks{logger: logger, metrics: metrics}
}

// OnPhaseStart logs the phase start at debug level.
func (rh *RecordingHooks) OnPhaseStart(ctx context.Context, phase Phase, size int) {
	rh.logger.DebugContext(WithPhase(ctx, phase), "phase started", "pairs", size)
}

// OnPhaseComplete logs the outcome and records the duration.
func (rh *RecordingHooks) OnPhaseComplete(ctx context.Context, phase Phase, size int, duration time.Duration, err error) {
	ctx = WithPhase(ctx, phase)

	if err != nil {
		rh.logger.ErrorContext(ctx, "phase failed", "pairs", size, "duration", duration, "error", err)
	} else {
		rh.logger.InfoContext(ctx, "phase completed", "pairs", size, "duration", duration)
	}

	if rh.metrics != nil {
		rh.metrics.RecordPhase(ctx, phase, duration)
	}
}
