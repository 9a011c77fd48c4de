package mds_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/mds"
	"github.com/lukasn42/move-datastructure/pkg/observability"
)

func TestBuildSmallExample(t *testing.T) {
	t.Parallel()

	s, report, err := mds.Build(context.Background(), smallExample())
	require.NoError(t, err)

	assert.Equal(t, []intervals.Pair[uint32]{
		{P: 0, Q: 4}, {P: 1, Q: 5}, {P: 2, Q: 6}, {P: 3, Q: 7}, {P: 4, Q: 0}, {P: 6, Q: 2},
	}, s.Sequence().Pairs)
	assert.Equal(t, intervals.Pair[uint32]{P: 8, Q: 8}, s.Pair(s.K()))
	assert.Equal(t, uint32(8), s.N())
	assert.Equal(t, 6, s.Intervals())

	wantIndex := []int{4, 4, 5, 5, 0, 2}
	for j, want := range wantIndex {
		assert.Equal(t, want, s.Index(j), "index %d", j)
	}

	require.NoError(t, s.Verify())

	assert.Equal(t, 5, report.InputK)
	assert.Equal(t, 6, report.K)
	assert.Equal(t, 1, report.Stats.Cuts)
	assert.Equal(t, 4, report.A)
	assert.Equal(t, 2, report.B)
	assert.Equal(t, 4, report.Width)
	assert.NotEmpty(t, report.ID)

	phases := make([]observability.Phase, 0, len(report.Phases))
	for _, p := range report.Phases {
		phases = append(phases, p.Phase)
	}

	assert.Equal(t, []observability.Phase{
		observability.PhaseValidated, observability.PhaseBalanced,
		observability.PhaseFlattened, observability.PhaseIndexed,
	}, phases)
}

func TestBuildDoesNotModifyInput(t *testing.T) {
	t.Parallel()

	seq := smallExample()
	before := seq.Clone()

	_, _, err := mds.Build(context.Background(), seq, mds.WithThreads(2))
	require.NoError(t, err)

	assert.Equal(t, before, seq)
}

func TestMoveIsBijective(t *testing.T) {
	t.Parallel()

	for seed := range testSeeds {
		rng := rand.New(rand.NewSource(int64(seed)))
		seq := randomSequence(rng, testN, testK)

		for _, threads := range []int{1, 4} {
			s, _, err := mds.Build(context.Background(), seq, mds.WithThreads(threads))
			require.NoError(t, err)
			require.NoError(t, s.Verify())

			seen := make([]bool, testN)

			for i := range uint32(testN) {
				x := s.FindInterval(i)
				next, y, steps := s.MoveSteps(i, x)

				require.Less(t, next, uint32(testN))
				assert.False(t, seen[next], "position %d reached twice", next)
				seen[next] = true

				assert.Equal(t, s.FindInterval(next), y, "interval of %d", next)
				assert.LessOrEqual(t, steps, s.A()-1, "move from %d", i)

				moved, movedX := s.Move(i, x)
				assert.Equal(t, next, moved)
				assert.Equal(t, y, movedX)
			}
		}
	}
}

func TestMoveReconstructsText(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(testSeeds))

	texts := map[string]string{
		"repetitive": repetitiveText("abracadabra", 60),
		"dna":        randomText(rng, "acgt", 1500),
		"runs":       terminatedText("aaaaaaaaaaaaaaaabbbbbbbbbbbbbbbbaaaaaaaaaaaaaaaabbbbbbbbbbbbbbbbcccc"),
	}

	params := [][2]int{{4, 2}, {8, 3}}

	for name, text := range texts {
		bwt := bwtOf(text)

		seq, err := intervals.FromBWT[uint32](bwt)
		require.NoError(t, err, name)

		for _, p := range params {
			for _, threads := range []int{1, 3} {
				s, report, err := mds.Build(context.Background(), seq,
					mds.WithParams(p[0], p[1]), mds.WithThreads(threads))
				require.NoError(t, err, name)
				assert.GreaterOrEqual(t, s.K(), len(seq.Pairs))
				assert.Equal(t, s.K(), report.K)

				// Every refined interval lies inside one BWT run.
				for x := range s.K() {
					start := s.Pair(x).P
					end := s.Pair(x + 1).P

					for i := start; i < end; i++ {
						require.Equal(t, bwt[start], bwt[i], "%s: interval %d spans runs", name, x)
					}
				}

				// Walk LF from the terminator's row and read T backwards.
				n := len(text)
				rebuilt := make([]byte, n)
				rebuilt[n-1] = text[n-1]

				pos, x := uint32(0), 0

				for i := n - 2; i >= 0; i-- {
					rebuilt[i] = bwt[s.Pair(x).P]
					pos, x = s.Move(pos, x)
				}

				assert.Equal(t, text, string(rebuilt), "%s with %v and %d threads", name, p, threads)

				// The walk stopped at the row of suffix 0; one more step closes the cycle.
				pos, _ = s.Move(pos, x)
				assert.Equal(t, uint32(0), pos, "LF is a single cycle")
			}
		}
	}
}

func TestFindInterval(t *testing.T) {
	t.Parallel()

	s, _, err := mds.Build(context.Background(), smallExample())
	require.NoError(t, err)

	tests := []struct {
		pos  uint32
		want int
	}{
		{0, 0}, {1, 1}, {3, 3}, {4, 4}, {5, 4}, {6, 5}, {7, 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, s.FindInterval(tt.pos), "pos %d", tt.pos)
	}
}

func TestBuildUint64(t *testing.T) {
	t.Parallel()

	pairs := []intervals.Pair[uint64]{{P: 0, Q: 4}, {P: 1, Q: 5}, {P: 2, Q: 6}, {P: 3, Q: 7}, {P: 4, Q: 0}}

	s, report, err := mds.BuildPairs(context.Background(), pairs, uint64(8), mds.WithThreads(2))
	require.NoError(t, err)

	assert.Equal(t, 8, report.Width)
	assert.Equal(t, 6, s.K())
	require.NoError(t, s.Verify())
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	seq := smallExample()

	tests := []struct {
		name string
		seq  intervals.Sequence[uint32]
		opts []mds.Option
		want error
	}{
		{"empty", intervals.Sequence[uint32]{N: 8}, nil, mds.ErrEmptySequence},
		{"n below k", intervals.New[uint32](2, seq.Pairs), nil, mds.ErrTooFewPositions},
		{"b too small", seq, []mds.Option{mds.WithParams(4, 1)}, mds.ErrInvalidB},
		{"a too small", seq, []mds.Option{mds.WithParams(3, 2)}, mds.ErrInvalidA},
		{"no threads", seq, []mds.Option{mds.WithThreads(0)}, mds.ErrInvalidThreads},
		{
			"outputs overlap",
			intervals.New[uint32](4, []intervals.Pair[uint32]{{P: 0, Q: 0}, {P: 2, Q: 0}}),
			nil,
			intervals.ErrNotTiling,
		},
		{
			"starts out of order",
			intervals.New[uint32](4, []intervals.Pair[uint32]{{P: 0, Q: 2}, {P: 0, Q: 0}}),
			nil,
			intervals.ErrNotIncrease,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, report, err := mds.Build(ctx, tt.seq, tt.opts...)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, s)
			assert.Nil(t, report)
		})
	}
}

func TestBuildCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rng := rand.New(rand.NewSource(1))

	_, _, err := mds.Build(ctx, randomSequence(rng, testN, testK), mds.WithThreads(2))
	require.ErrorIs(t, err, context.Canceled)
}

// clockHooks advances a mock clock whenever a phase starts.
type clockHooks struct {
	mock      *clock.Mock
	started   []observability.Phase
	completed []observability.Phase
}

func (h *clockHooks) OnPhaseStart(_ context.Context, phase observability.Phase, _ int) {
	h.started = append(h.started, phase)
	h.mock.Add(time.Second)
}

func (h *clockHooks) OnPhaseComplete(_ context.Context, phase observability.Phase, _ int, _ time.Duration, err error) {
	if err == nil {
		h.completed = append(h.completed, phase)
	}
}

func TestBuildHooksClockAndMetrics(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	hooks := &clockHooks{mock: mock}

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	bm, err := observability.NewBuildMetrics(mp.Meter("test"))
	require.NoError(t, err)

	_, report, err := mds.Build(context.Background(), smallExample(),
		mds.WithHooks(hooks), mds.WithClock(mock), mds.WithMetrics(bm))
	require.NoError(t, err)

	assert.Len(t, hooks.started, 4)
	assert.Equal(t, hooks.started, hooks.completed)
	assert.Equal(t, 4*time.Second, report.Duration)
	assert.Equal(t, mock.Now().Add(-4*time.Second), report.Started)

	for _, p := range report.Phases {
		assert.Zero(t, p.Duration, "phase %s", p.Phase)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var builds int64

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "mds.builds.total" {
				for _, dp := range sum.DataPoints {
					builds += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(1), builds)
}

func TestBuildFailedPhaseReachesHooks(t *testing.T) {
	t.Parallel()

	hooks := &clockHooks{mock: clock.NewMock()}
	bad := intervals.New[uint32](4, []intervals.Pair[uint32]{{P: 0, Q: 1}, {P: 2, Q: 0}})

	_, _, err := mds.Build(context.Background(), bad, mds.WithHooks(hooks))
	require.ErrorIs(t, err, intervals.ErrNotTiling)
	assert.Contains(t, err.Error(), string(observability.PhaseValidated))

	assert.Equal(t, []observability.Phase{observability.PhaseValidated}, hooks.started)
	assert.Empty(t, hooks.completed)
}
