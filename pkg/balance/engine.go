package balance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lukasn42/move-datastructure/pkg/dualindex"
	"github.com/lukasn42/move-datastructure/pkg/intervals"
)

// Stats summarizes a balancing run.
type Stats struct {
	Workers      int `json:"workers"       yaml:"workers"`
	Rounds       int `json:"rounds"        yaml:"rounds"`
	Messages     int `json:"messages"      yaml:"messages"`
	BoundaryCuts int `json:"boundary_cuts" yaml:"boundary_cuts"`
	Cuts         int `json:"cuts"          yaml:"cuts"`
	Pairs        int `json:"pairs"         yaml:"pairs"`
}

// Result is a balanced interval sequence still held in the sections' lists.
type Result[T intervals.Position] struct {
	N     T
	Stats Stats

	sections []*section[T]
}

// Len returns the number of pairs.
func (r *Result[T]) Len() int {
	return r.Stats.Pairs
}

// Walk visits the pairs in increasing input start until fn returns false.
func (r *Result[T]) Walk(fn func(i int, pair intervals.Pair[T]) bool) {
	i := 0

	for _, sec := range r.sections {
		stop := false

		sec.c.List.Walk(func(_ dualindex.Ref, nd *dualindex.Node[T]) bool {
			if !fn(i, nd.Pair()) {
				stop = true

				return false
			}

			i++

			return true
		})

		if stop {
			return
		}
	}
}

// Pairs returns the balanced pairs in increasing input start.
func (r *Result[T]) Pairs() []intervals.Pair[T] {
	out := make([]intervals.Pair[T], 0, r.Stats.Pairs)
	for _, sec := range r.sections {
		out = append(out, sec.c.Pairs()...)
	}

	return out
}

// Sequence returns the balanced pairs as a sequence over the same n.
func (r *Result[T]) Sequence() intervals.Sequence[T] {
	return intervals.New(r.N, r.Pairs())
}

// Run balances seq with params. The sequence must be valid. Up to
// opts.Workers sections are balanced concurrently; with one worker the run
// is a single sequential scan. An already balanced sequence is returned
// unchanged. Running out of arena nodes is reported as dualindex.ErrCapacity.
func Run[T intervals.Position](ctx context.Context, seq intervals.Sequence[T], params Params, opts Options) (res *Result[T], err error) {
	err = params.Validate()
	if err != nil {
		return nil, err
	}

	if opts.Workers < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, opts.Workers)
	}

	if len(seq.Pairs) == 0 {
		return nil, intervals.ErrEmpty
	}

	defer recoverCapacity(&err)

	bounds := partition(seq, params, min(opts.Workers, len(seq.Pairs)))
	workers := len(bounds) - 1

	sections, boundaryCuts, err := setup(seq, params, bounds)
	if err != nil {
		return nil, err
	}

	co := &coordinator[T]{sections: sections, opts: opts}
	co.stats.Workers = workers
	co.stats.BoundaryCuts = boundaryCuts

	if workers == 1 {
		err = co.runSequential(ctx)
	} else {
		err = co.runParallel(ctx)
	}

	if err != nil {
		return nil, err
	}

	nodes := 0

	for _, sec := range sections {
		co.stats.Cuts += sec.cuts
		co.stats.Pairs += sec.c.List.Len()
		nodes += sec.c.Allocated()
	}

	opts.logger().Debug("balance finished",
		"sections", workers,
		"rounds", co.stats.Rounds,
		"cuts", co.stats.Cuts,
		"boundary_cuts", co.stats.BoundaryCuts,
		"nodes", nodes,
		"arena_pages", sections[0].c.Arena.Pages(),
	)

	return &Result[T]{N: seq.N, Stats: co.stats, sections: sections}, nil
}

// recoverCapacity turns an arena running out of nodes into an error and
// re-raises every other panic.
func recoverCapacity(err *error) {
	r := recover()
	if r == nil {
		return
	}

	e, ok := r.(error)
	if !ok || !errors.Is(e, dualindex.ErrCapacity) {
		panic(r)
	}

	*err = fmt.Errorf("balance: %w", e)
}

// Sequential balances seq in a single section on the calling goroutine.
func Sequential[T intervals.Position](ctx context.Context, seq intervals.Sequence[T], params Params, logger *slog.Logger) (*Result[T], error) {
	return Run(ctx, seq, params, Options{Workers: 1, Logger: logger})
}

// Parallel balances seq in up to workers sections processed concurrently.
func Parallel[T intervals.Position](ctx context.Context, seq intervals.Sequence[T], params Params, workers int, logger *slog.Logger) (*Result[T], error) {
	return Run(ctx, seq, params, Options{Workers: workers, Logger: logger})
}

// batch is one round of work for a section: the initial scan or a set of
// delivered insertions.
type batch struct {
	scan bool
	msgs []insertion
}

type outcome struct {
	id       int
	outbox   [][]insertion
	panicked any
}

type coordinator[T intervals.Position] struct {
	sections []*section[T]
	opts     Options
	stats    Stats
}

func (co *coordinator[T]) runSequential(ctx context.Context) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	co.sections[0].scan()
	co.stats.Rounds = 1

	return nil
}

// runParallel drives the sections in rounds. Each section has a long-lived
// worker; a round sends every section with pending work one batch and waits
// for all of them before routing the produced insertions. The run ends with
// the first round that produces none.
func (co *coordinator[T]) runParallel(ctx context.Context) error {
	workers := len(co.sections)
	logger := co.opts.logger()

	inputs := make([]chan batch, workers)
	results := make(chan outcome, workers)

	var wg sync.WaitGroup

	for i := range workers {
		inputs[i] = make(chan batch, 1)

		wg.Add(1)

		go func(sec *section[T], in <-chan batch) {
			defer wg.Done()

			for b := range in {
				results <- co.process(sec, b)
			}
		}(co.sections[i], inputs[i])
	}

	defer func() {
		for _, in := range inputs {
			close(in)
		}

		wg.Wait()
	}()

	pending := make([]batch, workers)
	for i := range pending {
		pending[i] = batch{scan: true}
	}

	for round := 0; ; round++ {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("balance round %d: %w", round, err)
		}

		active := 0

		for i, b := range pending {
			if b.scan || len(b.msgs) > 0 {
				inputs[i] <- b
				active++
			}
		}

		if active == 0 {
			return nil
		}

		co.stats.Rounds++

		outboxes := make([][][]insertion, workers)

		for range active {
			res := <-results
			if res.panicked != nil {
				panic(res.panicked)
			}

			outboxes[res.id] = res.outbox
		}

		var messages int

		pending, messages = route(outboxes, workers)
		co.stats.Messages += messages

		logger.Debug("balance round finished",
			"round", round,
			"active_sections", active,
			"messages", messages,
		)
	}
}

func (co *coordinator[T]) process(sec *section[T], b batch) (res outcome) {
	res.id = sec.id

	defer func() {
		if r := recover(); r != nil {
			res.panicked = r
		}
	}()

	if b.scan {
		sec.scan()
	} else {
		sec.deliver(b.msgs)
	}

	res.outbox = sec.drainOutbox()

	return res
}

// route gathers the insertions per destination, taking sources in section
// order, and returns them with the total count.
func route(outboxes [][][]insertion, workers int) ([]batch, int) {
	next := make([]batch, workers)
	total := 0

	for _, outbox := range outboxes {
		for dst, msgs := range outbox {
			next[dst].msgs = append(next[dst].msgs, msgs...)
			total += len(msgs)
		}
	}

	return next, total
}
