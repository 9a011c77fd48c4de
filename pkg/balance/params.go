// Package balance turns a disjoint interval sequence into a balanced one: every
// output interval ends up containing fewer than A input interval starts.
package balance

import (
	"errors"
	"fmt"
	"log/slog"
)

// Default balancing parameters.
const (
	DefaultA = 4
	DefaultB = 2
)

// Sentinel parameter errors.
var (
	ErrInvalidB       = errors.New("invalid value for b: need 2 <= b")
	ErrInvalidA       = errors.New("invalid value for a: need b < a-1")
	ErrInvalidWorkers = errors.New("worker count must be positive")
)

// Params holds the balancing parameters. An output interval is unbalanced
// once A input intervals start inside it; a cut leaves B of them in front.
type Params struct {
	A int
	B int
}

// DefaultParams returns the (4, 2) parameters.
func DefaultParams() Params {
	return Params{A: DefaultA, B: DefaultB}
}

// Validate checks 2 <= B < A-1.
func (p Params) Validate() error {
	if p.B < 2 {
		return fmt.Errorf("%w: b=%d", ErrInvalidB, p.B)
	}

	if p.B >= p.A-1 {
		return fmt.Errorf("%w: a=%d b=%d", ErrInvalidA, p.A, p.B)
	}

	return nil
}

// String renders the parameters as "(a,b)".
func (p Params) String() string {
	return fmt.Sprintf("(%d,%d)", p.A, p.B)
}

// Options configures a balancing run.
type Options struct {
	// Workers is the number of sections processed concurrently. Values
	// above the number of input intervals are clamped.
	Workers int

	// Logger receives round-level debug output. Nil uses slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}

	return o.Logger
}
