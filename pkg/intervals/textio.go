package intervals

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a pair listing cannot be parsed.
var ErrMalformed = errors.New("malformed pair listing")

const commentPrefix = "#"

// ReadPairs parses a pair listing: the first data line holds n, every
// following line one "p q" pair. Blank lines and lines starting with '#'
// are skipped.
func ReadPairs[T Position](r io.Reader) (Sequence[T], error) {
	scanner := bufio.NewScanner(r)

	var (
		seq     Sequence[T]
		haveN   bool
		lineNum int
	)

	for scanner.Scan() {
		lineNum++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		fields := strings.Fields(line)

		if !haveN {
			if len(fields) != 1 {
				return Sequence[T]{}, fmt.Errorf("%w: line %d: expected n", ErrMalformed, lineNum)
			}

			n, err := parsePosition[T](fields[0])
			if err != nil {
				return Sequence[T]{}, fmt.Errorf("%w: line %d: %w", ErrMalformed, lineNum, err)
			}

			seq.N = n
			haveN = true

			continue
		}

		if len(fields) != 2 {
			return Sequence[T]{}, fmt.Errorf("%w: line %d: expected \"p q\"", ErrMalformed, lineNum)
		}

		p, err := parsePosition[T](fields[0])
		if err != nil {
			return Sequence[T]{}, fmt.Errorf("%w: line %d: %w", ErrMalformed, lineNum, err)
		}

		q, err := parsePosition[T](fields[1])
		if err != nil {
			return Sequence[T]{}, fmt.Errorf("%w: line %d: %w", ErrMalformed, lineNum, err)
		}

		seq.Pairs = append(seq.Pairs, Pair[T]{P: p, Q: q})
	}

	err := scanner.Err()
	if err != nil {
		return Sequence[T]{}, fmt.Errorf("read pairs: %w", err)
	}

	if !haveN {
		return Sequence[T]{}, fmt.Errorf("%w: missing n", ErrMalformed)
	}

	return seq, nil
}

// WritePairs writes seq in the format read by ReadPairs.
func WritePairs[T Position](w io.Writer, seq Sequence[T]) error {
	bw := bufio.NewWriter(w)

	_, err := fmt.Fprintf(bw, "%d\n", seq.N)
	if err != nil {
		return fmt.Errorf("write pairs: %w", err)
	}

	for _, pair := range seq.Pairs {
		_, err = fmt.Fprintf(bw, "%d %d\n", pair.P, pair.Q)
		if err != nil {
			return fmt.Errorf("write pairs: %w", err)
		}
	}

	err = bw.Flush()
	if err != nil {
		return fmt.Errorf("write pairs: %w", err)
	}

	return nil
}

func parsePosition[T Position](s string) (T, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}

	if uint64(T(v)) != v {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, v)
	}

	return T(v), nil
}
