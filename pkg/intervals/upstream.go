package intervals

import (
	"cmp"
	"fmt"
	"slices"
)

// alphabetSize is the number of distinct byte symbols.
const alphabetSize = 256

// FromPermutation splits a permutation of [0, len(perm)) into its maximal
// runs of consecutive images.
func FromPermutation[T Position](perm []T) (Sequence[T], error) {
	n := len(perm)
	if n == 0 {
		return Sequence[T]{}, ErrEmpty
	}

	seen := make([]bool, n)

	pairs := make([]Pair[T], 0)

	for i, v := range perm {
		if uint64(v) >= uint64(n) || seen[v] {
			return Sequence[T]{}, fmt.Errorf("%w: value %d at %d", ErrNotBijective, v, i)
		}

		seen[v] = true

		if i == 0 || perm[i-1]+1 != v {
			pairs = append(pairs, Pair[T]{P: T(i), Q: v})
		}
	}

	return Sequence[T]{N: T(n), Pairs: pairs}, nil
}

// RunLengthEncode returns the head symbol and start position of every run of
// equal symbols in bwt.
func RunLengthEncode[T Position](bwt []byte) (heads []byte, starts []T) {
	for i, c := range bwt {
		if i == 0 || bwt[i-1] != c {
			heads = append(heads, c)
			starts = append(starts, T(i))
		}
	}

	return heads, starts
}

// FromRunLengthBWT derives the LF intervals of a run-length encoded BWT of
// length n. Run i starting at starts[i] with symbol heads[i] maps to
// C[c] + rank_c(starts[i]).
func FromRunLengthBWT[T Position](heads []byte, starts []T, n T) (Sequence[T], error) {
	r := len(heads)
	if r == 0 || len(starts) != r {
		return Sequence[T]{}, fmt.Errorf("%w: %d heads, %d starts", ErrEmpty, r, len(starts))
	}

	runLength := func(i int) T {
		if i+1 < r {
			return starts[i+1] - starts[i]
		}

		return n - starts[i]
	}

	var occ [alphabetSize]T

	for i := range r {
		occ[heads[i]] += runLength(i)
	}

	var cumulative [alphabetSize]T

	for c := 1; c < alphabetSize; c++ {
		cumulative[c] = cumulative[c-1] + occ[c-1]
	}

	var rank [alphabetSize]T

	pairs := make([]Pair[T], r)

	for i := range r {
		c := heads[i]
		pairs[i] = Pair[T]{P: starts[i], Q: cumulative[c] + rank[c]}
		rank[c] += runLength(i)
	}

	return Sequence[T]{N: n, Pairs: pairs}, nil
}

// FromBWT run-length encodes bwt and derives its LF intervals.
func FromBWT[T Position](bwt []byte) (Sequence[T], error) {
	heads, starts := RunLengthEncode[T](bwt)

	return FromRunLengthBWT(heads, starts, T(len(bwt)))
}

// FromSuffixArray derives the intervals of the inverse phi function, which
// maps SA[x] to SA[x+1], from a suffix array and the BWT run starts. The
// pair of run i is (SA[e], SA[e+1]) where e is the last position of the run,
// with the last run wrapping around to SA[0].
func FromSuffixArray[T Position](sa, runStarts []T) (Sequence[T], error) {
	n := len(sa)
	r := len(runStarts)

	if n == 0 || r == 0 {
		return Sequence[T]{}, ErrEmpty
	}

	pairs := make([]Pair[T], r)

	for i := 0; i < r-1; i++ {
		end := int(runStarts[i+1]) - 1
		pairs[i] = Pair[T]{P: sa[end], Q: sa[end+1]}
	}

	pairs[r-1] = Pair[T]{P: sa[n-1], Q: sa[0]}

	slices.SortFunc(pairs, func(x, y Pair[T]) int {
		return cmp.Compare(x.P, y.P)
	})

	return Sequence[T]{N: T(n), Pairs: pairs}, nil
}
