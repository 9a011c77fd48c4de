package mds_test

import (
	"math/rand"
	"slices"
	"sort"
	"strings"

	"github.com/lukasn42/move-datastructure/pkg/intervals"
)

const (
	testN     = 4000
	testK     = 250
	testSeeds = 4
)

// randomSequence cuts [0, n) into k input intervals and lays them out in a
// random output order.
func randomSequence(rng *rand.Rand, n, k int) intervals.Sequence[uint32] {
	cuts := rng.Perm(n - 1)[:k-1]
	starts := make([]int, 0, k)
	starts = append(starts, 0)

	for _, c := range cuts {
		starts = append(starts, c+1)
	}

	slices.Sort(starts)

	pairs := make([]intervals.Pair[uint32], k)
	q := 0

	for _, i := range rng.Perm(k) {
		end := n
		if i+1 < k {
			end = starts[i+1]
		}

		pairs[i] = intervals.Pair[uint32]{P: uint32(starts[i]), Q: uint32(q)}
		q += end - starts[i]
	}

	return intervals.New(uint32(n), pairs)
}

// smallExample is the sequence whose only unbalanced output interval is
// [0, 4).
func smallExample() intervals.Sequence[uint32] {
	return intervals.New[uint32](8, []intervals.Pair[uint32]{
		{P: 0, Q: 4}, {P: 1, Q: 5}, {P: 2, Q: 6}, {P: 3, Q: 7}, {P: 4, Q: 0},
	})
}

// terminatedText appends a terminator smaller than every other byte.
func terminatedText(body string) string {
	return body + "\x00"
}

func repetitiveText(unit string, times int) string {
	return terminatedText(strings.Repeat(unit, times))
}

func randomText(rng *rand.Rand, alphabet string, n int) string {
	var sb strings.Builder

	for range n {
		sb.WriteByte(alphabet[rng.Intn(len(alphabet))])
	}

	return terminatedText(sb.String())
}

// bwtOf sorts the suffixes of text, quadratic but fine for tests, and
// returns the Burrows-Wheeler transform.
func bwtOf(text string) []byte {
	sa := make([]int, len(text))
	for i := range sa {
		sa[i] = i
	}

	sort.Slice(sa, func(x, y int) bool { return text[sa[x]:] < text[sa[y]:] })

	bwt := make([]byte, len(text))

	for i, s := range sa {
		if s == 0 {
			bwt[i] = text[len(text)-1]
		} else {
			bwt[i] = text[s-1]
		}
	}

	return bwt
}
