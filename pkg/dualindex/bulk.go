package dualindex

import (
	"cmp"
	"slices"

	"github.com/lukasn42/move-datastructure/pkg/intervals"
)

// SortByQ returns a copy of refs ordered by the nodes' Q.
func SortByQ[T intervals.Position](arena *Arena[T], refs []Ref) []Ref {
	sorted := slices.Clone(refs)

	slices.SortFunc(sorted, func(x, y Ref) int {
		return cmp.Compare(arena.Node(x).Q, arena.Node(y).Q)
	})

	return sorted
}
