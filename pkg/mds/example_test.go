package mds_test

import (
	"context"
	"fmt"

	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/mds"
)

func ExampleBuildPairs() {
	pairs := []intervals.Pair[uint32]{{P: 0, Q: 4}, {P: 1, Q: 5}, {P: 2, Q: 6}, {P: 3, Q: 7}, {P: 4, Q: 0}}

	s, _, err := mds.BuildPairs(context.Background(), pairs, 8)
	if err != nil {
		fmt.Println(err)

		return
	}

	fmt.Println(s.Sequence().Pairs)

	pos, x := uint32(5), s.FindInterval(5)
	for range 3 {
		pos, x = s.Move(pos, x)
		fmt.Println(pos, x)
	}

	// Output:
	// [(0,4) (1,5) (2,6) (3,7) (4,0) (6,2)]
	// 1 1
	// 5 4
	// 1 1
}
