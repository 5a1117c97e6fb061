package splitter

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat/combin"
)

// Combinations returns every k-combination of the group identifiers 1..n, in
// lexicographic order. Each combination is ascending.
func Combinations(n, k int) ([][]int, error) {
	if n < 1 {
		return nil, fmt.Errorf("need at least one group, got %d", n)
	}
	if k < 1 || k >= n {
		return nil, fmt.Errorf("the number of training groups must be at least 1 and less than the %d available groups, got %d", n, k)
	}

	combos := combin.Combinations(n, k)
	for _, combo := range combos {
		for i := range combo {
			combo[i]++
		}
		sort.Ints(combo)
	}

	sort.Slice(combos, func(a, b int) bool {
		for i := range combos[a] {
			if combos[a][i] != combos[b][i] {
				return combos[a][i] < combos[b][i]
			}
		}
		return false
	})

	return combos, nil
}

// Complement returns the identifiers in 1..n that are not in chosen, ascending.
func Complement(n int, chosen []int) []int {
	in := make(map[int]struct{}, len(chosen))
	for _, id := range chosen {
		in[id] = struct{}{}
	}

	out := make([]int, 0, n-len(chosen))
	for id := 1; id <= n; id++ {
		if _, ok := in[id]; !ok {
			out = append(out, id)
		}
	}

	return out
}
