package types

import "sort"

// PercentileRanks maps each value to (rank-1)/(n-1) in ascending order, ties sharing their
// average rank. A single value maps to 0.5.
func PercentileRanks(vs []float64) []float64 {
	n := len(vs)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if n == 1 {
		out[0] = 0.5
		return out
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return vs[order[a]] < vs[order[b]] })
	for i := 0; i < n; {
		j := i
		for j+1 < n && vs[order[j+1]] == vs[order[i]] {
			j++
		}
		avg := float64(i+j) / 2 // zero-based average rank
		for k := i; k <= j; k++ {
			out[order[k]] = avg / float64(n-1)
		}
		i = j + 1
	}
	return out
}
