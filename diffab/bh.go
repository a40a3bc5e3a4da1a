package diffab

import "sort"

// benjaminiHochberg applies the Benjamini-Hochberg step-up false discovery
// rate correction. The returned slice is index-aligned with the input, and
// every adjusted value is >= its raw value and capped at 1.
func benjaminiHochberg(p []float64) []float64 {
	n := len(p)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return p[order[a]] < p[order[b]] })

	// Step up from the largest p-value, enforcing monotonicity.
	running := 1.0
	for rank := n - 1; rank >= 0; rank-- {
		idx := order[rank]
		adj := p[idx] * float64(n) / float64(rank+1)
		if adj < running {
			running = adj
		}
		out[idx] = running
	}

	return out
}
