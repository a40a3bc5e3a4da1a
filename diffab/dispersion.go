package diffab

import (
	"math"
	"sort"
)

const minDispersion = 1e-8

// momDispersion estimates a feature's NB dispersion by the method of
// moments on size-factor-normalized counts, pooled within groups so the
// group means do not masquerade as biological variance. Var = mu + a*mu^2
// gives a = (var - mu) / mu^2.
func momDispersion(norm []float64, groups [][]int) float64 {
	var num, den float64
	for _, idx := range groups {
		if len(idx) < 2 {
			continue
		}
		var mean float64
		for _, j := range idx {
			mean += norm[j]
		}
		mean /= float64(len(idx))
		if mean <= 0 {
			continue
		}

		var ss float64
		for _, j := range idx {
			d := norm[j] - mean
			ss += d * d
		}
		variance := ss / float64(len(idx)-1)

		// Accumulate (var - mean) against mean^2 weighted by group df.
		df := float64(len(idx) - 1)
		num += df * (variance - mean)
		den += df * mean * mean
	}

	if den <= 0 {
		return minDispersion
	}
	a := num / den
	if a < minDispersion {
		return minDispersion
	}
	return a
}

// localDispersions shrinks each feature's method-of-moments dispersion
// toward the mean dispersion of the features nearest to it in base mean,
// the "local" fitting strategy. Features with few counts get unstable raw
// estimates; borrowing from expression neighbors stabilizes them without
// imposing one global trend.
func localDispersions(raw, baseMeans []float64) []float64 {
	n := len(raw)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return baseMeans[order[a]] < baseMeans[order[b]] })

	const halfWindow = 10
	for rank, idx := range order {
		lo := rank - halfWindow
		if lo < 0 {
			lo = 0
		}
		hi := rank + halfWindow
		if hi > n-1 {
			hi = n - 1
		}

		// Mean on the log scale; dispersions span orders of magnitude.
		var logSum float64
		count := 0
		for r := lo; r <= hi; r++ {
			logSum += math.Log(raw[order[r]])
			count++
		}
		trend := math.Exp(logSum / float64(count))

		local := math.Exp((math.Log(raw[idx]) + math.Log(trend)) / 2)
		if local < minDispersion {
			local = minDispersion
		}
		out[idx] = local
	}

	return out
}
