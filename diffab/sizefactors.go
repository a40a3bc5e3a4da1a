package diffab

import (
	"math"
	"sort"

	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/biom"
)

// sizeFactors computes median-of-ratios normalization constants, one per
// sample. The reference for each feature is the geometric mean of its
// counts across samples; features with any zero count contribute nothing to
// the reference (they are excluded outright, not patched with a zero), so
// the factors are driven by the consistently observed features.
func sizeFactors(t *biom.Table) ([]float64, error) {
	nFeatures := t.NumFeatures()
	nSamples := t.NumSamples()

	logGeoMeans := make([]float64, nFeatures)
	usable := make([]bool, nFeatures)
	nUsable := 0
	for i := 0; i < nFeatures; i++ {
		var logSum float64
		ok := true
		for j := 0; j < nSamples; j++ {
			v := t.Count(i, j)
			if v == 0 {
				ok = false
				break
			}
			logSum += math.Log(float64(v))
		}
		if ok {
			logGeoMeans[i] = logSum / float64(nSamples)
			usable[i] = true
			nUsable++
		}
	}
	if nUsable == 0 {
		return nil, &ampliseq.PreconditionError{
			Op:      "diffab.sizeFactors",
			Problem: "every feature contains a zero count; aggregate or filter features before testing",
		}
	}

	factors := make([]float64, nSamples)
	ratios := make([]float64, 0, nUsable)
	for j := 0; j < nSamples; j++ {
		ratios = ratios[:0]
		for i := 0; i < nFeatures; i++ {
			if !usable[i] {
				continue
			}
			ratios = append(ratios, math.Log(float64(t.Count(i, j)))-logGeoMeans[i])
		}
		factors[j] = math.Exp(median(ratios))
		if factors[j] == 0 || math.IsInf(factors[j], 0) || math.IsNaN(factors[j]) {
			return nil, &ampliseq.PreconditionError{
				Op:      "diffab.sizeFactors",
				Problem: "degenerate size factor for sample " + t.SampleIDs()[j],
			}
		}
	}

	return factors, nil
}

// median of a slice; the input is reordered.
func median(v []float64) float64 {
	sort.Float64s(v)
	n := len(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}
