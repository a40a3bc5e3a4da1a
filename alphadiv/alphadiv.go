// Package alphadiv computes within-sample (alpha) diversity indices from a
// combined dataset. Compare groups on these after rarefying, so that depth
// differences do not masquerade as diversity differences.
package alphadiv

import (
	"math"

	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/dataset"
)

// Index selects an alpha diversity measure.
type Index int

const (
	// ObservedFeatures is the count of features with nonzero abundance.
	ObservedFeatures Index = iota
	// Shannon is the Shannon entropy (natural log) of the sample's
	// relative abundances.
	Shannon
	// Simpson is 1 minus the sum of squared relative abundances.
	Simpson
	// Pielou is Shannon evenness: H divided by log(richness).
	Pielou
)

func (i Index) String() string {
	switch i {
	case ObservedFeatures:
		return "observed-features"
	case Shannon:
		return "shannon"
	case Simpson:
		return "simpson"
	case Pielou:
		return "pielou-evenness"
	}
	return "unknown"
}

// Compute returns the chosen index for every sample, in table column order.
// Zero-depth samples are rejected: every index divides by the sample total.
func Compute(c *dataset.Combined, index Index) (map[string]float64, error) {
	ids := c.Table.SampleIDs()
	out := make(map[string]float64, len(ids))

	for j, id := range ids {
		counts := c.Table.SampleCounts(j)
		var total int64
		richness := 0
		for _, v := range counts {
			total += v
			if v > 0 {
				richness++
			}
		}
		if total == 0 {
			return nil, &ampliseq.PreconditionError{Op: "alphadiv.Compute", Problem: "sample " + id + " has zero total count"}
		}

		switch index {
		case ObservedFeatures:
			out[id] = float64(richness)
		case Shannon:
			out[id] = shannon(counts, total)
		case Simpson:
			var ss float64
			for _, v := range counts {
				p := float64(v) / float64(total)
				ss += p * p
			}
			out[id] = 1 - ss
		case Pielou:
			if richness < 2 {
				out[id] = 0
				continue
			}
			out[id] = shannon(counts, total) / math.Log(float64(richness))
		default:
			return nil, &ampliseq.PreconditionError{Op: "alphadiv.Compute", Problem: "unknown index"}
		}
	}

	return out, nil
}

func shannon(counts []int64, total int64) float64 {
	var h float64
	for _, v := range counts {
		if v == 0 {
			continue
		}
		p := float64(v) / float64(total)
		h -= p * math.Log(p)
	}
	return h
}
