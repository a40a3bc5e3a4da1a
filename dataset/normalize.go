package dataset

import (
	"github.com/ampliomics/ampliseq"
)

// RelAbundance is a feature-by-sample matrix of relative abundances: each
// column sums to 1.
type RelAbundance struct {
	FeatureIDs []string
	SampleIDs  []string
	Values     [][]float64 // rows = features, cols = samples
}

// Value looks up the proportion for a feature row and sample column.
func (r *RelAbundance) Value(i, j int) float64 { return r.Values[i][j] }

// RelativeAbundance divides every count by its sample's depth. A zero-depth
// sample makes the proportion undefined, so it is rejected up front; filter
// or rarefy first.
func (c *Combined) RelativeAbundance() (*RelAbundance, error) {
	depths := c.Table.SampleDepths()
	for j, d := range depths {
		if d == 0 {
			return nil, &ampliseq.PreconditionError{Op: "RelativeAbundance", Problem: "sample " + c.Table.SampleIDs()[j] + " has zero total count"}
		}
	}

	out := &RelAbundance{
		FeatureIDs: c.Table.FeatureIDs(),
		SampleIDs:  c.Table.SampleIDs(),
		Values:     make([][]float64, c.Table.NumFeatures()),
	}
	for i := range out.Values {
		row := make([]float64, c.Table.NumSamples())
		for j := range row {
			row[j] = float64(c.Table.Count(i, j)) / float64(depths[j])
		}
		out.Values[i] = row
	}

	return out, nil
}
