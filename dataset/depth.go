package dataset

import (
	"fmt"
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"
)

// DepthSummary writes a sequencing-depth QC report: the five-number-style
// summary of per-sample depths followed by a text histogram. Useful for
// choosing a rarefaction depth before throwing samples away.
func (c *Combined) DepthSummary(w io.Writer) error {
	depths := make([]float64, c.Table.NumSamples())
	for j, d := range c.Table.SampleDepths() {
		depths[j] = float64(d)
	}

	min, err := stats.Min(depths)
	if err != nil {
		return err
	}
	max, err := stats.Max(depths)
	if err != nil {
		return err
	}
	mean, err := stats.Mean(depths)
	if err != nil {
		return err
	}
	median, err := stats.Median(depths)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "samples: %d\tfeatures: %d\n", c.Table.NumSamples(), c.Table.NumFeatures())
	fmt.Fprintf(w, "depth min: %.0f\tmedian: %.0f\tmean: %.1f\tmax: %.0f\n", min, median, mean, max)

	buckets := 10
	if n := c.Table.NumSamples(); n < buckets {
		buckets = n
	}
	hist := histogram.Hist(buckets, depths)

	return histogram.Fprint(w, hist, histogram.Linear(40))
}
