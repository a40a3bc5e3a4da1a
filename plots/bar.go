package plots

import (
	"io"
	"sort"

	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/biom"
	"github.com/ampliomics/ampliseq/dataset"
	"github.com/wcharczuk/go-chart/v2"
)

// TaxaBar renders the mean relative abundance of the top-n taxa at the
// given rank as a bar chart, aggregated across all samples. Unassigned
// features are kept as their own bars so the proportions still account for
// the whole dataset. PNG is written to w.
func TaxaBar(c *dataset.Combined, rank biom.Rank, n int, title string, w io.Writer) error {
	if n < 1 {
		return &ampliseq.PreconditionError{Op: "plots.TaxaBar", Problem: "at least one bar is required"}
	}

	agg, err := c.AggregateTaxa(rank, dataset.KeepAsSingleton)
	if err != nil {
		return err
	}
	rel, err := agg.RelativeAbundance()
	if err != nil {
		return err
	}

	type taxon struct {
		label string
		mean  float64
	}
	taxa := make([]taxon, 0, len(rel.FeatureIDs))
	for i, id := range rel.FeatureIDs {
		var sum float64
		for j := range rel.SampleIDs {
			sum += rel.Value(i, j)
		}

		label := id
		if l, ok := agg.Taxonomy.Lineage(id); ok && l.AssignedAt(rank) {
			label = l.At(rank)
		}
		taxa = append(taxa, taxon{label: label, mean: sum / float64(len(rel.SampleIDs))})
	}

	sort.Slice(taxa, func(a, b int) bool { return taxa[a].mean > taxa[b].mean })
	if n > len(taxa) {
		n = len(taxa)
	}

	bars := make([]chart.Value, 0, n)
	for _, t := range taxa[:n] {
		bars = append(bars, chart.Value{Value: t.mean, Label: t.label})
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    640,
		Height:   480,
		BarWidth: 40,
		Bars:     bars,
	}

	return graph.Render(chart.PNG, w)
}
