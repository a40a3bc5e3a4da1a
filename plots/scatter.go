package plots

import (
	"fmt"
	"io"

	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/dataset"
	"github.com/ampliomics/ampliseq/ordinate"
	"github.com/wcharczuk/go-chart/v2"
)

// OrdinationScatter renders the first two principal coordinate axes as a
// scatter plot with one colored series per level of the grouping column.
// Axis labels carry each axis's share of explained variance. PNG is written
// to w.
func OrdinationScatter(p *ordinate.PCoA, c *dataset.Combined, column, title string, w io.Writer) error {
	if len(p.Explained) < 2 {
		return &ampliseq.PreconditionError{Op: "plots.OrdinationScatter", Problem: "ordination has fewer than two axes"}
	}
	if !c.Metadata.HasColumn(column) {
		return &ampliseq.FormatError{Problem: "metadata has no column " + column}
	}

	sampleAxis := make(map[string][2]float64, len(p.SampleIDs))
	for i, id := range p.SampleIDs {
		sampleAxis[id] = [2]float64{p.Coordinate(i, 0), p.Coordinate(i, 1)}
	}

	var series []chart.Series
	for i, level := range c.Metadata.Levels(column) {
		var xs, ys []float64
		for _, id := range p.SampleIDs {
			v := c.Metadata.String(id, column)
			if !v.Valid || v.String != level {
				continue
			}
			xy := sampleAxis[id]
			xs = append(xs, xy[0])
			ys = append(ys, xy[1])
		}
		if len(xs) == 0 {
			continue
		}

		series = append(series, chart.ContinuousSeries{
			Name:    level,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    5,
				DotColor:    chart.GetDefaultColor(i),
			},
		})
	}
	if len(series) == 0 {
		return &ampliseq.PreconditionError{Op: "plots.OrdinationScatter", Problem: "no sample carries a level for column " + column}
	}

	graph := chart.Chart{
		Title:  title,
		Width:  640,
		Height: 480,
		XAxis: chart.XAxis{
			Name: fmt.Sprintf("PCo1 (%.1f%%)", 100*p.Explained[0]),
		},
		YAxis: chart.YAxis{
			Name: fmt.Sprintf("PCo2 (%.1f%%)", 100*p.Explained[1]),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}
