package plots

import (
	"io"
	"sort"

	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/dataset"
	"github.com/montanaflynn/stats"
	"github.com/wcharczuk/go-chart/v2"
)

// GroupSummary is the five-number summary of one metadata group's values.
type GroupSummary struct {
	Group  string
	N      int
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// GroupSummaries splits per-sample values by the levels of a metadata
// column and computes each group's five-number summary, sorted by level.
func GroupSummaries(c *dataset.Combined, values map[string]float64, column string) ([]GroupSummary, error) {
	if !c.Metadata.HasColumn(column) {
		return nil, &ampliseq.FormatError{Problem: "metadata has no column " + column}
	}

	byGroup := make(map[string][]float64)
	for _, id := range c.Table.SampleIDs() {
		v, ok := values[id]
		if !ok {
			continue
		}
		g := c.Metadata.String(id, column)
		if !g.Valid {
			continue
		}
		byGroup[g.String] = append(byGroup[g.String], v)
	}
	if len(byGroup) == 0 {
		return nil, &ampliseq.PreconditionError{Op: "plots.GroupSummaries", Problem: "no sample has both a value and a level for column " + column}
	}

	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		vals := byGroup[g]

		min, err := stats.Min(vals)
		if err != nil {
			return nil, err
		}
		max, err := stats.Max(vals)
		if err != nil {
			return nil, err
		}
		median, err := stats.Median(vals)
		if err != nil {
			return nil, err
		}

		q1, q3 := median, median
		if len(vals) >= 4 {
			q, err := stats.Quartile(vals)
			if err != nil {
				return nil, err
			}
			q1, q3 = q.Q1, q.Q3
		}

		out = append(out, GroupSummary{
			Group:  g,
			N:      len(vals),
			Min:    min,
			Q1:     q1,
			Median: median,
			Q3:     q3,
			Max:    max,
		})
	}

	return out, nil
}

// GroupBox renders box-and-whisker summaries of per-sample values split by
// a metadata column: a thin whisker from min to max, a thick bar from Q1 to
// Q3, and a dot at the median, one column per group. PNG is written to w.
func GroupBox(c *dataset.Combined, values map[string]float64, column, title string, w io.Writer) error {
	summaries, err := GroupSummaries(c, values, column)
	if err != nil {
		return err
	}

	var series []chart.Series
	ticks := []chart.Tick{{Value: 0, Label: ""}}
	for i, s := range summaries {
		x := float64(i + 1)
		color := chart.GetDefaultColor(i)

		series = append(series,
			chart.ContinuousSeries{
				XValues: []float64{x, x},
				YValues: []float64{s.Min, s.Max},
				Style:   chart.Style{StrokeColor: color, StrokeWidth: 1},
			},
			chart.ContinuousSeries{
				XValues: []float64{x, x},
				YValues: []float64{s.Q1, s.Q3},
				Style:   chart.Style{StrokeColor: color, StrokeWidth: 10},
			},
			chart.ContinuousSeries{
				XValues: []float64{x},
				YValues: []float64{s.Median},
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
					DotColor:    chart.ColorBlack,
				},
			},
		)
		ticks = append(ticks, chart.Tick{Value: x, Label: s.Group})
	}
	ticks = append(ticks, chart.Tick{Value: float64(len(summaries) + 1), Label: ""})

	graph := chart.Chart{
		Title:  title,
		Width:  640,
		Height: 480,
		XAxis: chart.XAxis{
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(summaries) + 1)},
		},
		Series: series,
	}

	return graph.Render(chart.PNG, w)
}
