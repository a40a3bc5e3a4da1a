package dataset

import (
	"fmt"

	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/metadata"
)

// FilterSamplesByDepth keeps samples whose sequencing depth is at least
// minDepth. Filtering away every sample is an error, not an empty dataset.
func (c *Combined) FilterSamplesByDepth(minDepth int64) (*Combined, error) {
	var keep []string
	for j, id := range c.Table.SampleIDs() {
		if c.Table.SampleDepth(j) >= minDepth {
			keep = append(keep, id)
		}
	}
	if len(keep) == 0 {
		return nil, &ampliseq.PreconditionError{Op: "FilterSamplesByDepth", Problem: fmt.Sprintf("no sample has depth >= %d", minDepth)}
	}

	table, err := c.Table.Subset(c.Table.FeatureIDs(), keep)
	if err != nil {
		return nil, err
	}
	return c.derive(table)
}

// FilterSamplesWhere keeps samples whose metadata value in the named column
// satisfies the predicate.
func (c *Combined) FilterSamplesWhere(column string, pred metadata.Predicate) (*Combined, error) {
	keep, err := c.Metadata.Matching(column, pred)
	if err != nil {
		return nil, err
	}
	if len(keep) == 0 {
		return nil, &ampliseq.PreconditionError{Op: "FilterSamplesWhere", Problem: "no sample matches the predicate on column " + column}
	}

	table, err := c.Table.Subset(c.Table.FeatureIDs(), keep)
	if err != nil {
		return nil, err
	}
	return c.derive(table)
}

// FilterFeaturesByAbundance keeps features whose overall relative abundance
// (feature total over grand total) exceeds minRelAbundance. Typical
// thresholds are 0.0005 to 0.001.
func (c *Combined) FilterFeaturesByAbundance(minRelAbundance float64) (*Combined, error) {
	grand := c.Table.GrandTotal()
	if grand == 0 {
		return nil, &ampliseq.PreconditionError{Op: "FilterFeaturesByAbundance", Problem: "feature table has zero total count"}
	}

	var keep []string
	for i, id := range c.Table.FeatureIDs() {
		if float64(c.Table.FeatureTotal(i))/float64(grand) > minRelAbundance {
			keep = append(keep, id)
		}
	}
	if len(keep) == 0 {
		return nil, &ampliseq.PreconditionError{Op: "FilterFeaturesByAbundance", Problem: fmt.Sprintf("no feature has relative abundance > %g", minRelAbundance)}
	}

	table, err := c.Table.Subset(keep, c.Table.SampleIDs())
	if err != nil {
		return nil, err
	}
	return c.derive(table)
}
