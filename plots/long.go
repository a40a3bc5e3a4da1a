// Package plots renders the standard presentation layer of an amplicon
// analysis: group box summaries, ordination scatter plots, and taxa bar
// charts, all as PNG written to an io.Writer.
package plots

import (
	"github.com/ampliomics/ampliseq/dataset"
)

// LongRow is one observation in the long-format (tidy) view of a dataset:
// exactly one row per (sample, feature) pair, with the joined taxonomy
// label and every metadata covariate, ready for plotting or export.
type LongRow struct {
	SampleID  string
	FeatureID string
	Count     int64
	Abundance float64 // within-sample relative abundance
	Taxon     string
	Metadata  map[string]string
}

// Long performs the wide-to-long transform over the whole dataset. Rows are
// ordered sample-major, matching the table's column order.
func Long(c *dataset.Combined) ([]LongRow, error) {
	rel, err := c.RelativeAbundance()
	if err != nil {
		return nil, err
	}

	columns := c.Metadata.Columns()
	featureIDs := c.Table.FeatureIDs()
	sampleIDs := c.Table.SampleIDs()

	out := make([]LongRow, 0, len(sampleIDs)*len(featureIDs))
	for j, sampleID := range sampleIDs {
		meta := make(map[string]string, len(columns))
		for _, col := range columns {
			if v := c.Metadata.String(sampleID, col); v.Valid {
				meta[col] = v.String
			}
		}

		for i, featureID := range featureIDs {
			taxon := ""
			if c.Taxonomy != nil {
				if l, ok := c.Taxonomy.Lineage(featureID); ok {
					taxon = l.String()
				}
			}

			out = append(out, LongRow{
				SampleID:  sampleID,
				FeatureID: featureID,
				Count:     c.Table.Count(i, j),
				Abundance: rel.Value(i, j),
				Taxon:     taxon,
				Metadata:  meta,
			})
		}
	}

	return out, nil
}
