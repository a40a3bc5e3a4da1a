package dataset

import (
	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/biom"
)

// UnassignedPolicy says what to do with features that carry no taxonomy
// assignment at the aggregation rank. There is no safe default: dropping
// loses counts, keeping inflates the group list. Callers choose explicitly.
type UnassignedPolicy int

const (
	// DropUnassigned removes features unassigned at the target rank.
	DropUnassigned UnassignedPolicy = iota
	// KeepAsSingleton keeps each unassigned feature as its own group,
	// preserving the table's grand total.
	KeepAsSingleton
)

// AggregateTaxa groups features that share a lineage down to and including
// rank, summing their count vectors elementwise. The aggregated feature is
// identified by its shared lineage prefix, and its taxonomy entry is the
// lineage truncated below the rank. The tree does not survive aggregation
// (aggregated features are no longer tree leaves), so the result carries a
// nil tree.
func (c *Combined) AggregateTaxa(rank biom.Rank, policy UnassignedPolicy) (*Combined, error) {
	if c.Taxonomy == nil {
		return nil, &ampliseq.PreconditionError{Op: "AggregateTaxa", Problem: "dataset has no taxonomy"}
	}

	nSamples := c.Table.NumSamples()

	type group struct {
		id      string
		lineage biom.Lineage
		counts  []int64
	}
	var order []string
	groups := make(map[string]*group)

	for i, featureID := range c.Table.FeatureIDs() {
		lineage, _ := c.Taxonomy.Lineage(featureID)

		var key string
		var groupLineage biom.Lineage
		switch {
		case lineage.AssignedAt(rank):
			key = lineage.Key(rank)
			groupLineage = lineage.Truncate(rank)
		case policy == DropUnassigned:
			continue
		default: // KeepAsSingleton
			key = featureID
			groupLineage = lineage
		}

		g, ok := groups[key]
		if !ok {
			g = &group{id: key, lineage: groupLineage, counts: make([]int64, nSamples)}
			groups[key] = g
			order = append(order, key)
		}
		for j := 0; j < nSamples; j++ {
			g.counts[j] += c.Table.Count(i, j)
		}
	}

	if len(order) == 0 {
		return nil, &ampliseq.PreconditionError{Op: "AggregateTaxa", Problem: "no feature is assigned at rank " + rank.String()}
	}

	featureIDs := make([]string, len(order))
	counts := make([][]int64, len(order))
	tax := biom.NewTaxonomy()
	for i, key := range order {
		g := groups[key]
		featureIDs[i] = g.id
		counts[i] = g.counts
		tax.Set(g.id, g.lineage)
	}

	table, err := biom.NewTable(featureIDs, c.Table.SampleIDs(), counts)
	if err != nil {
		return nil, err
	}

	return &Combined{Table: table, Metadata: c.Metadata, Taxonomy: tax, Tree: nil}, nil
}
