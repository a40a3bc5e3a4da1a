// Package dataset combines a feature table, sample metadata, taxonomy, and
// a phylogenetic tree into one identifier-consistent object, and provides
// the pure transformations (filtering, rarefaction, normalization,
// taxonomic aggregation) that an amplicon analysis chains together.
package dataset

import (
	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/biom"
	"github.com/ampliomics/ampliseq/metadata"
	"github.com/ampliomics/ampliseq/newick"
)

// Combined is the unit of analysis: a feature table plus its aligned
// metadata, taxonomy, and tree. Taxonomy and Tree may be nil; operations
// that need them fail with a PreconditionError instead of guessing.
//
// Combined values are immutable. Every transformation returns a new value
// with all four members subset consistently.
type Combined struct {
	Table    *biom.Table
	Metadata *metadata.Table
	Taxonomy *biom.Taxonomy
	Tree     *newick.Tree
}

// New cross-validates identifiers and assembles a Combined. Every table
// sample must appear in the metadata, every table feature must carry a
// taxonomy assignment (when taxonomy is given), and every table feature
// must be a tree leaf (when a tree is given). The metadata and tree are
// aligned down to exactly the table's identifiers, so a Combined never
// carries samples or leaves its table does not know about.
func New(table *biom.Table, meta *metadata.Table, tax *biom.Taxonomy, tree *newick.Tree) (*Combined, error) {
	if table == nil {
		return nil, &ampliseq.FormatError{Problem: "combined dataset requires a feature table"}
	}
	if meta == nil {
		return nil, &ampliseq.FormatError{Problem: "combined dataset requires sample metadata"}
	}

	for _, id := range table.SampleIDs() {
		if !meta.HasSample(id) {
			return nil, &ampliseq.FormatError{Problem: "sample " + id + " is in the feature table but not in the metadata"}
		}
	}
	alignedMeta, err := meta.Keep(table.SampleIDs())
	if err != nil {
		return nil, err
	}

	if tax != nil {
		for _, id := range table.FeatureIDs() {
			if _, ok := tax.Lineage(id); !ok {
				return nil, &ampliseq.FormatError{Problem: "feature " + id + " is in the feature table but has no taxonomy assignment"}
			}
		}
		tax = tax.Subset(table.FeatureIDs())
	}

	if tree != nil {
		tree, err = tree.Subset(table.FeatureIDs())
		if err != nil {
			return nil, err
		}
	}

	return &Combined{Table: table, Metadata: alignedMeta, Taxonomy: tax, Tree: tree}, nil
}

// derive rebuilds a Combined around a subset table, realigning the other
// three members.
func (c *Combined) derive(table *biom.Table) (*Combined, error) {
	meta, err := c.Metadata.Keep(table.SampleIDs())
	if err != nil {
		return nil, err
	}

	var tax *biom.Taxonomy
	if c.Taxonomy != nil {
		tax = c.Taxonomy.Subset(table.FeatureIDs())
	}

	var tree *newick.Tree
	if c.Tree != nil {
		tree, err = c.Tree.Subset(table.FeatureIDs())
		if err != nil {
			return nil, err
		}
	}

	return &Combined{Table: table, Metadata: meta, Taxonomy: tax, Tree: tree}, nil
}

func (c *Combined) NumFeatures() int { return c.Table.NumFeatures() }
func (c *Combined) NumSamples() int  { return c.Table.NumSamples() }
