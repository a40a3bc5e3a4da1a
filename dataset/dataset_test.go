package dataset

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/biom"
	"github.com/ampliomics/ampliseq/metadata"
	"github.com/ampliomics/ampliseq/newick"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCombined builds a small four-member dataset used across the package's
// tests: three features in three samples with taxonomy and a binary tree.
func testCombined(t *testing.T) *Combined {
	t.Helper()

	table, err := biom.NewTable(
		[]string{"ASV1", "ASV2", "ASV3"},
		[]string{"S1", "S2", "S3"},
		[][]int64{
			{1000, 200, 5},
			{500, 700, 3},
			{100, 100, 2},
		},
	)
	require.NoError(t, err)

	meta, err := metadata.Parse(strings.NewReader(
		"#SampleID\tsite\tsubject\nS1\tgut\ta\nS2\tgut\tb\nS3\tpalm\ta\n"))
	require.NoError(t, err)

	tax := biom.NewTaxonomy()
	tax.Set("ASV1", biom.ParseLineage("k__Bacteria; p__Firmicutes; c__Bacilli; o__Lactobacillales; f__Streptococcaceae"))
	tax.Set("ASV2", biom.ParseLineage("k__Bacteria; p__Firmicutes; c__Bacilli; o__Lactobacillales; f__Lactobacillaceae"))
	tax.Set("ASV3", biom.ParseLineage("k__Bacteria; p__Bacteroidetes"))

	tree, err := newick.Parse("((ASV1:0.1,ASV2:0.2):0.3,ASV3:0.5);")
	require.NoError(t, err)

	c, err := New(table, meta, tax, tree)
	require.NoError(t, err)
	return c
}

func TestNewValidation(t *testing.T) {
	table, err := biom.NewTable([]string{"F1"}, []string{"S1", "S2"}, [][]int64{{1, 2}})
	require.NoError(t, err)

	metaMissing, err := metadata.Parse(strings.NewReader("#SampleID\tsite\nS1\tgut\n"))
	require.NoError(t, err)
	_, err = New(table, metaMissing, nil, nil)
	assert.True(t, ampliseq.IsFormatError(err), "sample missing from metadata: %v", err)

	meta, err := metadata.Parse(strings.NewReader("#SampleID\tsite\nS1\tgut\nS2\tgut\nS9\tgut\n"))
	require.NoError(t, err)

	// Extra metadata rows are fine; they are aligned away.
	c, err := New(table, meta, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Metadata.NumSamples())

	// A taxonomy that misses a table feature is not.
	tax := biom.NewTaxonomy()
	_, err = New(table, meta, tax, nil)
	assert.True(t, ampliseq.IsFormatError(err), "feature missing from taxonomy: %v", err)

	// A tree that misses a table feature is not.
	tree, err := newick.Parse("(X:1,Y:1);")
	require.NoError(t, err)
	_, err = New(table, meta, nil, tree)
	assert.True(t, ampliseq.IsFormatError(err), "feature missing from tree: %v", err)
}

func TestFilterSamplesByDepth(t *testing.T) {
	c := testCombined(t)

	filtered, err := c.FilterSamplesByDepth(1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, filtered.Table.SampleIDs())
	// Metadata follows the table.
	assert.Equal(t, 2, filtered.Metadata.NumSamples())

	_, err = c.FilterSamplesByDepth(1 << 40)
	assert.True(t, ampliseq.IsPreconditionError(err), "filtering away all samples: %v", err)
}

func TestFilterSamplesWhere(t *testing.T) {
	c := testCombined(t)

	gut, err := c.FilterSamplesWhere("site", metadata.Equals("gut"))
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, gut.Table.SampleIDs())

	_, err = c.FilterSamplesWhere("site", metadata.Equals("toe"))
	assert.True(t, ampliseq.IsPreconditionError(err))

	_, err = c.FilterSamplesWhere("no-such", metadata.Equals("gut"))
	assert.True(t, ampliseq.IsFormatError(err))
}

func TestFilterFeaturesByAbundance(t *testing.T) {
	c := testCombined(t)
	// Totals: ASV1=1205, ASV2=1203, ASV3=202; grand=2610.
	filtered, err := c.FilterFeaturesByAbundance(0.10)
	require.NoError(t, err)
	assert.Equal(t, []string{"ASV1", "ASV2"}, filtered.Table.FeatureIDs())

	// The tree is pruned along with the table.
	assert.ElementsMatch(t, []string{"ASV1", "ASV2"}, filtered.Tree.LeafNames())
	assert.Equal(t, 2, filtered.Taxonomy.Len())
}

func TestFilterIdempotence(t *testing.T) {
	c := testCombined(t)

	once, err := c.FilterSamplesByDepth(100)
	require.NoError(t, err)
	twice, err := once.FilterSamplesByDepth(100)
	require.NoError(t, err)
	assert.Equal(t, once.Table.SampleIDs(), twice.Table.SampleIDs())
	assert.Equal(t, once.Table.FeatureIDs(), twice.Table.FeatureIDs())

	onceF, err := c.FilterFeaturesByAbundance(0.05)
	require.NoError(t, err)
	twiceF, err := onceF.FilterFeaturesByAbundance(0.05)
	require.NoError(t, err)
	assert.Equal(t, onceF.Table.FeatureIDs(), twiceF.Table.FeatureIDs())
	for i := range onceF.Table.FeatureIDs() {
		assert.Equal(t, onceF.Table.FeatureCounts(i), twiceF.Table.FeatureCounts(i))
	}
}

// TestFilterScenario mirrors the shape of a reference run: 770 features in
// 34 samples, filtered to samples with at least 1000 reads and then to
// features above 0.05% relative abundance, should keep exactly the features
// constructed to pass.
func TestFilterScenario(t *testing.T) {
	const (
		nFeatures = 770
		nSamples  = 34
		nAbundant = 123
		nShallow  = 4
	)

	featureIDs := make([]string, nFeatures)
	counts := make([][]int64, nFeatures)
	for i := range featureIDs {
		featureIDs[i] = fmt.Sprintf("ASV%03d", i)
		counts[i] = make([]int64, nSamples)
	}
	sampleIDs := make([]string, nSamples)
	var metaRows strings.Builder
	metaRows.WriteString("#SampleID\tsite\n")
	for j := range sampleIDs {
		sampleIDs[j] = fmt.Sprintf("S%02d", j)
		fmt.Fprintf(&metaRows, "S%02d\tgut\n", j)
	}

	// The first nAbundant features get deep, even coverage; the rest get a
	// single read each. The last nShallow samples only receive the rare
	// reads, keeping them under the depth threshold.
	for i := 0; i < nAbundant; i++ {
		for j := 0; j < nSamples-nShallow; j++ {
			counts[i][j] = 100
		}
	}
	for i := nAbundant; i < nFeatures; i++ {
		counts[i][nSamples-1-(i%nShallow)] = 1
	}

	table, err := biom.NewTable(featureIDs, sampleIDs, counts)
	require.NoError(t, err)
	meta, err := metadata.Parse(strings.NewReader(metaRows.String()))
	require.NoError(t, err)
	c, err := New(table, meta, nil, nil)
	require.NoError(t, err)

	deep, err := c.FilterSamplesByDepth(1000)
	require.NoError(t, err)
	assert.Equal(t, nSamples-nShallow, deep.NumSamples())

	abundant, err := deep.FilterFeaturesByAbundance(0.0005)
	require.NoError(t, err)
	assert.Equal(t, nAbundant, abundant.NumFeatures())
}
