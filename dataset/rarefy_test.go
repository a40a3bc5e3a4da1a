package dataset

import (
	"math/rand"
	"testing"

	"github.com/ampliomics/ampliseq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRarefyDepthAndDeterminism(t *testing.T) {
	c := testCombined(t)
	const target = 500

	first, report, err := c.Rarefy(target, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	// S3 has depth 10 and must be dropped, loudly.
	require.Len(t, report.Dropped, 1)
	assert.Equal(t, "S3", report.Dropped[0].SampleID)
	assert.EqualValues(t, 10, report.Dropped[0].Depth)
	assert.Equal(t, 2, report.KeptSamples)
	assert.NotContains(t, first.Table.SampleIDs(), "S3")

	// Every surviving sample sums to exactly the target depth.
	for j, depth := range first.Table.SampleDepths() {
		assert.EqualValues(t, target, depth, "sample %s", first.Table.SampleIDs()[j])
	}

	// Same seed, same input: identical counts.
	second, _, err := c.Rarefy(target, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.Equal(t, first.Table.FeatureIDs(), second.Table.FeatureIDs())
	for i := range first.Table.FeatureIDs() {
		assert.Equal(t, first.Table.FeatureCounts(i), second.Table.FeatureCounts(i))
	}

	// Counts never exceed the originals: sampling is without replacement.
	for _, fid := range first.Table.FeatureIDs() {
		for _, sid := range first.Table.SampleIDs() {
			v, _ := first.Table.CountByID(fid, sid)
			orig, _ := c.Table.CountByID(fid, sid)
			assert.LessOrEqual(t, v, orig)
		}
	}
}

func TestRarefyPreconditions(t *testing.T) {
	c := testCombined(t)

	_, _, err := c.Rarefy(0, rand.New(rand.NewSource(1)))
	assert.True(t, ampliseq.IsPreconditionError(err))

	_, _, err = c.Rarefy(100, nil)
	assert.True(t, ampliseq.IsPreconditionError(err))

	// Deeper than every sample: nothing can be rarefied.
	_, _, err = c.Rarefy(1<<40, rand.New(rand.NewSource(1)))
	assert.True(t, ampliseq.IsPreconditionError(err))
}

func TestRarefyAtExactDepth(t *testing.T) {
	c := testCombined(t)

	// S2's depth is exactly 1000, so rarefying to 1000 must keep all of
	// S2's reads untouched while S1 is subsampled and S3 is dropped.
	out, report, err := c.Rarefy(1000, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, out.Table.SampleIDs())
	require.Len(t, report.Dropped, 1)

	for _, fid := range out.Table.FeatureIDs() {
		v, _ := out.Table.CountByID(fid, "S2")
		orig, _ := c.Table.CountByID(fid, "S2")
		assert.Equal(t, orig, v, "feature %s in S2", fid)
	}
}
