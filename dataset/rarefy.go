package dataset

import (
	"fmt"
	"math/rand"

	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/biom"
)

// DroppedSample records a sample excluded from rarefaction because its
// depth was below the target.
type DroppedSample struct {
	SampleID string
	Depth    int64
}

// RarefactionReport says what a rarefaction did: the target depth, the
// samples kept, and the samples dropped for being too shallow. Drops are
// reported by value rather than logged so callers can fail, warn, or
// tabulate as they see fit without ever missing them.
type RarefactionReport struct {
	TargetDepth int64
	KeptSamples int
	Dropped     []DroppedSample
}

// Rarefy subsamples every sample down to exactly depth counts without
// replacement (a multivariate hypergeometric draw per sample). Samples
// shallower than the target cannot be rarefied and are dropped from the
// result; the report lists them.
//
// Randomness comes only from the supplied generator: the same seed and the
// same input reproduce the same output exactly. Callers should dedicate a
// generator to the call (rand.New(rand.NewSource(seed))) rather than share
// one whose state other code advances.
func (c *Combined) Rarefy(depth int64, rng *rand.Rand) (*Combined, *RarefactionReport, error) {
	if depth <= 0 {
		return nil, nil, &ampliseq.PreconditionError{Op: "Rarefy", Problem: fmt.Sprintf("target depth %d is not positive", depth)}
	}
	if rng == nil {
		return nil, nil, &ampliseq.PreconditionError{Op: "Rarefy", Problem: "nil random generator"}
	}

	report := &RarefactionReport{TargetDepth: depth}

	var keep []string
	for j, id := range c.Table.SampleIDs() {
		if d := c.Table.SampleDepth(j); d < depth {
			report.Dropped = append(report.Dropped, DroppedSample{SampleID: id, Depth: d})
		} else {
			keep = append(keep, id)
		}
	}
	if len(keep) == 0 {
		return nil, nil, &ampliseq.PreconditionError{Op: "Rarefy", Problem: fmt.Sprintf("every sample is shallower than the target depth %d", depth)}
	}
	report.KeptSamples = len(keep)

	kept, err := c.Table.Subset(c.Table.FeatureIDs(), keep)
	if err != nil {
		return nil, nil, err
	}

	nFeatures := kept.NumFeatures()
	counts := make([][]int64, nFeatures)
	for i := range counts {
		counts[i] = make([]int64, kept.NumSamples())
	}

	for j := 0; j < kept.NumSamples(); j++ {
		sample := kept.SampleCounts(j)
		drawn := subsampleWithoutReplacement(sample, depth, rng)
		for i, v := range drawn {
			counts[i][j] = v
		}
	}

	// Rarefaction routinely zeroes out rare features; drop the all-zero
	// rows so downstream feature-wise statistics see only observed taxa.
	var features []string
	var rows [][]int64
	for i, id := range kept.FeatureIDs() {
		var total int64
		for _, v := range counts[i] {
			total += v
		}
		if total > 0 {
			features = append(features, id)
			rows = append(rows, counts[i])
		}
	}

	table, err := biom.NewTable(features, kept.SampleIDs(), rows)
	if err != nil {
		return nil, nil, err
	}

	out, err := c.derive(table)
	if err != nil {
		return nil, nil, err
	}
	return out, report, nil
}

// subsampleWithoutReplacement draws exactly depth reads from the count
// vector, treating each read as a distinct unit. Implemented as a partial
// Fisher-Yates shuffle over the flattened read list, so only depth draws
// are consumed from the generator.
func subsampleWithoutReplacement(counts []int64, depth int64, rng *rand.Rand) []int64 {
	var total int64
	for _, v := range counts {
		total += v
	}

	// Flatten to one feature index per read.
	reads := make([]int32, 0, total)
	for i, v := range counts {
		for k := int64(0); k < v; k++ {
			reads = append(reads, int32(i))
		}
	}

	out := make([]int64, len(counts))
	n := len(reads)
	for d := int64(0); d < depth; d++ {
		pick := int(d) + rng.Intn(n-int(d))
		reads[d], reads[pick] = reads[pick], reads[d]
		out[reads[d]]++
	}
	return out
}
