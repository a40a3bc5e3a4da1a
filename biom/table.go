// Package biom reads feature tables and taxonomy assignments exported from
// QIIME2 (BIOM TSV exports and taxonomy.tsv) into dense in-memory tables.
package biom

import (
	"fmt"

	"github.com/ampliomics/ampliseq"
)

// Table is a dense matrix of non-negative integer counts with rows keyed by
// feature (ASV) identifier and columns keyed by sample identifier. A column
// sum is the sample's sequencing depth. Tables are immutable once built;
// transformations produce new Tables.
type Table struct {
	featureIDs []string
	sampleIDs  []string
	counts     [][]int64 // rows = features, cols = samples

	featureIndex map[string]int
	sampleIndex  map[string]int
}

// NewTable validates and assembles a Table. The counts slice is row-major
// (one inner slice per feature) and is copied, not retained.
func NewTable(featureIDs, sampleIDs []string, counts [][]int64) (*Table, error) {
	if len(counts) != len(featureIDs) {
		return nil, &ampliseq.FormatError{Problem: fmt.Sprintf("count matrix has %d rows but %d feature identifiers", len(counts), len(featureIDs))}
	}

	t := &Table{
		featureIDs:   append([]string{}, featureIDs...),
		sampleIDs:    append([]string{}, sampleIDs...),
		counts:       make([][]int64, len(featureIDs)),
		featureIndex: make(map[string]int, len(featureIDs)),
		sampleIndex:  make(map[string]int, len(sampleIDs)),
	}

	for i, id := range featureIDs {
		if _, seen := t.featureIndex[id]; seen {
			return nil, &ampliseq.FormatError{Problem: "duplicate feature identifier " + id}
		}
		t.featureIndex[id] = i
	}
	for j, id := range sampleIDs {
		if _, seen := t.sampleIndex[id]; seen {
			return nil, &ampliseq.FormatError{Problem: "duplicate sample identifier " + id}
		}
		t.sampleIndex[id] = j
	}

	for i, row := range counts {
		if len(row) != len(sampleIDs) {
			return nil, &ampliseq.FormatError{Problem: fmt.Sprintf("feature %s has %d counts but table has %d samples", featureIDs[i], len(row), len(sampleIDs))}
		}
		for j, v := range row {
			if v < 0 {
				return nil, &ampliseq.FormatError{Problem: fmt.Sprintf("negative count %d for feature %s in sample %s", v, featureIDs[i], sampleIDs[j])}
			}
		}
		t.counts[i] = append([]int64{}, row...)
	}

	return t, nil
}

func (t *Table) NumFeatures() int { return len(t.featureIDs) }
func (t *Table) NumSamples() int  { return len(t.sampleIDs) }

// FeatureIDs returns the row identifiers in table order.
func (t *Table) FeatureIDs() []string { return append([]string{}, t.featureIDs...) }

// SampleIDs returns the column identifiers in table order.
func (t *Table) SampleIDs() []string { return append([]string{}, t.sampleIDs...) }

func (t *Table) HasFeature(id string) bool {
	_, ok := t.featureIndex[id]
	return ok
}

func (t *Table) HasSample(id string) bool {
	_, ok := t.sampleIndex[id]
	return ok
}

// Count returns the count at feature row i, sample column j.
func (t *Table) Count(i, j int) int64 { return t.counts[i][j] }

// CountByID looks up a count by identifiers; ok is false when either
// identifier is not present.
func (t *Table) CountByID(featureID, sampleID string) (v int64, ok bool) {
	i, fok := t.featureIndex[featureID]
	j, sok := t.sampleIndex[sampleID]
	if !fok || !sok {
		return 0, false
	}
	return t.counts[i][j], true
}

// SampleCounts returns a copy of the count vector for sample column j.
func (t *Table) SampleCounts(j int) []int64 {
	out := make([]int64, len(t.featureIDs))
	for i := range t.counts {
		out[i] = t.counts[i][j]
	}
	return out
}

// FeatureCounts returns a copy of the count vector for feature row i.
func (t *Table) FeatureCounts(i int) []int64 {
	return append([]int64{}, t.counts[i]...)
}

// SampleDepth is the sequencing depth (column sum) of sample column j.
func (t *Table) SampleDepth(j int) int64 {
	var sum int64
	for i := range t.counts {
		sum += t.counts[i][j]
	}
	return sum
}

// SampleDepths returns each sample's sequencing depth in column order.
func (t *Table) SampleDepths() []int64 {
	out := make([]int64, len(t.sampleIDs))
	for j := range t.sampleIDs {
		out[j] = t.SampleDepth(j)
	}
	return out
}

// FeatureTotal is the row sum of feature row i across all samples.
func (t *Table) FeatureTotal(i int) int64 {
	var sum int64
	for _, v := range t.counts[i] {
		sum += v
	}
	return sum
}

// GrandTotal is the sum of every count in the table.
func (t *Table) GrandTotal() int64 {
	var sum int64
	for i := range t.counts {
		for _, v := range t.counts[i] {
			sum += v
		}
	}
	return sum
}

// Subset returns a new Table restricted to the given identifiers, in the
// given order. Unknown identifiers are an error; empty selections are
// rejected because every downstream computation requires at least one
// feature and one sample.
func (t *Table) Subset(featureIDs, sampleIDs []string) (*Table, error) {
	if len(featureIDs) == 0 {
		return nil, &ampliseq.PreconditionError{Op: "biom.Subset", Problem: "selection contains zero features"}
	}
	if len(sampleIDs) == 0 {
		return nil, &ampliseq.PreconditionError{Op: "biom.Subset", Problem: "selection contains zero samples"}
	}

	cols := make([]int, len(sampleIDs))
	for j, id := range sampleIDs {
		idx, ok := t.sampleIndex[id]
		if !ok {
			return nil, &ampliseq.FormatError{Problem: "unknown sample identifier " + id}
		}
		cols[j] = idx
	}

	counts := make([][]int64, len(featureIDs))
	for i, id := range featureIDs {
		idx, ok := t.featureIndex[id]
		if !ok {
			return nil, &ampliseq.FormatError{Problem: "unknown feature identifier " + id}
		}
		row := make([]int64, len(cols))
		for j, c := range cols {
			row[j] = t.counts[idx][c]
		}
		counts[i] = row
	}

	return NewTable(featureIDs, sampleIDs, counts)
}
