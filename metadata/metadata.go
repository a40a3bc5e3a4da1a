// Package metadata reads and queries per-sample study metadata: the
// tab-separated mapping file keyed by sample identifier that accompanies
// every amplicon sequencing run.
package metadata

import (
	"sort"
	"strconv"

	"github.com/ampliomics/ampliseq"
	"gopkg.in/guregu/null.v3"
)

// Table holds one row of covariates per sample. The sample identifier column
// is positional (first column); all other columns are stored as strings with
// typed accessors, since mapping files mix categorical and numeric
// covariates freely and mark missing values with empty cells.
type Table struct {
	sampleIDs []string
	columns   []string
	values    map[string]map[string]string // sample -> column -> raw value

	sampleIndex map[string]int
}

func newTable(sampleIDs, columns []string) *Table {
	t := &Table{
		sampleIDs:   sampleIDs,
		columns:     columns,
		values:      make(map[string]map[string]string, len(sampleIDs)),
		sampleIndex: make(map[string]int, len(sampleIDs)),
	}
	for i, id := range sampleIDs {
		t.sampleIndex[id] = i
		t.values[id] = make(map[string]string, len(columns))
	}
	return t
}

func (t *Table) NumSamples() int { return len(t.sampleIDs) }

// SampleIDs returns the sample identifiers in file order.
func (t *Table) SampleIDs() []string { return append([]string{}, t.sampleIDs...) }

// Columns returns the covariate column names in file order.
func (t *Table) Columns() []string { return append([]string{}, t.columns...) }

func (t *Table) HasSample(id string) bool {
	_, ok := t.sampleIndex[id]
	return ok
}

func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// String returns the raw value of a covariate. The result is invalid when
// the sample is unknown or the cell is empty.
func (t *Table) String(sampleID, column string) null.String {
	row, ok := t.values[sampleID]
	if !ok {
		return null.String{}
	}
	v, ok := row[column]
	if !ok || v == "" {
		return null.String{}
	}
	return null.StringFrom(v)
}

// Float parses a covariate as a number. Invalid when the sample is unknown,
// the cell is empty, or the value is not numeric.
func (t *Table) Float(sampleID, column string) null.Float {
	s := t.String(sampleID, column)
	if !s.Valid {
		return null.Float{}
	}
	f, err := strconv.ParseFloat(s.String, 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// Levels returns the distinct non-empty values of a categorical column,
// sorted for stable iteration.
func (t *Table) Levels(column string) []string {
	seen := make(map[string]struct{})
	for _, id := range t.sampleIDs {
		if v := t.values[id][column]; v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Predicate tests a single raw covariate value.
type Predicate func(value string) bool

// Equals matches cells exactly equal to v.
func Equals(v string) Predicate {
	return func(value string) bool { return value == v }
}

// NotEquals matches non-empty cells different from v.
func NotEquals(v string) Predicate {
	return func(value string) bool { return value != "" && value != v }
}

// In matches cells equal to any of vs.
func In(vs ...string) Predicate {
	set := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		set[v] = struct{}{}
	}
	return func(value string) bool {
		_, ok := set[value]
		return ok
	}
}

// Matching returns the sample identifiers, in table order, whose value in
// the named column satisfies the predicate.
func (t *Table) Matching(column string, pred Predicate) ([]string, error) {
	if !t.HasColumn(column) {
		return nil, &ampliseq.FormatError{Problem: "metadata has no column " + column}
	}
	var out []string
	for _, id := range t.sampleIDs {
		if pred(t.values[id][column]) {
			out = append(out, id)
		}
	}
	return out, nil
}

// Keep returns a new Table restricted to the given samples, in the given
// order. Unknown identifiers are an error.
func (t *Table) Keep(sampleIDs []string) (*Table, error) {
	for _, id := range sampleIDs {
		if !t.HasSample(id) {
			return nil, &ampliseq.FormatError{Problem: "unknown sample identifier " + id}
		}
	}

	out := newTable(append([]string{}, sampleIDs...), append([]string{}, t.columns...))
	for _, id := range sampleIDs {
		for col, v := range t.values[id] {
			out.values[id][col] = v
		}
	}
	return out, nil
}
