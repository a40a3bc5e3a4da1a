package biom

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/ampliomics/ampliseq"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"
)

// Rank is a level of the standard seven-rank taxonomy.
type Rank int

const (
	Kingdom Rank = iota
	Phylum
	Class
	Order
	Family
	Genus
	Species

	NumRanks = 7
)

var rankNames = [NumRanks]string{"Kingdom", "Phylum", "Class", "Order", "Family", "Genus", "Species"}

// Greengenes-style rank prefixes, e.g. "k__Bacteria".
var rankPrefixes = [NumRanks]string{"k__", "p__", "c__", "o__", "f__", "g__", "s__"}

func (r Rank) String() string {
	if r < Kingdom || r > Species {
		return "Unknown"
	}
	return rankNames[r]
}

// ParseRank maps a rank name (case-insensitive) to its Rank.
func ParseRank(name string) (Rank, error) {
	for i, n := range rankNames {
		if strings.EqualFold(name, n) {
			return Rank(i), nil
		}
	}
	return 0, &ampliseq.FormatError{Problem: "unknown taxonomic rank " + name}
}

// Lineage is an ordered tuple of rank values from Kingdom down to Species.
// An empty string means the feature is unassigned at that rank.
type Lineage [NumRanks]string

// ParseLineage parses a semicolon-delimited lineage string, accepting both
// bare names and Greengenes-style prefixed names ("k__Bacteria"). Prefix
// markers with no value ("s__") count as unassigned.
func ParseLineage(s string) Lineage {
	var l Lineage
	for i, part := range strings.Split(s, ";") {
		if i >= NumRanks {
			break
		}
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, rankPrefixes[i])
		l[i] = part
	}
	return l
}

// At returns the value at the given rank; empty means unassigned.
func (l Lineage) At(r Rank) string { return l[r] }

// AssignedAt reports whether the lineage carries a value at the given rank.
func (l Lineage) AssignedAt(r Rank) bool { return l[r] != "" }

// Truncate returns the lineage with every rank below r cleared. Used when
// aggregating features at a coarser rank.
func (l Lineage) Truncate(r Rank) Lineage {
	var out Lineage
	copy(out[:r+1], l[:r+1])
	return out
}

// Key returns a canonical string for grouping: the prefixed lineage down to
// and including rank r.
func (l Lineage) Key(r Rank) string {
	parts := make([]string, 0, int(r)+1)
	for i := Kingdom; i <= r; i++ {
		parts = append(parts, rankPrefixes[i]+l[i])
	}
	return strings.Join(parts, "; ")
}

// String renders the lineage with Greengenes prefixes, omitting trailing
// unassigned ranks.
func (l Lineage) String() string {
	last := -1
	for i := range l {
		if l[i] != "" {
			last = i
		}
	}
	parts := make([]string, 0, last+1)
	for i := 0; i <= last; i++ {
		parts = append(parts, rankPrefixes[i]+l[i])
	}
	return strings.Join(parts, "; ")
}

// Taxonomy maps feature identifiers to lineages, with the classifier's
// confidence when available.
type Taxonomy struct {
	lineages   map[string]Lineage
	confidence map[string]float64
}

func NewTaxonomy() *Taxonomy {
	return &Taxonomy{
		lineages:   make(map[string]Lineage),
		confidence: make(map[string]float64),
	}
}

func (t *Taxonomy) Set(featureID string, l Lineage) {
	t.lineages[featureID] = l
}

// Lineage returns the lineage for a feature; ok is false when the feature
// has no assignment at all.
func (t *Taxonomy) Lineage(featureID string) (Lineage, bool) {
	l, ok := t.lineages[featureID]
	return l, ok
}

// Confidence returns the classifier confidence for a feature's assignment.
func (t *Taxonomy) Confidence(featureID string) (float64, bool) {
	c, ok := t.confidence[featureID]
	return c, ok
}

func (t *Taxonomy) Len() int { return len(t.lineages) }

// FeatureIDs returns the assigned feature identifiers in map order.
func (t *Taxonomy) FeatureIDs() []string {
	out := make([]string, 0, len(t.lineages))
	for id := range t.lineages {
		out = append(out, id)
	}
	return out
}

// Subset returns a Taxonomy restricted to the given features. Features with
// no assignment are skipped rather than invented.
func (t *Taxonomy) Subset(featureIDs []string) *Taxonomy {
	out := NewTaxonomy()
	for _, id := range featureIDs {
		if l, ok := t.lineages[id]; ok {
			out.lineages[id] = l
		}
		if c, ok := t.confidence[id]; ok {
			out.confidence[id] = c
		}
	}
	return out
}

// taxonomyRow mirrors one line of a QIIME2 taxonomy.tsv export.
type taxonomyRow struct {
	FeatureID  string     `csv:"Feature ID"`
	Taxon      string     `csv:"Taxon"`
	Confidence null.Float `csv:"Confidence"`
}

// ParseTaxonomy reads a QIIME2 taxonomy.tsv (Feature ID / Taxon /
// Confidence, tab-delimited) from r.
func ParseTaxonomy(r io.Reader) (*Taxonomy, error) {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		cr := csv.NewReader(in)
		cr.Comma = '\t'
		cr.LazyQuotes = true
		return cr
	})

	var rows []*taxonomyRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, pfx.Err(err)
	}

	out := NewTaxonomy()
	for _, row := range rows {
		if row.FeatureID == "" {
			return nil, &ampliseq.FormatError{Problem: "taxonomy row with empty feature identifier"}
		}
		if _, dup := out.lineages[row.FeatureID]; dup {
			return nil, &ampliseq.FormatError{Problem: "duplicate taxonomy assignment for feature " + row.FeatureID}
		}
		out.lineages[row.FeatureID] = ParseLineage(row.Taxon)
		if row.Confidence.Valid {
			out.confidence[row.FeatureID] = row.Confidence.Float64
		}
	}

	return out, nil
}

// LoadTaxonomy reads a possibly-compressed taxonomy.tsv from disk.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	r, err := ampliseq.OpenMaybeCompressed(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer r.Close()

	tax, err := ParseTaxonomy(r)
	if err != nil {
		if fe, ok := err.(*ampliseq.FormatError); ok && fe.File == "" {
			fe.File = path
		}
		return nil, err
	}
	return tax, nil
}
