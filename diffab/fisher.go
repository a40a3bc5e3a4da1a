package diffab

import (
	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/dataset"
	fet "github.com/glycerine/golang-fisher-exact"
	"github.com/google/uuid"
)

// PresenceComparison is one feature's presence/absence test of a level
// against the reference level.
type PresenceComparison struct {
	FeatureID      string
	Taxon          string
	Level          string
	PresentInLevel int
	AbsentInLevel  int
	PresentInRef   int
	AbsentInRef    int
	PValue         float64 // two-sided Fisher exact
	AdjustedP      float64
}

// PresenceResult is a completed presence/absence run.
type PresenceResult struct {
	RunID          string
	Column         string
	ReferenceLevel string
	Comparisons    []PresenceComparison
}

// FisherPresence tests, feature by feature, whether detection (count > 0)
// differs between each non-reference level and the reference level, with a
// two-sided Fisher exact test on the 2x2 presence table. The count-based
// GLM in Run is the primary analysis; this is its sparse-data companion,
// sensitive to taxa that appear and disappear rather than shift in
// abundance.
//
// Features detected in fewer than minPrevalence samples overall are skipped:
// a taxon seen once cannot support a presence comparison.
func FisherPresence(c *dataset.Combined, column, referenceLevel string, minPrevalence int) (*PresenceResult, error) {
	if !c.Metadata.HasColumn(column) {
		return nil, &ampliseq.FormatError{Problem: "metadata has no column " + column}
	}

	sampleIDs := c.Table.SampleIDs()
	levels := c.Metadata.Levels(column)

	hasRef := false
	var testLevels []string
	for _, l := range levels {
		if l == referenceLevel {
			hasRef = true
			continue
		}
		testLevels = append(testLevels, l)
	}
	if !hasRef {
		return nil, &ampliseq.PreconditionError{Op: "diffab.FisherPresence", Problem: "reference level " + referenceLevel + " does not occur in column " + column}
	}
	if len(testLevels) == 0 {
		return nil, &ampliseq.PreconditionError{Op: "diffab.FisherPresence", Problem: "column " + column + " has no non-reference level"}
	}

	// Sample columns per level.
	refCols := make([]int, 0, len(sampleIDs))
	levelCols := make(map[string][]int, len(testLevels))
	for j, id := range sampleIDs {
		v := c.Metadata.String(id, column)
		if !v.Valid {
			return nil, &ampliseq.PreconditionError{
				Op:      "diffab.FisherPresence",
				Problem: "sample " + id + " has no value for column " + column + "; filter such samples before testing",
			}
		}
		if v.String == referenceLevel {
			refCols = append(refCols, j)
		} else {
			levelCols[v.String] = append(levelCols[v.String], j)
		}
	}
	if len(refCols) == 0 {
		return nil, &ampliseq.PreconditionError{Op: "diffab.FisherPresence", Problem: "no sample carries the reference level"}
	}

	result := &PresenceResult{
		RunID:          uuid.New().String(),
		Column:         column,
		ReferenceLevel: referenceLevel,
	}

	presentIn := func(i int, cols []int) int {
		n := 0
		for _, j := range cols {
			if c.Table.Count(i, j) > 0 {
				n++
			}
		}
		return n
	}

	for _, level := range testLevels {
		cols := levelCols[level]

		var rows []PresenceComparison
		var rawP []float64
		for i, featureID := range c.Table.FeatureIDs() {
			prevalence := presentIn(i, refCols) + presentIn(i, cols)
			if prevalence < minPrevalence {
				continue
			}

			pl := presentIn(i, cols)
			pr := presentIn(i, refCols)
			al := len(cols) - pl
			ar := len(refCols) - pr

			_, _, _, twop := fet.FisherExactTest(pl, al, pr, ar)

			taxon := ""
			if c.Taxonomy != nil {
				if l, ok := c.Taxonomy.Lineage(featureID); ok {
					taxon = l.String()
				}
			}

			rows = append(rows, PresenceComparison{
				FeatureID:      featureID,
				Taxon:          taxon,
				Level:          level,
				PresentInLevel: pl,
				AbsentInLevel:  al,
				PresentInRef:   pr,
				AbsentInRef:    ar,
				PValue:         twop,
			})
			rawP = append(rawP, twop)
		}

		adj := benjaminiHochberg(rawP)
		for i := range rows {
			rows[i].AdjustedP = adj[i]
		}
		result.Comparisons = append(result.Comparisons, rows...)
	}

	return result, nil
}
