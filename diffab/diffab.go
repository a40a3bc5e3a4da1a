// Package diffab tests features for differential abundance between sample
// groups: median-of-ratios size factors, per-feature negative-binomial GLM
// fits with locally shrunk dispersions, Wald tests against a reference
// level, and Benjamini-Hochberg correction.
package diffab

import (
	"fmt"
	"io"
	"math"

	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/dataset"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Options tunes the GLM fit. The zero value picks the defaults.
type Options struct {
	MaxIterations int     // IRLS iteration cap; default 100
	Tolerance     float64 // coefficient-step convergence bound; default 1e-6
}

func (o Options) withDefaults() Options {
	if o.MaxIterations == 0 {
		o.MaxIterations = 100
	}
	if o.Tolerance == 0 {
		o.Tolerance = 1e-6
	}
	return o
}

// Comparison is one tested (feature, level) pair: the level's log2 fold
// change versus the reference level. The intercept is never reported as a
// comparison.
type Comparison struct {
	FeatureID      string
	Taxon          string
	Level          string
	BaseMean       float64
	Log2FoldChange float64
	StdErr         float64 // on the log2 scale
	PValue         float64
	AdjustedP      float64
	Dispersion     float64
}

// Result is a completed differential-abundance run. RunID and the echoed
// inputs make the output self-describing when written to disk.
type Result struct {
	RunID          string
	Column         string
	ReferenceLevel string
	Levels         []string // non-reference levels, comparison order
	Options        Options
	SizeFactors    map[string]float64
	Comparisons    []Comparison // grouped by feature, then by level
}

// Run fits one negative-binomial GLM per feature over the categorical
// grouping column and reports each non-reference level against
// referenceLevel. Multi-level columns yield one comparison per non-reference
// level per feature. Adjusted p-values are Benjamini-Hochberg, corrected
// within each level's set of features.
//
// Samples with a missing value in the grouping column are rejected rather
// than silently excluded; filter them away first. A feature whose fit does
// not converge aborts the run with a StatisticalFitError.
func Run(c *dataset.Combined, column, referenceLevel string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	if !c.Metadata.HasColumn(column) {
		return nil, &ampliseq.FormatError{Problem: "metadata has no column " + column}
	}

	sampleIDs := c.Table.SampleIDs()
	for _, id := range sampleIDs {
		if !c.Metadata.String(id, column).Valid {
			return nil, &ampliseq.PreconditionError{
				Op:      "diffab.Run",
				Problem: "sample " + id + " has no value for column " + column + "; filter such samples before testing",
			}
		}
	}

	levels := c.Metadata.Levels(column)
	if len(levels) < 2 {
		return nil, &ampliseq.PreconditionError{Op: "diffab.Run", Problem: "column " + column + " has fewer than two levels"}
	}
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
		return nil, &ampliseq.PreconditionError{Op: "diffab.Run", Problem: "reference level " + referenceLevel + " does not occur in column " + column}
	}

	n := len(sampleIDs)
	p := 1 + len(testLevels)

	design := mat.NewDense(n, p, nil)
	groups := make([][]int, len(levels))
	levelIndex := make(map[string]int, len(levels))
	for i, l := range levels {
		levelIndex[l] = i
	}
	for j, id := range sampleIDs {
		design.Set(j, 0, 1)
		value := c.Metadata.String(id, column).String
		for k, l := range testLevels {
			if value == l {
				design.Set(j, 1+k, 1)
			}
		}
		gi := levelIndex[value]
		groups[gi] = append(groups[gi], j)
	}

	factors, err := sizeFactors(c.Table)
	if err != nil {
		return nil, err
	}
	offsets := make([]float64, n)
	for j, s := range factors {
		offsets[j] = math.Log(s)
	}

	featureIDs := c.Table.FeatureIDs()
	nFeatures := len(featureIDs)

	baseMeans := make([]float64, nFeatures)
	rawDisp := make([]float64, nFeatures)
	normCounts := make([][]float64, nFeatures)
	for i := 0; i < nFeatures; i++ {
		norm := make([]float64, n)
		var mean float64
		for j := 0; j < n; j++ {
			norm[j] = float64(c.Table.Count(i, j)) / factors[j]
			mean += norm[j]
		}
		normCounts[i] = norm
		baseMeans[i] = mean / float64(n)
		rawDisp[i] = momDispersion(norm, groups)
	}
	dispersions := localDispersions(rawDisp, baseMeans)

	normal := distuv.UnitNormal
	ln2 := math.Ln2

	result := &Result{
		RunID:          uuid.New().String(),
		Column:         column,
		ReferenceLevel: referenceLevel,
		Levels:         testLevels,
		Options:        opts,
		SizeFactors:    make(map[string]float64, n),
	}
	for j, id := range sampleIDs {
		result.SizeFactors[id] = factors[j]
	}

	counts := make([]float64, n)
	rawP := make([][]float64, len(testLevels)) // per level, per feature
	for k := range rawP {
		rawP[k] = make([]float64, nFeatures)
	}
	comparisons := make([]Comparison, 0, nFeatures*len(testLevels))

	for i, featureID := range featureIDs {
		for j := 0; j < n; j++ {
			counts[j] = float64(c.Table.Count(i, j))
		}

		fit := fitNBGLM(counts, design, offsets, dispersions[i], opts.MaxIterations, opts.Tolerance)
		if !fit.converged {
			return nil, &ampliseq.StatisticalFitError{
				Feature: featureID,
				Problem: fmt.Sprintf("IRLS did not converge in %d iterations", opts.MaxIterations),
			}
		}

		taxon := ""
		if c.Taxonomy != nil {
			if l, ok := c.Taxonomy.Lineage(featureID); ok {
				taxon = l.String()
			}
		}

		for k, level := range testLevels {
			beta := fit.beta[1+k]
			se := fit.stderr[1+k]

			var pValue float64
			if se > 0 && !math.IsNaN(se) {
				z := beta / se
				pValue = 2 * normal.Survival(math.Abs(z))
			} else {
				pValue = 1
			}
			rawP[k][i] = pValue

			comparisons = append(comparisons, Comparison{
				FeatureID:      featureID,
				Taxon:          taxon,
				Level:          level,
				BaseMean:       baseMeans[i],
				Log2FoldChange: beta / ln2,
				StdErr:         se / ln2,
				PValue:         pValue,
				Dispersion:     dispersions[i],
			})
		}
	}

	// FDR correction within each level's family of tests.
	for k := range testLevels {
		adj := benjaminiHochberg(rawP[k])
		for i := 0; i < nFeatures; i++ {
			comparisons[i*len(testLevels)+k].AdjustedP = adj[i]
		}
	}

	result.Comparisons = comparisons
	return result, nil
}

// Significant returns the comparisons whose FDR-adjusted p-value is below
// alpha, preserving order.
func (r *Result) Significant(alpha float64) []Comparison {
	var out []Comparison
	for _, c := range r.Comparisons {
		if c.AdjustedP < alpha {
			out = append(out, c)
		}
	}
	return out
}

// WriteTSV writes the comparisons as tab-delimited text with a provenance
// header comment.
func (r *Result) WriteTSV(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# run %s: %s vs reference %s\n", r.RunID, r.Column, r.ReferenceLevel); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "feature_id\ttaxon\tlevel\tbase_mean\tlog2_fold_change\tlfc_se\tp_value\tp_adjusted\tdispersion"); err != nil {
		return err
	}
	for _, c := range r.Comparisons {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\n",
			c.FeatureID, c.Taxon, c.Level, c.BaseMean, c.Log2FoldChange, c.StdErr, c.PValue, c.AdjustedP, c.Dispersion); err != nil {
			return err
		}
	}
	return nil
}
