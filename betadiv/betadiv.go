// Package betadiv computes pairwise between-sample dissimilarity matrices
// (Bray-Curtis, Jaccard, weighted UniFrac) from a combined dataset.
package betadiv

import (
	"math"

	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/dataset"
	"github.com/ampliomics/ampliseq/newick"
	"gonum.org/v1/gonum/mat"
)

// Metric selects a dissimilarity measure.
type Metric int

const (
	BrayCurtis Metric = iota
	Jaccard
	WeightedUniFrac
)

func (m Metric) String() string {
	switch m {
	case BrayCurtis:
		return "bray-curtis"
	case Jaccard:
		return "jaccard"
	case WeightedUniFrac:
		return "weighted-unifrac"
	}
	return "unknown"
}

// DistanceMatrix is a symmetric sample-by-sample dissimilarity matrix with
// its sample identifiers.
type DistanceMatrix struct {
	SampleIDs []string
	D         *mat.SymDense
}

func (d *DistanceMatrix) Len() int            { return len(d.SampleIDs) }
func (d *DistanceMatrix) At(i, j int) float64 { return d.D.At(i, j) }
func (d *DistanceMatrix) ID(i int) string     { return d.SampleIDs[i] }

// Matrix computes the pairwise distance matrix for the chosen metric.
// Weighted UniFrac additionally requires a strictly binary tree covering the
// table's features; a multifurcating tree is rejected rather than silently
// producing wrong distances. Zero-depth samples are rejected for every
// metric, since all three are undefined on an empty sample.
func Matrix(c *dataset.Combined, metric Metric) (*DistanceMatrix, error) {
	ids := c.Table.SampleIDs()
	depths := c.Table.SampleDepths()
	for j, depth := range depths {
		if depth == 0 {
			return nil, &ampliseq.PreconditionError{Op: "betadiv.Matrix", Problem: "sample " + ids[j] + " has zero total count"}
		}
	}

	n := len(ids)
	out := &DistanceMatrix{SampleIDs: ids, D: mat.NewSymDense(n, nil)}

	switch metric {
	case BrayCurtis, Jaccard:
		cols := make([][]int64, n)
		for j := 0; j < n; j++ {
			cols[j] = c.Table.SampleCounts(j)
		}
		for a := 0; a < n; a++ {
			for b := a + 1; b < n; b++ {
				var d float64
				if metric == BrayCurtis {
					d = brayCurtis(cols[a], cols[b])
				} else {
					d = jaccard(cols[a], cols[b])
				}
				out.D.SetSym(a, b, d)
			}
		}
		return out, nil

	case WeightedUniFrac:
		if c.Tree == nil {
			return nil, &ampliseq.PreconditionError{Op: "betadiv.Matrix", Problem: "weighted UniFrac requires a phylogenetic tree"}
		}
		if !c.Tree.IsBinary() {
			return nil, &ampliseq.PreconditionError{Op: "betadiv.Matrix", Problem: "weighted UniFrac requires a strictly binary tree; call ResolveMultifurcations first"}
		}
		return weightedUniFrac(c, out)
	}

	return nil, &ampliseq.PreconditionError{Op: "betadiv.Matrix", Problem: "unknown metric"}
}

func brayCurtis(x, y []int64) float64 {
	var shared, totalX, totalY int64
	for i := range x {
		if x[i] < y[i] {
			shared += x[i]
		} else {
			shared += y[i]
		}
		totalX += x[i]
		totalY += y[i]
	}
	return 1 - 2*float64(shared)/float64(totalX+totalY)
}

func jaccard(x, y []int64) float64 {
	var both, either int
	for i := range x {
		px, py := x[i] > 0, y[i] > 0
		if px && py {
			both++
		}
		if px || py {
			either++
		}
	}
	if either == 0 {
		return 0
	}
	return 1 - float64(both)/float64(either)
}

// weightedUniFrac computes normalized weighted UniFrac: for each branch, the
// absolute difference of the two samples' subtree read proportions, weighted
// by branch length, normalized by the lengths weighted by the proportion
// sums.
func weightedUniFrac(c *dataset.Combined, out *DistanceMatrix) (*DistanceMatrix, error) {
	n := c.Table.NumSamples()

	featureIndex := make(map[string]int, c.Table.NumFeatures())
	for i, id := range c.Table.FeatureIDs() {
		featureIndex[id] = i
	}
	depths := c.Table.SampleDepths()

	// Per-branch per-sample subtree proportions, gathered post-order. The
	// root's branch is excluded: every read descends from it, so it never
	// separates two samples.
	type branch struct {
		length float64
		props  []float64
	}
	var branches []branch

	var walk func(node *newick.Node, root bool) []float64
	walk = func(node *newick.Node, root bool) []float64 {
		props := make([]float64, n)
		if node.IsLeaf() {
			i := featureIndex[node.Name]
			for j := 0; j < n; j++ {
				props[j] = float64(c.Table.Count(i, j)) / float64(depths[j])
			}
		} else {
			for _, child := range node.Children {
				for j, p := range walk(child, false) {
					props[j] += p
				}
			}
		}
		if !root {
			branches = append(branches, branch{length: node.Length, props: props})
		}
		return props
	}
	walk(c.Tree.Root, true)

	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			var num, den float64
			for _, br := range branches {
				num += br.length * math.Abs(br.props[a]-br.props[b])
				den += br.length * (br.props[a] + br.props[b])
			}
			if den == 0 {
				out.D.SetSym(a, b, 0)
				continue
			}
			out.D.SetSym(a, b, num/den)
		}
	}

	return out, nil
}
