// Package ordinate reduces a sample-by-sample distance matrix to a small
// number of principal coordinate axes for visualization.
package ordinate

import (
	"math"
	"sort"

	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/betadiv"
	"gonum.org/v1/gonum/mat"
)

// PCoA holds the ordination of n samples onto k axes. Coordinates row order
// matches SampleIDs; Explained gives each axis's share of the total positive
// eigenvalue mass.
type PCoA struct {
	SampleIDs   []string
	Coordinates *mat.Dense // n x k
	Explained   []float64  // len k, descending
}

// Coordinate returns the position of sample row i on axis a.
func (p *PCoA) Coordinate(i, a int) float64 { return p.Coordinates.At(i, a) }

// Run performs classical principal coordinate analysis (metric
// multidimensional scaling): Gower double-centering of the squared
// distances followed by an eigendecomposition, keeping the top k axes.
// Negative eigenvalues, which non-Euclidean dissimilarities like
// Bray-Curtis can produce, are excluded from both the axes and the
// explained-variance denominator.
func Run(dm *betadiv.DistanceMatrix, k int) (*PCoA, error) {
	n := dm.Len()
	if n < 2 {
		return nil, &ampliseq.PreconditionError{Op: "ordinate.Run", Problem: "ordination requires at least two samples"}
	}
	if k < 1 {
		return nil, &ampliseq.PreconditionError{Op: "ordinate.Run", Problem: "at least one axis is required"}
	}

	// B = -1/2 J D^2 J, built directly from the row/column/grand means of
	// the squared distances.
	sq := mat.NewSymDense(n, nil)
	rowMean := make([]float64, n)
	var grandMean float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := dm.At(i, j)
			sq.SetSym(i, j, d*d)
			rowMean[i] += d * d
		}
		rowMean[i] /= float64(n)
		grandMean += rowMean[i]
	}
	grandMean /= float64(n)

	b := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			b.SetSym(i, j, -0.5*(sq.At(i, j)-rowMean[i]-rowMean[j]+grandMean))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(b, true); !ok {
		return nil, &ampliseq.StatisticalFitError{Feature: "ordination", Problem: "eigendecomposition failed"}
	}

	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Order axes by descending eigenvalue.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	const eps = 1e-10
	var positiveSum float64
	nPositive := 0
	for _, v := range values {
		if v > eps {
			positiveSum += v
			nPositive++
		}
	}
	if nPositive == 0 {
		return nil, &ampliseq.PreconditionError{Op: "ordinate.Run", Problem: "distance matrix has no positive eigenvalues"}
	}
	if k > nPositive {
		k = nPositive
	}

	coords := mat.NewDense(n, k, nil)
	explained := make([]float64, k)
	for a := 0; a < k; a++ {
		idx := order[a]
		scale := math.Sqrt(values[idx])
		for i := 0; i < n; i++ {
			coords.Set(i, a, vectors.At(i, idx)*scale)
		}
		explained[a] = values[idx] / positiveSum
	}

	return &PCoA{
		SampleIDs:   append([]string{}, dm.SampleIDs...),
		Coordinates: coords,
		Explained:   explained,
	}, nil
}
