package ordinate

import (
	"math"
	"testing"

	"github.com/ampliomics/ampliseq"
	"github.com/ampliomics/ampliseq/betadiv"
	"gonum.org/v1/gonum/mat"
)

// lineDistances builds the Euclidean distance matrix of points on a line.
func lineDistances(points []float64, ids []string) *betadiv.DistanceMatrix {
	n := len(points)
	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d.SetSym(i, j, math.Abs(points[i]-points[j]))
		}
	}
	return &betadiv.DistanceMatrix{SampleIDs: ids, D: d}
}

func TestPCoARecoversLineGeometry(t *testing.T) {
	points := []float64{0, 3, 5, 9}
	ids := []string{"S1", "S2", "S3", "S4"}
	dm := lineDistances(points, ids)

	p, err := Run(dm, 2)
	if err != nil {
		t.Fatal(err)
	}

	// One-dimensional geometry: the first axis explains everything, so at
	// most one axis survives the positive-eigenvalue cut.
	if len(p.Explained) < 1 {
		t.Fatal("no axes returned")
	}
	if p.Explained[0] < 0.999 {
		t.Errorf("axis 1 explains %v, want ~1", p.Explained[0])
	}

	// Pairwise distances along axis 1 must reproduce the inputs.
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			got := math.Abs(p.Coordinate(i, 0) - p.Coordinate(j, 0))
			want := math.Abs(points[i] - points[j])
			if math.Abs(got-want) > 1e-8 {
				t.Errorf("recovered distance (%s,%s) = %v, want %v", ids[i], ids[j], got, want)
			}
		}
	}
}

func TestPCoAExplainedProportions(t *testing.T) {
	// Points in the plane: two meaningful axes.
	xs := []float64{0, 4, 0, 4}
	ys := []float64{0, 0, 2, 2}
	ids := []string{"S1", "S2", "S3", "S4"}

	n := len(ids)
	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d.SetSym(i, j, math.Hypot(xs[i]-xs[j], ys[i]-ys[j]))
		}
	}
	dm := &betadiv.DistanceMatrix{SampleIDs: ids, D: d}

	p, err := Run(dm, 3)
	if err != nil {
		t.Fatal(err)
	}

	if len(p.Explained) != 2 {
		t.Fatalf("got %d axes, want 2 (only two positive eigenvalues)", len(p.Explained))
	}

	var sum float64
	prev := math.Inf(1)
	for _, e := range p.Explained {
		if e <= 0 || e > 1 {
			t.Errorf("explained proportion %v out of range", e)
		}
		if e > prev {
			t.Error("explained proportions are not descending")
		}
		prev = e
		sum += e
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("explained proportions sum to %v, want 1", sum)
	}

	// The wider spread (x, range 4) dominates the first axis.
	if p.Explained[0] <= p.Explained[1] {
		t.Errorf("axis order wrong: %v", p.Explained)
	}
}

func TestPCoAPreconditions(t *testing.T) {
	dm := lineDistances([]float64{0}, []string{"S1"})
	if _, err := Run(dm, 2); !ampliseq.IsPreconditionError(err) {
		t.Errorf("single sample: got %v, want PreconditionError", err)
	}

	dm2 := lineDistances([]float64{0, 1}, []string{"S1", "S2"})
	if _, err := Run(dm2, 0); !ampliseq.IsPreconditionError(err) {
		t.Errorf("zero axes: got %v, want PreconditionError", err)
	}
}
