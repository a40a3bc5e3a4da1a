package diffab

import (
	"math"
	"math/rand"
	"testing"
)

func TestBenjaminiHochberg(t *testing.T) {
	// Verified against p.adjust(..., method="BH").
	p := []float64{0.01, 0.04, 0.03, 0.005}
	want := []float64{0.02, 0.04, 0.04, 0.02}

	got := benjaminiHochberg(p)
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("adjusted[%d] = %v, want %v (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestBenjaminiHochbergMonotoneAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := make([]float64, 200)
	for i := range p {
		p[i] = rng.Float64()
	}

	adj := benjaminiHochberg(p)
	for i := range p {
		if adj[i] < p[i] {
			t.Errorf("adjusted[%d] = %v < raw %v", i, adj[i], p[i])
		}
		if adj[i] > 1 {
			t.Errorf("adjusted[%d] = %v > 1", i, adj[i])
		}
	}
}

func TestBenjaminiHochbergEmpty(t *testing.T) {
	if got := benjaminiHochberg(nil); len(got) != 0 {
		t.Errorf("expected empty output, got %v", got)
	}
}
