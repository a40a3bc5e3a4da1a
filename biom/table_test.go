package biom

import (
	"reflect"
	"testing"

	"github.com/ampliomics/ampliseq"
)

func TestNewTableValidation(t *testing.T) {
	if _, err := NewTable([]string{"F1"}, []string{"S1"}, [][]int64{{-1}}); !ampliseq.IsFormatError(err) {
		t.Errorf("negative count: got %v, want FormatError", err)
	}
	if _, err := NewTable([]string{"F1", "F1"}, []string{"S1"}, [][]int64{{1}, {1}}); !ampliseq.IsFormatError(err) {
		t.Errorf("duplicate feature id: got %v, want FormatError", err)
	}
	if _, err := NewTable([]string{"F1"}, []string{"S1", "S1"}, [][]int64{{1, 2}}); !ampliseq.IsFormatError(err) {
		t.Errorf("duplicate sample id: got %v, want FormatError", err)
	}
	if _, err := NewTable([]string{"F1"}, []string{"S1"}, [][]int64{{1, 2}}); !ampliseq.IsFormatError(err) {
		t.Errorf("ragged row: got %v, want FormatError", err)
	}
}

func TestTableTotals(t *testing.T) {
	table, err := NewTable(
		[]string{"F1", "F2", "F3"},
		[]string{"S1", "S2"},
		[][]int64{
			{10, 0},
			{5, 7},
			{0, 3},
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	if got := table.SampleDepths(); !reflect.DeepEqual(got, []int64{15, 10}) {
		t.Errorf("SampleDepths = %v, want [15 10]", got)
	}
	if got := table.FeatureTotal(1); got != 12 {
		t.Errorf("FeatureTotal(1) = %d, want 12", got)
	}
	if got := table.GrandTotal(); got != 25 {
		t.Errorf("GrandTotal = %d, want 25", got)
	}
	if v, ok := table.CountByID("F3", "S2"); !ok || v != 3 {
		t.Errorf("CountByID(F3,S2) = %d,%t, want 3,true", v, ok)
	}
}

func TestTableSubset(t *testing.T) {
	table, err := NewTable(
		[]string{"F1", "F2", "F3"},
		[]string{"S1", "S2", "S3"},
		[][]int64{
			{1, 2, 3},
			{4, 5, 6},
			{7, 8, 9},
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	sub, err := table.Subset([]string{"F3", "F1"}, []string{"S2"})
	if err != nil {
		t.Fatal(err)
	}
	if got := sub.FeatureIDs(); !reflect.DeepEqual(got, []string{"F3", "F1"}) {
		t.Errorf("Subset features = %v", got)
	}
	if got := sub.Count(0, 0); got != 8 {
		t.Errorf("Subset count(F3,S2) = %d, want 8", got)
	}
	if got := sub.Count(1, 0); got != 2 {
		t.Errorf("Subset count(F1,S2) = %d, want 2", got)
	}

	if _, err := table.Subset([]string{"F9"}, []string{"S1"}); !ampliseq.IsFormatError(err) {
		t.Errorf("unknown feature: got %v, want FormatError", err)
	}
	if _, err := table.Subset(nil, []string{"S1"}); !ampliseq.IsPreconditionError(err) {
		t.Errorf("empty feature selection: got %v, want PreconditionError", err)
	}
}
