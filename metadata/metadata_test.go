package metadata

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ampliomics/ampliseq"
)

const mappingTSV = `#SampleID	body-site	subject	days-since-experiment-start
#q2:types	categorical	categorical	numeric
L1S8	gut	subject-1	0
L1S57	gut	subject-2	84
L2S155	left palm	subject-1	84
L3S242	tongue	subject-1
`

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader(mappingTSV))
	if err != nil {
		t.Fatal(err)
	}

	if m.NumSamples() != 4 {
		t.Fatalf("parsed %d samples, want 4", m.NumSamples())
	}
	if got := m.Columns(); !reflect.DeepEqual(got, []string{"body-site", "subject", "days-since-experiment-start"}) {
		t.Fatalf("columns = %v", got)
	}

	if v := m.String("L2S155", "body-site"); !v.Valid || v.String != "left palm" {
		t.Errorf("body-site(L2S155) = %+v", v)
	}
	if f := m.Float("L1S57", "days-since-experiment-start"); !f.Valid || f.Float64 != 84 {
		t.Errorf("days(L1S57) = %+v", f)
	}
	if f := m.Float("L3S242", "days-since-experiment-start"); f.Valid {
		t.Errorf("missing cell parsed as %+v, want invalid", f)
	}
	if f := m.Float("L1S8", "body-site"); f.Valid {
		t.Errorf("categorical cell parsed as number %+v", f)
	}

	if got := m.Levels("body-site"); !reflect.DeepEqual(got, []string{"gut", "left palm", "tongue"}) {
		t.Errorf("Levels(body-site) = %v", got)
	}
}

func TestPredicates(t *testing.T) {
	m, err := Parse(strings.NewReader(mappingTSV))
	if err != nil {
		t.Fatal(err)
	}

	gut, err := m.Matching("body-site", Equals("gut"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gut, []string{"L1S8", "L1S57"}) {
		t.Errorf("Equals(gut) = %v", gut)
	}

	notGut, err := m.Matching("body-site", NotEquals("gut"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(notGut, []string{"L2S155", "L3S242"}) {
		t.Errorf("NotEquals(gut) = %v", notGut)
	}

	palms, err := m.Matching("body-site", In("left palm", "right palm"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(palms, []string{"L2S155"}) {
		t.Errorf("In(palms) = %v", palms)
	}

	if _, err := m.Matching("no-such-column", Equals("x")); !ampliseq.IsFormatError(err) {
		t.Errorf("unknown column: got %v, want FormatError", err)
	}
}

func TestKeep(t *testing.T) {
	m, err := Parse(strings.NewReader(mappingTSV))
	if err != nil {
		t.Fatal(err)
	}

	kept, err := m.Keep([]string{"L2S155", "L1S8"})
	if err != nil {
		t.Fatal(err)
	}
	if got := kept.SampleIDs(); !reflect.DeepEqual(got, []string{"L2S155", "L1S8"}) {
		t.Errorf("Keep order = %v", got)
	}
	if v := kept.String("L1S8", "subject"); v.String != "subject-1" {
		t.Errorf("kept value = %+v", v)
	}

	if _, err := m.Keep([]string{"nope"}); !ampliseq.IsFormatError(err) {
		t.Errorf("unknown sample: got %v, want FormatError", err)
	}
}

func TestParseErrors(t *testing.T) {
	for name, in := range map[string]string{
		"empty":        "",
		"header only":  "#SampleID\tbody-site\n",
		"duplicate id": "#SampleID\tcol\nS1\ta\nS1\tb\n",
		"empty id":     "#SampleID\tcol\n\ta\n",
	} {
		if _, err := Parse(strings.NewReader(in)); !ampliseq.IsFormatError(err) {
			t.Errorf("%s: got %v, want FormatError", name, err)
		}
	}
}
