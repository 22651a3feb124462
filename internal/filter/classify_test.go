package filter

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

func textColumn(distinct int, kind dataset.Kind) *dataset.Dataset {
	vals := make([]any, 0, distinct*2+1)
	for i := 0; i < distinct; i++ {
		vals = append(vals, fmt.Sprintf("v%02d", i), fmt.Sprintf("v%02d", i))
	}
	vals = append(vals, nil)
	return dataset.MustNew(dataset.MustColumn("c", kind, vals...))
}

func TestClassify_Boundaries(t *testing.T) {
	cases := []struct {
		distinct int
		want     Class
	}{
		{0, FreeText},
		{1, FreeText},
		{2, Categorical},
		{19, Categorical},
		{20, FreeText},
		{35, FreeText},
	}
	for _, kind := range []dataset.Kind{dataset.KindText, dataset.KindCategorical} {
		for _, tc := range cases {
			got, err := Classify(textColumn(tc.distinct, kind), "c")
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Class != tc.want {
				t.Errorf("%s distinct=%d: class=%v; want %v", kind, tc.distinct, got.Class, tc.want)
			}
			if got.Class == Categorical && len(got.Values) != tc.distinct {
				t.Errorf("%s distinct=%d: %d values listed", kind, tc.distinct, len(got.Values))
			}
		}
	}
}

func TestClassify_NumericRegardlessOfCardinality(t *testing.T) {
	ds := dataset.MustNew(
		dataset.MustColumn("flag", dataset.KindInt, 0, 1, 0, 1),
		dataset.MustColumn("w", dataset.KindFloat, 1.5, 1.5, 1.5, 1.5),
	)
	for _, name := range []string{"flag", "w"} {
		got, _ := Classify(ds, name)
		if got.Class != Numeric {
			t.Fatalf("%s: class=%v; want numeric", name, got.Class)
		}
	}
}

func TestClassify_ValuesInFirstSeenOrder(t *testing.T) {
	ds := dataset.MustNew(dataset.MustColumn("s", dataset.KindText, "b", nil, "a", "b", "c"))
	got, _ := Classify(ds, "s")
	if want := []any{"b", "a", "c"}; !reflect.DeepEqual(got.Values, want) {
		t.Fatalf("values=%v; want %v", got.Values, want)
	}
	if ops := got.Operators(); !reflect.DeepEqual(ops, []Op{OpEQ, OpNE}) {
		t.Fatalf("operators=%v", ops)
	}
}

func TestPreview(t *testing.T) {
	p, err := Preview(people(), "city", 3)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if p.Rows != 5 || p.Missing != 1 || p.Distinct != 4 {
		t.Fatalf("rows=%d missing=%d distinct=%d; want 5/1/4", p.Rows, p.Missing, p.Distinct)
	}
	if want := []any{"Beijing", "Shanghai", nil}; !reflect.DeepEqual(p.Head, want) {
		t.Fatalf("head=%v; want %v", p.Head, want)
	}
	if p.Class.Class != Categorical {
		t.Fatalf("class=%v; want categorical", p.Class.Class)
	}
	if _, err := Preview(people(), "ghost", 1); err == nil {
		t.Fatalf("expected error for unknown column")
	}
}

func TestChain(t *testing.T) {
	chain := Chain{
		NotMissing{Columns: []string{"age"}},
		Condition{Column: "bmi", Op: OpGT, Value: "20"},
	}
	out, removed, err := chain.Apply(people())
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	// age drops id 2; bmi>20 drops 3 (missing) and 4.
	if got, want := ids(t, out), []any{"1", "5"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ids=%v; want %v", got, want)
	}
	if removed != 3 {
		t.Fatalf("removed=%d; want 3", removed)
	}
	if s := chain.String(); s != `dropna(age) && bmi > "20"` {
		t.Fatalf("String=%q", s)
	}

	bad := Chain{NotMissing{Columns: []string{"age"}}, Condition{Column: "age", Op: OpContains, Value: "1"}}
	if out, _, err := bad.Apply(people()); err == nil || out != nil {
		t.Fatalf("expected all-or-nothing failure, got out=%v err=%v", out, err)
	}
}

func TestClassification_JSONRoundTrip(t *testing.T) {
	for _, in := range []Classification{
		{Class: Numeric},
		{Class: Categorical, Values: []any{"f", "m"}},
		{Class: FreeText},
	} {
		b, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal %v: %v", in.Class, err)
		}
		var out Classification
		if err := json.Unmarshal(b, &out); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if !reflect.DeepEqual(out, in) {
			t.Fatalf("got %+v; want %+v", out, in)
		}
	}

	var c Class
	if err := c.UnmarshalText([]byte("ordinal")); err == nil {
		t.Fatal("expected error for unknown class")
	}
}
