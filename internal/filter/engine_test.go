package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

func people() *dataset.Dataset {
	return dataset.MustNew(
		dataset.MustColumn("id", dataset.KindText, "1", "2", "3", "4", "5"),
		dataset.MustColumn("age", dataset.KindInt, 61, nil, 70, 45, 61),
		dataset.MustColumn("bmi", dataset.KindFloat, 22.5, 30.1, nil, 18.0, 25.0),
		dataset.MustColumn("city", dataset.KindText, "Beijing", "Shanghai", nil, "Chengdu", "Beijing West"),
		dataset.MustColumn("sex", dataset.KindCategorical, "m", "f", "f", nil, "m"),
	)
}

func ids(t *testing.T, ds *dataset.Dataset) []any {
	t.Helper()
	c, ok := ds.Column("id")
	if !ok {
		t.Fatalf("no id column")
	}
	return c.Values()
}

func TestDropIncomplete(t *testing.T) {
	ds := people()
	out, removed, err := DropIncomplete(ds, []string{"age", "bmi"})
	if err != nil {
		t.Fatalf("DropIncomplete: %v", err)
	}
	if removed != 2 || out.NumRows() != 3 {
		t.Fatalf("removed=%d rows=%d; want 2/3", removed, out.NumRows())
	}
	if got, want := ids(t, out), []any{"1", "4", "5"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ids=%v; want %v", got, want)
	}
	if ds.NumRows() != 5 {
		t.Fatalf("input mutated")
	}
}

func TestDropIncomplete_NoMissingInSelectedColumns(t *testing.T) {
	ds := people()
	for _, cols := range [][]string{{"age"}, {"city"}, {"sex", "bmi"}, {"id", "age", "bmi", "city", "sex"}} {
		out, removed, err := DropIncomplete(ds, cols)
		if err != nil {
			t.Fatalf("%v: %v", cols, err)
		}
		if out.NumRows()+removed != ds.NumRows() {
			t.Fatalf("%v: rows+removed=%d; want %d", cols, out.NumRows()+removed, ds.NumRows())
		}
		for _, name := range cols {
			c, _ := out.Column(name)
			if c.MissingCount() != 0 {
				t.Fatalf("%v: column %s still has missing values", cols, name)
			}
		}
	}
}

func TestDropIncomplete_InvalidSelection(t *testing.T) {
	ds := people()
	if _, _, err := DropIncomplete(ds, nil); !errors.Is(err, ErrInvalidColumnSelection) {
		t.Fatalf("empty: err=%v; want ErrInvalidColumnSelection", err)
	}
	_, _, err := DropIncomplete(ds, []string{"age", "ghost"})
	if !errors.Is(err, ErrUnknownColumn) || !errors.Is(err, ErrInvalidColumnSelection) {
		t.Fatalf("unknown: err=%v; want ErrUnknownColumn wrapping ErrInvalidColumnSelection", err)
	}
}

func TestApplyCondition(t *testing.T) {
	cases := []struct {
		name    string
		col     string
		op      Op
		val     string
		want    []any
		removed int
	}{
		{"int gt", "age", OpGT, "60", []any{"1", "3", "5"}, 2},
		{"int eq", "age", OpEQ, "61", []any{"1", "5"}, 3},
		{"int ne skips missing", "age", OpNE, "61", []any{"3", "4"}, 3},
		{"int le fractional", "age", OpLE, "60.5", []any{"4"}, 4},
		{"float ge", "bmi", OpGE, " 25 ", []any{"2", "5"}, 3},
		{"float lt", "bmi", OpLT, "20", []any{"4"}, 4},
		{"text eq", "city", OpEQ, "Beijing", []any{"1"}, 4},
		{"text ne skips missing", "city", OpNE, "Beijing", []any{"2", "4", "5"}, 2},
		{"text contains", "city", OpContains, "Beijing", []any{"1", "5"}, 3},
		{"text lexicographic", "city", OpGT, "C", []any{"2", "4"}, 3},
		{"categorical eq", "sex", OpEQ, "f", []any{"2", "3"}, 3},
		{"categorical ne skips missing", "sex", OpNE, "f", []any{"1", "5"}, 3},
		{"categorical contains", "sex", OpContains, "m", []any{"1", "5"}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, removed, err := ApplyCondition(people(), tc.col, tc.op, tc.val)
			if err != nil {
				t.Fatalf("ApplyCondition: %v", err)
			}
			if got := ids(t, out); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ids=%v; want %v", got, tc.want)
			}
			if removed != tc.removed {
				t.Fatalf("removed=%d; want %d", removed, tc.removed)
			}
		})
	}
}

func TestApplyCondition_Errors(t *testing.T) {
	cases := []struct {
		name string
		col  string
		op   Op
		val  string
		want error
	}{
		{"unknown column", "ghost", OpEQ, "1", ErrInvalidColumnSelection},
		{"non numeric literal", "age", OpGT, "abc", ErrTypeCoercion},
		{"empty numeric literal", "bmi", OpEQ, "", ErrTypeCoercion},
		{"nan literal", "bmi", OpEQ, "NaN", ErrTypeCoercion},
		{"contains on numeric", "age", OpContains, "6", ErrUnsupportedOperator},
		{"ordering on categorical", "sex", OpGT, "f", ErrUnsupportedOperator},
		{"unknown operator", "age", Op("=~"), "1", ErrUnsupportedOperator},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := people()
			before := ds.Fingerprint()
			_, _, err := ApplyCondition(ds, tc.col, tc.op, tc.val)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v; want %v", err, tc.want)
			}
			if ds.Fingerprint() != before {
				t.Fatalf("input changed on failure")
			}
		})
	}
}

func TestApplyCondition_MissingNeverMatches(t *testing.T) {
	ds := dataset.MustNew(
		dataset.MustColumn("id", dataset.KindText, "1", "2"),
		dataset.MustColumn("x", dataset.KindInt, nil, nil),
	)
	for _, op := range []Op{OpGT, OpLT, OpGE, OpLE, OpEQ, OpNE} {
		out, removed, err := ApplyCondition(ds, "x", op, "0")
		if err != nil {
			t.Fatalf("%s: %v", op, err)
		}
		if out.NumRows() != 0 || removed != 2 {
			t.Fatalf("%s: rows=%d removed=%d; want 0/2", op, out.NumRows(), removed)
		}
	}
}

func TestParseOp(t *testing.T) {
	for _, in := range []string{">", " <= ", "!=", "CONTAINS"} {
		if _, err := ParseOp(in); err != nil {
			t.Errorf("ParseOp(%q): %v", in, err)
		}
	}
	if _, err := ParseOp("like"); !errors.Is(err, ErrUnsupportedOperator) {
		t.Fatalf("err=%v; want ErrUnsupportedOperator", err)
	}
}
