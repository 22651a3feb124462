package dataset

import (
	"errors"
	"reflect"
	"testing"

	"github.com/RC-CHN/CHARLS-FILTER/internal/bitmap"
)

func sample() *Dataset {
	return MustNew(
		MustColumn("id", KindText, "1", "2", "3"),
		MustColumn("age", KindInt, 61, nil, 70),
		MustColumn("bmi", KindFloat, 22.5, 30.1, nil),
	)
}

func TestNew_RejectsDuplicatesAndRagged(t *testing.T) {
	a := MustColumn("a", KindInt, 1, 2)
	_, err := New(a, a.WithName("a"))
	if !errors.Is(err, ErrDuplicateColumnName) {
		t.Fatalf("duplicate: err=%v; want ErrDuplicateColumnName", err)
	}
	_, err = New(a, MustColumn("b", KindInt, 1))
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("ragged: err=%v; want ErrLengthMismatch", err)
	}
}

func TestNewColumn_Normalizes(t *testing.T) {
	c, err := NewColumn("x", KindFloat, []any{float32(1.5), 2, nil})
	if err != nil {
		t.Fatalf("NewColumn: %v", err)
	}
	if got, want := c.Values(), []any{1.5, 2.0, nil}; !reflect.DeepEqual(got, want) {
		t.Fatalf("values=%v; want %v", got, want)
	}
	if _, err := NewColumn("x", KindInt, []any{"nope"}); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("err=%v; want ErrInvalidValue", err)
	}
}

func TestKeepPreservesOrderAndReceiver(t *testing.T) {
	ds := sample()
	m := bitmap.New(ds.NumRows())
	m.Add(0)
	m.Add(2)
	out := ds.Keep(m)

	if out.NumRows() != 2 {
		t.Fatalf("rows=%d; want 2", out.NumRows())
	}
	id, _ := out.Column("id")
	if got, want := id.Values(), []any{"1", "3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ids=%v; want %v", got, want)
	}
	if ds.NumRows() != 3 {
		t.Fatalf("receiver mutated: rows=%d", ds.NumRows())
	}
}

func TestTake_NegativeIsMissing(t *testing.T) {
	out := sample().Take([]int{1, -1, 1})
	age, _ := out.Column("id")
	if got, want := age.Values(), []any{"2", nil, "2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ids=%v; want %v", got, want)
	}
}

func TestRename(t *testing.T) {
	ds := sample()
	out, err := ds.Rename(map[string]string{"age": "age_years", "ghost": "x"})
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got, want := out.Names(), []string{"id", "age_years", "bmi"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("names=%v; want %v", got, want)
	}
	if _, err := ds.Rename(map[string]string{"age": "bmi"}); !errors.Is(err, ErrDuplicateColumnName) {
		t.Fatalf("collision err=%v; want ErrDuplicateColumnName", err)
	}
}

func TestWithColumn_ReplaceAndAppend(t *testing.T) {
	ds := sample()
	out, err := ds.WithColumn(MustColumn("id", KindText, "a", "b", "c"))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if out.NumCols() != 3 || out.ColumnAt(0).Value(0) != "a" {
		t.Fatalf("replace did not take effect: %v", out)
	}
	out, err = ds.WithColumn(MustColumn("w", KindInt, 1, 2, 3))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if got := out.Names(); got[len(got)-1] != "w" {
		t.Fatalf("names=%v; want w last", got)
	}
	if _, err := ds.WithColumn(MustColumn("w", KindInt, 1)); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err=%v; want ErrLengthMismatch", err)
	}
}

func TestEqualAndFingerprint(t *testing.T) {
	a, b := sample(), sample().Clone()
	if !a.Equal(b) || a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("clone not equal to source")
	}
	c := a.Take([]int{0, 1})
	if a.Equal(c) || a.Fingerprint() == c.Fingerprint() {
		t.Fatalf("different datasets compare equal")
	}
	// Missing differs from empty string.
	x := MustNew(MustColumn("s", KindText, ""))
	y := MustNew(MustColumn("s", KindText, nil))
	if x.Equal(y) || x.Fingerprint() == y.Fingerprint() {
		t.Fatalf("empty string and missing must differ")
	}
}

func TestDistinctAndMissingCount(t *testing.T) {
	c := MustColumn("g", KindCategorical, "m", nil, "f", "m", nil)
	if got, want := c.Distinct(), []any{"m", "f"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("distinct=%v; want %v", got, want)
	}
	if c.MissingCount() != 2 {
		t.Fatalf("missing=%d; want 2", c.MissingCount())
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{int64(-4), "-4"},
		{7.0, "7"},
		{2.25, "2.25"},
		{"x", "x"},
	}
	for _, tc := range cases {
		if got := FormatValue(tc.in); got != tc.want {
			t.Errorf("FormatValue(%v)=%q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"INT": KindInt, "double": KindFloat, " str ": KindText, "category": KindCategorical} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q)=%v,%v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseKind("blob"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
