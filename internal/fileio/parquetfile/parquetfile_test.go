package parquetfile

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio"
)

func TestRoundTripKeepsOrderKindsAndMissing(t *testing.T) {
	src := dataset.MustNew(
		dataset.MustColumn("zeta", dataset.KindText, "a", nil, "c"),
		dataset.MustColumn("id", dataset.KindText, "1", "2", "3"),
		dataset.MustColumn("age", dataset.KindInt, 61, nil, 70),
		dataset.MustColumn("bmi", dataset.KindFloat, nil, 30.5, 18.25),
		dataset.MustColumn("sex", dataset.KindCategorical, "m", "f", nil),
	)
	p := filepath.Join(t.TempDir(), "panel.parquet")
	if err := fileio.Write(context.Background(), src, p); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := fileio.Read(context.Background(), p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got.Names(), src.Names()) {
		t.Fatalf("names=%v; want %v", got.Names(), src.Names())
	}
	if !got.Equal(src) {
		t.Fatalf("round trip mismatch:\n got %v\nwant %v", got, src)
	}
}

func TestRoundTripEmpty(t *testing.T) {
	src := dataset.MustNew(dataset.MustColumn("id", dataset.KindText))
	p := filepath.Join(t.TempDir(), "empty.parquet")
	if err := fileio.Write(context.Background(), src, p); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := fileio.Read(context.Background(), p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.NumRows() != 0 || got.NumCols() != 1 {
		t.Fatalf("got %v", got)
	}
}
