package export

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio"
	_ "github.com/RC-CHN/CHARLS-FILTER/internal/fileio/csv"
)

func fixture() *dataset.Dataset {
	return dataset.MustNew(
		dataset.MustColumn("id", dataset.KindInt, 1, 2),
		dataset.MustColumn("ba000_w2_3", dataset.KindCategorical, "male", "female"),
		dataset.MustColumn("bmi", dataset.KindFloat, 21.5, nil),
	)
}

func TestProject(t *testing.T) {
	cases := []struct {
		name   string
		rename map[string]string
		want   []string
		err    error
	}{
		{"empty map", map[string]string{}, []string{"id", "ba000_w2_3", "bmi"}, nil},
		{"nil map", nil, []string{"id", "ba000_w2_3", "bmi"}, nil},
		{"trimmed target", map[string]string{"ba000_w2_3": "  sex "}, []string{"id", "sex", "bmi"}, nil},
		{"blank target ignored", map[string]string{"bmi": "   ", "id": ""}, []string{"id", "ba000_w2_3", "bmi"}, nil},
		{"unknown source ignored", map[string]string{"nope": "x"}, []string{"id", "ba000_w2_3", "bmi"}, nil},
		{"swap", map[string]string{"id": "bmi", "bmi": "id"}, []string{"bmi", "ba000_w2_3", "id"}, nil},
		{"collision", map[string]string{"bmi": "id"}, nil, dataset.ErrDuplicateColumnName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := fixture()
			got, err := Project(in, tc.rename)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("err=%v; want %v", err, tc.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Project: %v", err)
			}
			if !reflect.DeepEqual(got.Names(), tc.want) {
				t.Fatalf("names=%v; want %v", got.Names(), tc.want)
			}
			if !in.Equal(fixture()) {
				t.Fatalf("input mutated")
			}
		})
	}
}

func TestProject_EmptyMapRoundTrip(t *testing.T) {
	in := fixture()
	got, err := Project(in, map[string]string{})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !got.Equal(in) {
		t.Fatalf("Project(D, {}) = %v; want %v", got, in)
	}
}

func TestExport_DefaultExtension(t *testing.T) {
	dir := t.TempDir()
	path, err := Export(context.Background(), fixture(), map[string]string{"ba000_w2_3": "sex"}, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Ext(path) != ".csv" {
		t.Fatalf("path=%s; want .csv", path)
	}
	back, err := fileio.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !reflect.DeepEqual(back.Names(), []string{"id", "sex", "bmi"}) {
		t.Fatalf("names=%v", back.Names())
	}
}

func TestExport_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Export(context.Background(), fixture(), nil, filepath.Join(dir, "out.xlsx")); !errors.Is(err, fileio.ErrUnsupportedFileType) {
		t.Fatalf("err=%v; want ErrUnsupportedFileType", err)
	}
	if _, err := Export(context.Background(), fixture(), nil, " "); err == nil {
		t.Fatalf("expected error for empty path")
	}

	called := false
	orig := writeFn
	writeFn = func(context.Context, *dataset.Dataset, string) error { called = true; return nil }
	defer func() { writeFn = orig }()
	if _, err := Export(context.Background(), fixture(), map[string]string{"bmi": "id"}, filepath.Join(dir, "x.csv")); !errors.Is(err, dataset.ErrDuplicateColumnName) {
		t.Fatalf("err=%v; want ErrDuplicateColumnName", err)
	}
	if called {
		t.Fatalf("writer called after failed projection")
	}
}
