package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/RC-CHN/CHARLS-FILTER/internal/config"
	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio"
	"github.com/RC-CHN/CHARLS-FILTER/internal/panel"
)

func TestApplyOverrides(t *testing.T) {
	p := config.DefaultPanel()
	applyOverrides(&p, overrides{})
	if !reflect.DeepEqual(p, config.DefaultPanel()) {
		t.Fatalf("empty overrides changed the plan")
	}

	applyOverrides(&p, overrides{OutputDir: "out", Root: "/data", Format: "csv", Workers: 2, StorageKind: "sqlite", StorageDSN: "file:x.db"})
	if p.Output.Dir != "out" || p.Root != "/data" || p.Output.Format != "csv" || p.Runtime.LoadWorkers != 2 {
		t.Fatalf("overrides not applied: %+v", p)
	}
	if p.Storage.Kind != "sqlite" || p.Storage.DSN != "file:x.db" {
		t.Fatalf("storage overrides not applied: %+v", p.Storage)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"", " ", "b", "c"}, "b"},
		{[]string{"a", "b"}, "a"},
		{[]string{"", ""}, ""},
		{nil, ""},
	}
	for _, tc := range tests {
		if got := firstNonEmpty(tc.in...); got != tc.want {
			t.Errorf("firstNonEmpty(%q)=%q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewRunner(t *testing.T) {
	p := config.DefaultPanel()
	p.Root = "/data"
	p.Output.Format = "csv"
	r := newRunner(p)

	if len(r.Years) != 3 || r.Years[2].Label != "2018" || len(r.Years[2].Domains) != 3 {
		t.Fatalf("years=%+v", r.Years)
	}
	if got, want := r.Years[0].Domains[0].Path, filepath.Join("/data", "2013", "Demographic_Background.dta"); got != want {
		t.Fatalf("domain path=%q; want %q", got, want)
	}
	if got, want := r.OutputPath("2015"), filepath.Join(config.DefaultOutputDir, "panel_2015.csv"); got != want {
		t.Fatalf("OutputPath=%q; want %q", got, want)
	}
	if r.Publish != nil {
		t.Fatalf("Publish set without storage kind")
	}

	p.Storage.Kind = "sqlite"
	if newRunner(p).Publish == nil {
		t.Fatalf("Publish not set for storage kind sqlite")
	}
}

func TestConfigureInputs(t *testing.T) {
	if err := configureInputs(config.Options{"encoding": "ebcdic"}); err == nil {
		t.Fatalf("unknown encoding accepted")
	}

	p := filepath.Join(t.TempDir(), "d.csv")
	if err := os.WriteFile(p, []byte("id;age\n1;-9\n2;50\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := configureInputs(config.Options{"comma": ";", "na_values": []any{"-9"}}); err != nil {
		t.Fatalf("configureInputs: %v", err)
	}
	t.Cleanup(func() { _ = configureInputs(config.Options{"comma": ","}) })

	ds, err := fileio.Read(context.Background(), p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	age, ok := ds.Column("age")
	if !ok || !age.IsMissing(0) || age.IsMissing(1) {
		t.Fatalf("age column=%v", age)
	}
}

func TestPrintSummary(t *testing.T) {
	sum := &panel.Summary{
		Years: []panel.YearSummary{
			{Year: "2013", Loaded: []string{"demo", "health"}, LoadedRows: 12000, MergedRows: 6000, PanelRows: 4500, Output: "out/panel_2013.dta"},
			{Year: "2018", Loaded: []string{"demo"}, Skipped: []panel.Skip{{Domain: "biomarker", Path: "2018/Biomarker.dta", Reason: panel.ReasonNotFound}}},
		},
		Common:  4500,
		Elapsed: 1500 * time.Millisecond,
	}
	var buf bytes.Buffer
	printSummary(&buf, sum)
	out := buf.String()
	for _, want := range []string{
		"2013: loaded=demo,health rows=12,000 merged=6,000 panel=4,500 -> out/panel_2013.dta",
		"skipped biomarker (2018/Biomarker.dta): file not found",
		"common participants: 4,500 (1.5s)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
