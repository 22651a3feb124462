package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio"
	_ "github.com/RC-CHN/CHARLS-FILTER/internal/fileio/csv"
	"github.com/RC-CHN/CHARLS-FILTER/internal/filter"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in      string
		want    filter.Condition
		wantErr bool
	}{
		{in: "age >= 60", want: filter.Condition{Column: "age", Op: filter.OpGE, Value: "60"}},
		{in: "  city   contains  Bei jing ", want: filter.Condition{Column: "city", Op: filter.OpContains, Value: "Bei jing"}},
		{in: "marital status != never married", want: filter.Condition{Column: "marital status", Op: filter.OpNE, Value: "never married"}},
		{in: "sex ==", wantErr: true},
		{in: "age 60", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := parseCondition(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseCondition(%q) = %+v; want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("parseCondition(%q) = %+v, %v; want %+v", tc.in, got, err, tc.want)
		}
	}
}

func TestParseRename(t *testing.T) {
	got, err := parseRename("age=age_2015, bmi = bmi_2015,")
	if err != nil {
		t.Fatalf("parseRename: %v", err)
	}
	if want := map[string]string{"age": "age_2015", "bmi": "bmi_2015"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v; want %v", got, want)
	}
	if _, err := parseRename("age"); err == nil {
		t.Fatalf("missing '=' accepted")
	}
	if m, err := parseRename(""); err != nil || len(m) != 0 {
		t.Fatalf("empty rename = %v, %v", m, err)
	}
}

func TestJobRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "wave.csv")
	if err := os.WriteFile(in, []byte("id,age,sex\n1,61,m\n2,,f\n3,45,f\n4,70,m\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := filepath.Join(dir, "result")

	j, err := newJob(in, out, "age", []string{"age > 50"}, "age=age_2015")
	if err != nil {
		t.Fatalf("newJob: %v", err)
	}
	res, err := j.run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Path != out+".csv" || res.Original != 4 || res.Rows != 2 || len(res.History) != 2 {
		t.Fatalf("result=%+v", res)
	}

	ds, err := fileio.Read(context.Background(), res.Path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got, want := ds.Names(), []string{"id", "age_2015", "sex"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("names=%v; want %v", got, want)
	}

	var buf bytes.Buffer
	printResult(&buf, res)
	if !strings.Contains(buf.String(), "2 of 4 rows, 3 columns") {
		t.Fatalf("printResult:\n%s", buf.String())
	}
}

func TestJobRun_FilterError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "wave.csv")
	if err := os.WriteFile(in, []byte("id,age\n1,61\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	j, err := newJob(in, filepath.Join(dir, "o.csv"), "", []string{"age > old"}, "")
	if err != nil {
		t.Fatalf("newJob: %v", err)
	}
	if _, err := j.run(context.Background()); !errors.Is(err, filter.ErrTypeCoercion) {
		t.Fatalf("run err=%v; want ErrTypeCoercion", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "o.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output written despite filter error")
	}
}

func TestSplitList(t *testing.T) {
	if got, want := splitList(" a, ,b,"), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("splitList=%v; want %v", got, want)
	}
	if got := splitList(""); got != nil {
		t.Fatalf("splitList(\"\")=%v; want nil", got)
	}
}
