package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/export"
	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio"
	"github.com/RC-CHN/CHARLS-FILTER/internal/filter"
	"github.com/RC-CHN/CHARLS-FILTER/internal/session"
)

// job is one non-interactive filter run.
type job struct {
	in, out string
	steps   filter.Chain
	rename  map[string]string

	read   func(ctx context.Context, path string) (*dataset.Dataset, error)
	export func(ctx context.Context, ds *dataset.Dataset, rename map[string]string, path string) (string, error)
}

type result struct {
	Path     string
	Original int
	Rows     int
	Cols     int
	History  []session.Step
}

func newJob(in, out, dropna string, where []string, rename string) (*job, error) {
	j := &job{in: in, out: out, read: fileio.Read, export: export.Export}
	if cols := splitList(dropna); len(cols) > 0 {
		j.steps = append(j.steps, filter.NotMissing{Columns: cols})
	}
	for _, w := range where {
		c, err := parseCondition(w)
		if err != nil {
			return nil, err
		}
		j.steps = append(j.steps, c)
	}
	m, err := parseRename(rename)
	if err != nil {
		return nil, err
	}
	j.rename = m
	return j, nil
}

// run drives a session the same way the HTTP API does: load, filter step by
// step, export the working data.
func (j *job) run(ctx context.Context) (*result, error) {
	ds, err := j.read(ctx, j.in)
	if err != nil {
		return nil, err
	}
	sess := session.New()
	if err := sess.Load(j.in, ds); err != nil {
		return nil, err
	}
	for _, p := range j.steps {
		if _, err := sess.Filter(p); err != nil {
			return nil, fmt.Errorf("filter %s: %w", p, err)
		}
	}
	working, err := sess.Working()
	if err != nil {
		return nil, err
	}
	path, err := j.export(ctx, working, j.rename, j.out)
	if err != nil {
		return nil, err
	}
	return &result{
		Path:     path,
		Original: ds.NumRows(),
		Rows:     working.NumRows(),
		Cols:     working.NumCols(),
		History:  sess.History(),
	}, nil
}

// parseCondition splits "column op value". The operator is the first token
// that parses as one; the value is the rest of the line and must not be empty.
func parseCondition(s string) (filter.Condition, error) {
	fields := strings.Fields(s)
	for i := 1; i < len(fields)-1; i++ {
		op, err := filter.ParseOp(fields[i])
		if err != nil {
			continue
		}
		return filter.Condition{
			Column: strings.Join(fields[:i], " "),
			Op:     op,
			Value:  strings.Join(fields[i+1:], " "),
		}, nil
	}
	return filter.Condition{}, fmt.Errorf("condition %q: want \"column op value\"", s)
}

func parseRename(s string) (map[string]string, error) {
	m := make(map[string]string)
	for _, pair := range splitList(s) {
		from, to, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(from) == "" {
			return nil, fmt.Errorf("rename %q: want old=new", pair)
		}
		m[strings.TrimSpace(from)] = strings.TrimSpace(to)
	}
	return m, nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func printResult(w io.Writer, r *result) {
	for _, st := range r.History {
		fmt.Fprintf(w, "%s: removed %s, %s remaining\n", st.Description, humanize.Comma(int64(st.Removed)), humanize.Comma(int64(st.Remaining)))
	}
	fmt.Fprintf(w, "wrote %s: %s of %s rows, %d columns\n", r.Path, humanize.Comma(int64(r.Rows)), humanize.Comma(int64(r.Original)), r.Cols)
}
