package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a plan issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single finding. Path is a dotted path into the plan, e.g.
// "years[1].domains[0].file".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var knownFormats = map[string]struct{}{
	"dta": {}, "csv": {}, "csv.gz": {}, "tsv": {}, "parquet": {},
}

var knownStorage = map[string]struct{}{
	"sqlite": {}, "postgres": {}, "mssql": {}, "mysql": {},
}

// ValidatePanel lints a plan without mutating it.
func ValidatePanel(p Panel) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(p.Job) == "" {
		add(SeverityWarning, "job", "job is empty; metrics will be unlabelled")
	}
	if len(p.Years) == 0 {
		add(SeverityError, "years", "at least one year is required")
	}
	if len(p.Years) == 1 {
		add(SeverityWarning, "years", "a single year makes the intersection a no-op")
	}

	seenYears := map[string]int{}
	for i, y := range p.Years {
		path := fmt.Sprintf("years[%d]", i)
		label := strings.TrimSpace(y.Year)
		if label == "" {
			add(SeverityError, path+".year", "year label must not be empty")
		} else if j, dup := seenYears[label]; dup {
			add(SeverityError, path+".year", "duplicate year %q (also years[%d])", label, j)
		} else {
			seenYears[label] = i
		}
		if len(y.Domains) == 0 {
			add(SeverityError, path+".domains", "year has no domains")
		}
		seenDomains := map[string]struct{}{}
		for k, d := range y.Domains {
			dpath := fmt.Sprintf("%s.domains[%d]", path, k)
			if strings.TrimSpace(d.Name) == "" {
				add(SeverityError, dpath+".name", "domain name must not be empty")
			} else if _, dup := seenDomains[d.Name]; dup {
				add(SeverityWarning, dpath+".name", "duplicate domain %q", d.Name)
			}
			seenDomains[d.Name] = struct{}{}
			if strings.TrimSpace(d.File) == "" {
				add(SeverityError, dpath+".file", "domain file must not be empty")
			}
		}
	}

	if strings.TrimSpace(p.Output.Dir) == "" {
		add(SeverityError, "output.dir", "output directory must not be empty")
	}
	if _, ok := knownFormats[strings.ToLower(strings.TrimPrefix(p.Output.Format, "."))]; !ok {
		add(SeverityError, "output.format", "unsupported format %q", p.Output.Format)
	}

	if kind := strings.TrimSpace(p.Storage.Kind); kind != "" {
		if _, ok := knownStorage[kind]; !ok {
			add(SeverityWarning, "storage.kind", "unknown storage kind %q; ensure a matching backend is registered", kind)
		}
		if strings.TrimSpace(p.Storage.DSN) == "" {
			add(SeverityError, "storage.dsn", "storage.kind %q requires a dsn", kind)
		}
		if p.Storage.BatchSize < 0 {
			add(SeverityError, "storage.batch_size", "batch_size must be >= 0")
		}
	}

	for _, k := range p.Input.unknownKeys() {
		add(SeverityWarning, "input."+k, "unknown input option %q is ignored", k)
	}
	if c := p.Input.String("comma", ""); len([]rune(c)) > 1 {
		add(SeverityError, "input.comma", "comma must be a single character, got %q", c)
	}

	if p.Runtime.LoadWorkers < 0 {
		add(SeverityError, "runtime.load_workers", "load_workers must be >= 0")
	}
	return issues
}
