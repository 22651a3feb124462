// Package config defines the panel plan: which files make up each survey
// year, where panels are written and optionally published, and runtime
// settings. Plans are JSON or YAML documents; DefaultPanel reproduces the
// built-in CHARLS 2013/2015/2018 layout.
//
// Example (trimmed):
//
//	{
//	  "job": "charls_panel",
//	  "years": [
//	    { "year": "2013", "base_dir": "2013",
//	      "domains": [ { "name": "demo", "file": "Demographic_Background.dta" } ] }
//	  ],
//	  "output":  { "dir": "processed_data", "format": "dta", "prefix": "panel_" },
//	  "storage": { "kind": "sqlite", "dsn": "panel.db", "table_prefix": "panel_" },
//	  "runtime": { "load_workers": 4 },
//	  "input":   { "encoding": "gbk" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by (*Panel).ApplyDefaults.
const (
	DefaultJob         = "charls_panel"
	DefaultOutputDir   = "processed_data"
	DefaultFormat      = "dta"
	DefaultPrefix      = "panel_"
	DefaultLoadWorkers = 4
)

// Panel is the top-level plan document.
type Panel struct {
	// Job labels metrics and log lines of a run.
	Job string `json:"job" yaml:"job"`

	// Root is prepended to every relative year base directory.
	Root string `json:"root,omitempty" yaml:"root,omitempty"`

	// Years are processed, intersected and written in this order.
	Years []Year `json:"years" yaml:"years"`

	Output  Output        `json:"output" yaml:"output"`
	Storage Storage       `json:"storage" yaml:"storage"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`

	// Input carries reader options for delimited-text inputs:
	// encoding (string), comma (string), na_values ([]string).
	Input Options `json:"input,omitempty" yaml:"input,omitempty"`
}

// Year is one survey wave.
type Year struct {
	Year string `json:"year" yaml:"year"`
	// BaseDir holds the domain files; the year label when empty.
	BaseDir string   `json:"base_dir,omitempty" yaml:"base_dir,omitempty"`
	Domains []Domain `json:"domains" yaml:"domains"`
}

// Domain names one per-topic file of a year. Order matters: the first loaded
// domain is the join base and wins column-name collisions.
type Domain struct {
	Name string `json:"name" yaml:"name"`
	File string `json:"file" yaml:"file"`
}

// Output controls where panels are written.
type Output struct {
	Dir string `json:"dir" yaml:"dir"`
	// Format is the file extension without the dot: dta, csv, csv.gz, tsv or
	// parquet.
	Format string `json:"format" yaml:"format"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

// Storage optionally publishes each panel into a database table
// <table_prefix><year>. An empty Kind disables publishing.
type Storage struct {
	Kind        string `json:"kind" yaml:"kind"`
	DSN         string `json:"dsn" yaml:"dsn"`
	TablePrefix string `json:"table_prefix" yaml:"table_prefix"`
	BatchSize   int    `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
}

// RuntimeConfig controls concurrency.
type RuntimeConfig struct {
	// LoadWorkers bounds concurrent domain reads within a year.
	LoadWorkers int `json:"load_workers" yaml:"load_workers"`
}

// ApplyDefaults fills unset fields.
func (p *Panel) ApplyDefaults() {
	if strings.TrimSpace(p.Job) == "" {
		p.Job = DefaultJob
	}
	if p.Output.Dir == "" {
		p.Output.Dir = DefaultOutputDir
	}
	if p.Output.Format == "" {
		p.Output.Format = DefaultFormat
	}
	if p.Output.Prefix == "" {
		p.Output.Prefix = DefaultPrefix
	}
	if p.Storage.TablePrefix == "" {
		p.Storage.TablePrefix = DefaultPrefix
	}
	if p.Runtime.LoadWorkers == 0 {
		p.Runtime.LoadWorkers = DefaultLoadWorkers
	}
}

// OutputExt returns the output file extension with a leading dot.
func (p Panel) OutputExt() string {
	return "." + strings.TrimPrefix(strings.ToLower(p.Output.Format), ".")
}

// DomainPath resolves the file of d in year y against Root and BaseDir.
func (p Panel) DomainPath(y Year, d Domain) string {
	if filepath.IsAbs(d.File) {
		return d.File
	}
	base := y.BaseDir
	if base == "" {
		base = y.Year
	}
	if !filepath.IsAbs(base) && p.Root != "" {
		base = filepath.Join(p.Root, base)
	}
	return filepath.Join(base, d.File)
}

// Load reads a plan from a .json, .yaml or .yml file and applies defaults.
func Load(path string) (Panel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Panel{}, err
	}
	var p Panel
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &p); err != nil {
			return Panel{}, fmt.Errorf("decode %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &p); err != nil {
			return Panel{}, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return Panel{}, fmt.Errorf("plan %s: unsupported extension (want .json, .yaml or .yml)", path)
	}
	p.ApplyDefaults()
	return p, nil
}

// DefaultPanel returns the built-in plan: CHARLS waves 2013, 2015 and 2018,
// each under a directory named after the year. 2018 ships no biomarker file.
func DefaultPanel() Panel {
	core := func(withBiomarker bool) []Domain {
		ds := []Domain{{Name: "demo", File: "Demographic_Background.dta"}}
		if withBiomarker {
			ds = append(ds, Domain{Name: "biomarker", File: "Biomarker.dta"})
		}
		return append(ds,
			Domain{Name: "health_status", File: "Health_Status_and_Functioning.dta"},
			Domain{Name: "health_care", File: "Health_Care_and_Insurance.dta"},
		)
	}
	p := Panel{
		Years: []Year{
			{Year: "2013", Domains: core(true)},
			{Year: "2015", Domains: core(true)},
			{Year: "2018", Domains: core(false)},
		},
	}
	p.ApplyDefaults()
	return p
}
