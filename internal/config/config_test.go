package config

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := fromLookup(lookupFrom(map[string]string{
		"GOOGLE_CLOUD_PROJECT": "my-project",
	}))
	if err != nil {
		t.Fatalf("fromLookup failed: %v", err)
	}

	if cfg.CurrencyCode != "PKR" {
		t.Errorf("CurrencyCode = %q, want PKR", cfg.CurrencyCode)
	}
	if cfg.Timezone != "America/Los_Angeles" {
		t.Errorf("Timezone = %q, want America/Los_Angeles", cfg.Timezone)
	}
	if diff := cmp.Diff(DefaultDimensions, cfg.Dimensions); diff != "" {
		t.Errorf("Dimensions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DefaultMetrics, cfg.Metrics); diff != "" {
		t.Errorf("Metrics mismatch (-want +got):\n%s", diff)
	}

	table, err := cfg.Table()
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if got, want := table.String(), "my-project.admob_reporting_data.admob_network_report"; got != want {
		t.Errorf("Table = %q, want %q", got, want)
	}
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := fromLookup(lookupFrom(map[string]string{
		"TARGET_TABLE":      "other-project.reports.network",
		"CURRENCY_CODE":     "USD",
		"REPORT_TIMEZONE":   "UTC",
		"REPORT_DIMENSIONS": "date, app ,",
		"REPORT_METRICS":    "clicks",
		"REPORT_SORT":       "app:ascending",
		"STAGING_BUCKET":    "staging",
	}))
	if err != nil {
		t.Fatalf("fromLookup failed: %v", err)
	}

	if diff := cmp.Diff([]string{"DATE", "APP"}, cfg.Dimensions); diff != "" {
		t.Errorf("Dimensions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"CLICKS"}, cfg.Metrics); diff != "" {
		t.Errorf("Metrics mismatch (-want +got):\n%s", diff)
	}
	if cfg.SortDimension != "APP" || cfg.SortOrder != "ASCENDING" {
		t.Errorf("sort = %s %s, want APP ASCENDING", cfg.SortDimension, cfg.SortOrder)
	}
	if cfg.StagingBucket != "staging" {
		t.Errorf("StagingBucket = %q", cfg.StagingBucket)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"lowercase currency", func(c *Config) { c.CurrencyCode = "usd" }},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus_Mons" }},
		{"no dimensions", func(c *Config) { c.Dimensions = nil }},
		{"no metrics", func(c *Config) { c.Metrics = nil }},
		{"bad sort order", func(c *Config) { c.SortOrder = "UP" }},
		{"no project for short table", func(c *Config) { c.ProjectID = "" }},
		{"one part table", func(c *Config) { c.TargetTable = "table" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ProjectID = "p"
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestParseTable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		project string
		want    TableRef
		wantErr bool
	}{
		{"fully qualified", "p.d.t", "", TableRef{"p", "d", "t"}, false},
		{"dataset and table", "d.t", "p", TableRef{"p", "d", "t"}, false},
		{"empty component", "p..t", "", TableRef{}, true},
		{"too many parts", "a.b.c.d", "", TableRef{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTable(tt.input, tt.project)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTable() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTable() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseSort(t *testing.T) {
	dim, order, err := ParseSort("date")
	if err != nil {
		t.Fatalf("ParseSort failed: %v", err)
	}
	if dim != "DATE" || order != "DESCENDING" {
		t.Errorf("ParseSort(date) = %s %s", dim, order)
	}

	if _, _, err := ParseSort(":ASCENDING"); err == nil {
		t.Error("expected error for missing dimension")
	}
}
