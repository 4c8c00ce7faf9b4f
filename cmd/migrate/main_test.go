package main

import (
	"io"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"

	"github.com/dvloznov/admob-reporting/internal/config"
)

var testTable = config.TableRef{ProjectID: "proj", DatasetID: "admob_reporting_data", TableID: "admob_network_report"}

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_network_report_daily.sql", true, 1, "network_report_daily"},
		{"0012_a_b.sql", true, 12, "a_b"},
		{"001_invalid.sql", false, 0, ""},       // wrong number format
		{"0001_test", false, 0, ""},             // missing .sql
		{"0001.sql", false, 0, ""},              // missing name
		{"invalid_0001_test.sql", false, 0, ""}, // wrong order
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseFilename(tt.filename)
			if ok != tt.valid {
				t.Fatalf("parseFilename(%q) ok = %v, want %v", tt.filename, ok, tt.valid)
			}
			if version != tt.version || name != tt.name {
				t.Errorf("parseFilename(%q) = %d, %q", tt.filename, version, name)
			}
		})
	}
}

func TestMigrationChecksumConsistency(t *testing.T) {
	a := checksum([]byte("CREATE VIEW v AS SELECT 1;"))
	b := checksum([]byte("CREATE VIEW v AS SELECT 1;"))
	c := checksum([]byte("CREATE VIEW w AS SELECT 1;"))

	if a != b {
		t.Error("same content should produce the same checksum")
	}
	if a == c {
		t.Error("different content should produce different checksums")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %q", a)
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_second.sql": {Data: []byte("SELECT * FROM `{{PROJECT_ID}}.{{DATASET_ID}}.{{TABLE_ID}}_daily`")},
		"0001_first.sql":  {Data: []byte("SELECT * FROM `{{PROJECT_ID}}.{{DATASET_ID}}.{{TABLE_ID}}`")},
		"README.md":       {Data: []byte("notes")},
	}

	migrations, err := readMigrations(fsys, testTable, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("readMigrations failed: %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("migrations not sorted: %d, %d", migrations[0].Version, migrations[1].Version)
	}
	if want := "SELECT * FROM `proj.admob_reporting_data.admob_network_report`"; migrations[0].SQL != want {
		t.Errorf("SQL = %q, want %q", migrations[0].SQL, want)
	}
	// Checksums ignore the rendered table.
	if migrations[0].Checksum != checksum(fsys["0001_first.sql"].Data) {
		t.Error("checksum should be computed over the raw file")
	}
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1")},
		"0001_b.sql": {Data: []byte("SELECT 2")},
	}

	if _, err := readMigrations(fsys, testTable, zerolog.New(io.Discard)); err == nil {
		t.Error("expected duplicate version error")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	fsys, err := fs.Sub(embedded, "migrations")
	if err != nil {
		t.Fatalf("fs.Sub failed: %v", err)
	}

	migrations, err := readMigrations(fsys, testTable, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("readMigrations failed: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("no built-in migrations")
	}
	for _, m := range migrations {
		if strings.Contains(m.SQL, "{{") {
			t.Errorf("%s has unreplaced placeholders", m.Filename)
		}
		if !strings.Contains(m.SQL, "proj.admob_reporting_data.admob_network_report") {
			t.Errorf("%s does not reference the report table", m.Filename)
		}
	}
}

func TestPendingMigrations(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "first", Checksum: "aaa"},
		{Version: 2, Name: "second", Checksum: "bbb"},
		{Version: 3, Name: "third", Checksum: "ccc"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: "aaa"},
		{Version: 2, Checksum: "changed"},
	}

	var buf strings.Builder
	pending := pendingMigrations(migrations, applied, zerolog.New(&buf))

	if len(pending) != 1 || pending[0].Version != 3 {
		t.Errorf("pending = %+v, want only version 3", pending)
	}
	if !strings.Contains(buf.String(), "changed since it was applied") {
		t.Error("expected a warning for the changed migration")
	}
}
