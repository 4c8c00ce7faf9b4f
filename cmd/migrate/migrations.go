package main

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/admob-reporting/internal/config"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Pattern to match migration files: 0001_name.sql
var filenamePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// parseFilename extracts version and name from a migration file name.
func parseFilename(filename string) (int, string, bool) {
	matches := filenamePattern.FindStringSubmatch(filename)
	if matches == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", false
	}
	return version, matches[2], true
}

// checksum is computed over the file before placeholders are replaced, so
// the same migration has one checksum whatever table it is applied to.
func checksum(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// render replaces the table placeholders in a migration.
func render(sql string, table config.TableRef) string {
	return strings.NewReplacer(
		"{{PROJECT_ID}}", table.ProjectID,
		"{{DATASET_ID}}", table.DatasetID,
		"{{TABLE_ID}}", table.TableID,
	).Replace(sql)
}

// readMigrations reads all migration files at the root of fsys, sorted by version.
func readMigrations(fsys fs.FS, table config.TableRef, log zerolog.Logger) ([]Migration, error) {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		version, name, ok := parseFilename(file.Name())
		if !ok {
			log.Warn().Str("file", file.Name()).Msg("Skipping file with invalid format")
			continue
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, other, file.Name())
		}
		seen[version] = file.Name()

		content, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: file.Name(),
			SQL:      render(string(content), table),
			Checksum: checksum(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// pendingMigrations returns the migrations not applied yet. Applied
// migrations whose file changed since are logged, not re-run.
func pendingMigrations(migrations []Migration, applied []AppliedMigration, log zerolog.Logger) []Migration {
	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		appliedByVersion[am.Version] = am
	}

	var pending []Migration
	for _, m := range migrations {
		am, ok := appliedByVersion[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if am.Checksum != "" && am.Checksum != m.Checksum {
			log.Warn().
				Int("version", m.Version).
				Str("name", m.Name).
				Msg("Applied migration has changed since it was applied")
		}
		log.Info().Msgf("  [SKIP] %04d_%s (already applied)", m.Version, m.Name)
	}
	return pending
}
