package config

import (
	"fmt"
	"strings"
)

// TableRef identifies a BigQuery table.
type TableRef struct {
	ProjectID string
	DatasetID string
	TableID   string
}

// String returns the fully-qualified "project.dataset.table" name.
func (t TableRef) String() string {
	return t.ProjectID + "." + t.DatasetID + "." + t.TableID
}

// Table resolves TargetTable. A two-part name takes its project from ProjectID.
func (c *Config) Table() (TableRef, error) {
	return ParseTable(c.TargetTable, c.ProjectID)
}

// ParseTable parses "project.dataset.table" or "dataset.table".
func ParseTable(name, defaultProject string) (TableRef, error) {
	parts := strings.Split(strings.TrimSpace(name), ".")
	for _, p := range parts {
		if p == "" {
			return TableRef{}, fmt.Errorf("%w: table %q has an empty component", ErrInvalidConfig, name)
		}
	}

	switch len(parts) {
	case 3:
		return TableRef{ProjectID: parts[0], DatasetID: parts[1], TableID: parts[2]}, nil
	case 2:
		if defaultProject == "" {
			return TableRef{}, fmt.Errorf("%w: table %q needs a project (set GOOGLE_CLOUD_PROJECT)", ErrInvalidConfig, name)
		}
		return TableRef{ProjectID: defaultProject, DatasetID: parts[0], TableID: parts[1]}, nil
	default:
		return TableRef{}, fmt.Errorf("%w: table %q must be project.dataset.table", ErrInvalidConfig, name)
	}
}
