package transform

import (
	"fmt"

	"github.com/dvloznov/admob-reporting/internal/admob"
)

// CountryDimensionKey marks the aggregate rows the API adds on top of the
// per-country rows. Any record carrying the key is dropped, whatever its value.
const CountryDimensionKey = "dimensionValues_COUNTRY"

// Predicate reports whether a record should be kept.
type Predicate func(FlatRecord) bool

// Retain returns the records for which keep is true, in their original
// order. The input slice is left untouched.
func Retain(records []FlatRecord, keep Predicate) []FlatRecord {
	out := make([]FlatRecord, 0, len(records))
	for _, rec := range records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// HasCountryDimension reports whether rec carries the COUNTRY dimension key.
func HasCountryDimension(rec FlatRecord) bool {
	_, ok := rec[CountryDimensionKey]
	return ok
}

// WithoutCountryDimension is the predicate used for network reports.
func WithoutCountryDimension(rec FlatRecord) bool {
	return !HasCountryDimension(rec)
}

// Rows flattens the data rows of resp and drops those with a COUNTRY
// dimension key. The footer's matchingRowCount decides how many rows are read.
func Rows(resp admob.Response) ([]FlatRecord, error) {
	rows, err := resp.DataRows()
	if err != nil {
		return nil, fmt.Errorf("Rows: %w", err)
	}

	flat := make([]FlatRecord, len(rows))
	for i, row := range rows {
		flat[i] = Flatten(row)
	}

	return Retain(flat, WithoutCountryDimension), nil
}
