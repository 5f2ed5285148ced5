package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the on-disk format of every date column.
const DateLayout = "2006-01-02"

var (
	// ErrUnknownDataset is returned for a dataset name outside the fixed set.
	ErrUnknownDataset = errors.New("dataset not found")

	// ErrFileMissing is returned when a known dataset has no file on disk.
	ErrFileMissing = errors.New("file missing")

	// ErrBadData is returned when a field cannot be parsed as the type a
	// query needs. It indicates broken source data, not a caller mistake.
	ErrBadData = errors.New("malformed data")
)

// Row is one CSV record keyed by header name. Values are whitespace-trimmed.
type Row map[string]string

// Get returns the value of field, or "" if the row has no such column.
func (r Row) Get(field string) string {
	return r[field]
}

// Has reports whether field is present and non-empty.
func (r Row) Has(field string) bool {
	return r[field] != ""
}

// Int parses field as a base-10 integer.
func (r Row) Int(field string) (int, error) {
	v := r[field]
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: field %s=%q is not an integer", ErrBadData, field, v)
	}
	return n, nil
}

// Float parses field as a decimal number.
func (r Row) Float(field string) (float64, error) {
	v := r[field]
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: field %s=%q is not a number", ErrBadData, field, v)
	}
	return f, nil
}

// Date parses field using DateLayout.
func (r Row) Date(field string) (time.Time, error) {
	v := r[field]
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: field %s=%q is not a YYYY-MM-DD date", ErrBadData, field, v)
	}
	return t, nil
}
