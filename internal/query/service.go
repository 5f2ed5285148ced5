// Package query implements the six college lookups over the CSV datasets.
//
// Every lookup returns a typed result whose Text method renders the answer
// shown to students. Filters on strings are case-insensitive, numeric filters
// compare integers, and results are sorted deterministically before
// rendering. Rows with malformed numbers or dates surface as
// dataset.ErrBadData errors.
package query

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kalambet/academate/internal/dataset"
)

// Source is the read side of a dataset.Loader.
type Source interface {
	Rows(name string) ([]dataset.Row, error)
	Map(name, keyField string) (map[string]dataset.Row, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Service answers lookups against a Source.
type Service struct {
	data  Source
	clock Clock
}

// NewService creates a Service reading from data with the wall clock.
func NewService(data Source) *Service {
	return &Service{data: data, clock: realClock{}}
}

// NewServiceWithClock creates a Service with a custom clock (for testing).
func NewServiceWithClock(data Source, clock Clock) *Service {
	return &Service{data: data, clock: clock}
}

// today returns the clock's current date at midnight UTC so that day deltas
// are plain integer arithmetic.
func (s *Service) today() time.Time {
	now := s.clock.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sameFold(a, b string) bool {
	return fold(a) == fold(b)
}

// findStudent looks a student up by exact id first, then case-insensitively
// in file order.
func (s *Service) findStudent(id string) (dataset.Row, bool, error) {
	students, err := s.data.Map(dataset.Students, "student_id")
	if err != nil {
		return nil, false, err
	}
	if row, ok := students[id]; ok {
		return row, true, nil
	}
	rows, err := s.data.Rows(dataset.Students)
	if err != nil {
		return nil, false, err
	}
	for _, row := range rows {
		if row.Has("student_id") && sameFold(row.Get("student_id"), id) {
			return row, true, nil
		}
	}
	return nil, false, nil
}

// canonical spells value the way the first case-insensitively equal field in
// the dataset does, so echoed filters do not depend on the caller's casing.
// Values absent from the data go through fallback.
func (s *Service) canonical(name, field, value string, fallback func(string) string) (string, error) {
	rows, err := s.data.Rows(name)
	if err != nil {
		return "", err
	}
	for _, row := range rows {
		if sameFold(row.Get(field), value) {
			return row.Get(field), nil
		}
	}
	return fallback(strings.TrimSpace(value)), nil
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func idCase(s string) string {
	return strings.ToUpper(s)
}

func render(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
