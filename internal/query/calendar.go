package query

import (
	"fmt"
	"sort"
	"time"

	"github.com/kalambet/academate/internal/dataset"
)

// DefaultDaysAhead is the calendar window when none is given.
const DefaultDaysAhead = 30

// CalendarParams bounds the calendar listing.
type CalendarParams struct {
	EventType   string // optional
	DaysAhead   *int   // nil means DefaultDaysAhead
	IncludePast bool
}

// Event is one calendar entry with its distance from today in days.
type Event struct {
	Name         string
	Date         time.Time
	EndDate      string
	Type         string
	Description  string
	ApplicableTo string
	Holiday      bool
	Delta        int
}

// CalendarResult lists events in date order.
type CalendarResult struct {
	EventType string
	DaysAhead int
	Events    []Event
}

// AcademicCalendar lists events dated up to DaysAhead days from today.
// Past events are included only when IncludePast is set.
func (s *Service) AcademicCalendar(p CalendarParams) (*CalendarResult, error) {
	days := DefaultDaysAhead
	if p.DaysAhead != nil {
		days = *p.DaysAhead
	}
	today := s.today()
	cutoff := today.AddDate(0, 0, days)

	rows, err := s.data.Rows(dataset.AcademicCalendar)
	if err != nil {
		return nil, err
	}

	res := &CalendarResult{DaysAhead: days}
	if p.EventType != "" {
		if res.EventType, err = s.canonical(dataset.AcademicCalendar, "event_type", p.EventType, titleCase); err != nil {
			return nil, err
		}
	}
	for _, row := range rows {
		date, err := row.Date("event_date")
		if err != nil {
			return nil, err
		}
		if !p.IncludePast && date.Before(today) {
			continue
		}
		if date.After(cutoff) {
			continue
		}
		if p.EventType != "" && !sameFold(row.Get("event_type"), p.EventType) {
			continue
		}
		res.Events = append(res.Events, Event{
			Name:         row.Get("event_name"),
			Date:         date,
			EndDate:      row.Get("end_date"),
			Type:         row.Get("event_type"),
			Description:  row.Get("description"),
			ApplicableTo: row.Get("applicable_to"),
			Holiday:      sameFold(row.Get("is_holiday"), "true"),
			Delta:        int(date.Sub(today).Hours() / 24),
		})
	}

	sort.SliceStable(res.Events, func(i, j int) bool {
		return res.Events[i].Date.Before(res.Events[j].Date)
	})
	return res, nil
}

// When describes the event's distance from today.
func (e Event) When() string {
	switch {
	case e.Delta < 0:
		return fmt.Sprintf("%d days ago", -e.Delta)
	case e.Delta == 0:
		return "TODAY"
	case e.Delta == 1:
		return "TOMORROW"
	default:
		return fmt.Sprintf("in %d days", e.Delta)
	}
}

// Text renders the calendar listing.
func (r *CalendarResult) Text() string {
	if len(r.Events) == 0 {
		filter := ""
		if r.EventType != "" {
			filter = fmt.Sprintf(" of type '%s'", r.EventType)
		}
		return fmt.Sprintf("No events%s found in the next %d days.", filter, r.DaysAhead)
	}

	lines := []string{fmt.Sprintf("Academic Calendar - Events in the next %d days", r.DaysAhead), ""}
	for _, e := range r.Events {
		span := e.Date.Format(dataset.DateLayout)
		if e.EndDate != "" {
			span += " - " + e.EndDate
		}
		lines = append(lines,
			fmt.Sprintf("%s (%s)", e.Name, e.When()),
			" "+span,
			" Type: "+e.Type,
		)
		if e.Description != "" {
			lines = append(lines, " "+e.Description)
		}
		if e.ApplicableTo != "" {
			lines = append(lines, " Applicable to: "+e.ApplicableTo)
		}
		if e.Holiday {
			lines = append(lines, " Holiday")
		}
		lines = append(lines, "")
	}
	return render(lines)
}
