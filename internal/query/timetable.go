package query

import (
	"fmt"
	"sort"

	"github.com/kalambet/academate/internal/dataset"
)

var weekdays = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

// TimetableParams selects a class either through a student or directly.
// Explicit Department/Semester/Section take precedence over the student's.
type TimetableParams struct {
	StudentID  string
	Department string
	Semester   int
	Section    string // optional
	WeekDay    string // optional
}

// Slot is one scheduled class.
type Slot struct {
	Day         string
	StartTime   string
	EndTime     string
	SubjectCode string
	SubjectName string
	Faculty     string
	Room        string
	ClassType   string
}

// TimetableResult is a week (or single day) of classes.
type TimetableResult struct {
	Department string
	Semester   int
	Section    string
	Slots      []Slot

	// Notice replaces the rendering when the request could not be resolved.
	Notice string
}

// Timetable returns class slots ordered by weekday then start time.
func (s *Service) Timetable(p TimetableParams) (*TimetableResult, error) {
	if p.StudentID != "" {
		student, ok, err := s.findStudent(p.StudentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &TimetableResult{Notice: fmt.Sprintf("Student %s not found.", idCase(p.StudentID))}, nil
		}
		if p.Department == "" {
			p.Department = student.Get("department")
		}
		if p.Semester == 0 {
			sem, err := student.Int("semester")
			if err != nil {
				return nil, err
			}
			p.Semester = sem
		}
		if p.Section == "" {
			p.Section = student.Get("section")
		}
	}

	if p.Department == "" || p.Semester == 0 {
		return &TimetableResult{Notice: "Please provide either student_id or (department and semester)."}, nil
	}

	rows, err := s.data.Rows(dataset.Timetable)
	if err != nil {
		return nil, err
	}

	res := &TimetableResult{Department: p.Department, Semester: p.Semester, Section: p.Section}
	type ranked struct {
		slot Slot
		day  int
	}
	var matched []ranked
	for _, row := range rows {
		if !sameFold(row.Get("department"), p.Department) {
			continue
		}
		sem, err := row.Int("semester")
		if err != nil {
			return nil, err
		}
		if sem != p.Semester {
			continue
		}
		if p.Section != "" && !sameFold(row.Get("section"), p.Section) {
			continue
		}
		if p.WeekDay != "" && !sameFold(row.Get("day_of_week"), p.WeekDay) {
			continue
		}
		day, ok := weekdays[fold(row.Get("day_of_week"))]
		if !ok {
			return nil, fmt.Errorf("%w: field day_of_week=%q is not a weekday", dataset.ErrBadData, row.Get("day_of_week"))
		}
		if len(matched) == 0 {
			res.Department = row.Get("department")
			if p.Section != "" {
				res.Section = row.Get("section")
			}
		}
		matched = append(matched, ranked{day: day, slot: Slot{
			Day:         row.Get("day_of_week"),
			StartTime:   row.Get("start_time"),
			EndTime:     row.Get("end_time"),
			SubjectCode: row.Get("subject_code"),
			SubjectName: row.Get("subject_name"),
			Faculty:     row.Get("faculty_name"),
			Room:        row.Get("room_number"),
			ClassType:   row.Get("class_type"),
		}})
	}

	if len(matched) == 0 {
		if res.Department, err = s.canonical(dataset.Timetable, "department", p.Department, titleCase); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].day != matched[j].day {
			return matched[i].day < matched[j].day
		}
		return matched[i].slot.StartTime < matched[j].slot.StartTime
	})
	for _, m := range matched {
		res.Slots = append(res.Slots, m.slot)
	}
	return res, nil
}

// Text renders the timetable grouped by day.
func (r *TimetableResult) Text() string {
	if r.Notice != "" {
		return r.Notice
	}
	if len(r.Slots) == 0 {
		return fmt.Sprintf("No timetable found for %s, semester %d.", r.Department, r.Semester)
	}

	header := fmt.Sprintf("Department: %s | Semester: %d", r.Department, r.Semester)
	if r.Section != "" {
		header += " | Section: " + r.Section
	}
	lines := []string{"Class Timetable", header, ""}

	current := ""
	for _, slot := range r.Slots {
		if slot.Day != current {
			current = slot.Day
			lines = append(lines, "**"+current+"**")
		}
		lines = append(lines,
			fmt.Sprintf("  %s - %s: %s (%s)", slot.StartTime, slot.EndTime, slot.SubjectName, slot.SubjectCode),
			fmt.Sprintf("     %s | %s | Type: %s", slot.Faculty, slot.Room, slot.ClassType),
			"",
		)
	}
	return render(lines)
}
