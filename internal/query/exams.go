package query

import (
	"fmt"
	"sort"
	"time"

	"github.com/kalambet/academate/internal/dataset"
)

// ExamScheduleParams selects one department/semester group.
type ExamScheduleParams struct {
	Department   string
	Semester     int
	AcademicYear string // optional
}

// Exam is one scheduled paper.
type Exam struct {
	SubjectCode     string
	SubjectName     string
	Date            time.Time
	Time            string
	DurationMinutes string
	Room            string
	Type            string
	TotalMarks      string
	AcademicYear    string
}

// ExamScheduleResult is the sorted schedule for a group.
type ExamScheduleResult struct {
	Params       ExamScheduleParams
	Department   string
	AcademicYear string
	Exams        []Exam
}

// ExamSchedule returns exams for a department and semester ordered by date
// and start time. Without an academic year, the year of the first matching
// row is reported.
func (s *Service) ExamSchedule(p ExamScheduleParams) (*ExamScheduleResult, error) {
	rows, err := s.data.Rows(dataset.ExamSchedule)
	if err != nil {
		return nil, err
	}

	var matched []dataset.Row
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
		if p.AcademicYear != "" && !sameFold(row.Get("academic_year"), p.AcademicYear) {
			continue
		}
		matched = append(matched, row)
	}

	res := &ExamScheduleResult{Params: p, AcademicYear: p.AcademicYear}
	if len(matched) == 0 {
		if res.Department, err = s.canonical(dataset.ExamSchedule, "department", p.Department, titleCase); err != nil {
			return nil, err
		}
		if p.AcademicYear != "" {
			if res.AcademicYear, err = s.canonical(dataset.ExamSchedule, "academic_year", p.AcademicYear, idCase); err != nil {
				return nil, err
			}
		}
		return res, nil
	}
	res.Department = matched[0].Get("department")
	res.AcademicYear = matched[0].Get("academic_year")

	for _, row := range matched {
		date, err := row.Date("exam_date")
		if err != nil {
			return nil, err
		}
		res.Exams = append(res.Exams, Exam{
			SubjectCode:     row.Get("subject_code"),
			SubjectName:     row.Get("subject_name"),
			Date:            date,
			Time:            row.Get("exam_time"),
			DurationMinutes: row.Get("duration_minutes"),
			Room:            row.Get("room_number"),
			Type:            row.Get("exam_type"),
			TotalMarks:      row.Get("total_marks"),
			AcademicYear:    row.Get("academic_year"),
		})
	}

	sort.SliceStable(res.Exams, func(i, j int) bool {
		a, b := res.Exams[i], res.Exams[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Time < b.Time
	})
	return res, nil
}

// Text renders the schedule for display.
func (r *ExamScheduleResult) Text() string {
	if len(r.Exams) == 0 {
		scope := fmt.Sprintf("%s, semester %d", r.Department, r.Params.Semester)
		if r.AcademicYear != "" {
			scope += " in " + r.AcademicYear
		}
		return fmt.Sprintf("No exam schedule found for %s.", scope)
	}

	lines := []string{
		fmt.Sprintf("**Exam Schedule - %s - Semester %d**", r.Department, r.Params.Semester),
		"Academic Year: " + r.AcademicYear,
		"",
	}
	for _, e := range r.Exams {
		lines = append(lines,
			fmt.Sprintf("%s (%s)", e.SubjectName, e.SubjectCode),
			" Date: "+e.Date.Format("02 January 2006"),
			" Time: "+e.Time,
			fmt.Sprintf(" Duration: %s minutes", e.DurationMinutes),
			" Room: "+e.Room,
			" Type: "+e.Type,
			" Total Marks: "+e.TotalMarks,
			"",
		)
	}
	return render(lines)
}
