package query

import (
	"fmt"
	"sort"

	"github.com/kalambet/academate/internal/dataset"
)

// ResultsParams selects a student's results, optionally narrowed.
type ResultsParams struct {
	StudentID    string
	Semester     int    // 0 means all semesters
	AcademicYear string // optional
}

// SubjectResult is one graded subject.
type SubjectResult struct {
	Semester     int
	AcademicYear string
	SubjectCode  string
	SubjectName  string
	Obtained     float64
	Total        float64
	RawObtained  string
	RawTotal     string
	Grade        string
	Status       string
}

// SemesterSummary aggregates one semester. Subjects without credits do not
// contribute to SGPA.
type SemesterSummary struct {
	Semester     int
	AcademicYear string
	Subjects     []SubjectResult
	Obtained     float64
	Total        float64
	Credits      float64
	GradePoints  float64 // sum of grade_points x credits
}

// Percentage is obtained over total marks, or 0 with no marks on record.
func (s SemesterSummary) Percentage() float64 {
	if s.Total == 0 {
		return 0
	}
	return s.Obtained / s.Total * 100
}

// SGPA is the credit-weighted mean grade point, or 0 without credits.
func (s SemesterSummary) SGPA() float64 {
	if s.Credits == 0 {
		return 0
	}
	return s.GradePoints / s.Credits
}

// ResultsResult is a student's transcript grouped by semester.
type ResultsResult struct {
	StudentID  string
	Name       string
	Department string
	Semesters  []SemesterSummary

	// Notice replaces the rendering for unknown students or empty records.
	Notice string
}

// StudentResults summarizes marks and SGPA per semester, ordered by
// semester then subject code.
func (s *Service) StudentResults(p ResultsParams) (*ResultsResult, error) {
	student, ok, err := s.findStudent(p.StudentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &ResultsResult{Notice: fmt.Sprintf("Student %s not found in the system.", idCase(p.StudentID))}, nil
	}

	rows, err := s.data.Rows(dataset.StudentResults)
	if err != nil {
		return nil, err
	}

	id := student.Get("student_id")
	var subjects []SubjectResult
	var credits, points []float64
	for _, row := range rows {
		if !sameFold(row.Get("student_id"), id) {
			continue
		}
		sem, err := row.Int("semester")
		if err != nil {
			return nil, err
		}
		if p.Semester != 0 && sem != p.Semester {
			continue
		}
		if p.AcademicYear != "" && !sameFold(row.Get("academic_year"), p.AcademicYear) {
			continue
		}
		obtained, err := row.Float("marks_obtained")
		if err != nil {
			return nil, err
		}
		total, err := row.Float("total_marks")
		if err != nil {
			return nil, err
		}
		var c, gp float64
		if row.Get("credits") != "" {
			if c, err = row.Float("credits"); err != nil {
				return nil, err
			}
			if row.Get("grade_points") != "" {
				if gp, err = row.Float("grade_points"); err != nil {
					return nil, err
				}
			}
		}
		subjects = append(subjects, SubjectResult{
			Semester:     sem,
			AcademicYear: row.Get("academic_year"),
			SubjectCode:  row.Get("subject_code"),
			SubjectName:  row.Get("subject_name"),
			Obtained:     obtained,
			Total:        total,
			RawObtained:  row.Get("marks_obtained"),
			RawTotal:     row.Get("total_marks"),
			Grade:        row.Get("grade"),
			Status:       row.Get("result_status"),
		})
		credits = append(credits, c)
		points = append(points, gp*c)
	}

	if len(subjects) == 0 {
		return &ResultsResult{Notice: fmt.Sprintf("No results found for student %s.", student.Get("student_id"))}, nil
	}

	idx := make([]int, len(subjects))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		x, y := subjects[idx[a]], subjects[idx[b]]
		if x.Semester != y.Semester {
			return x.Semester < y.Semester
		}
		return x.SubjectCode < y.SubjectCode
	})

	res := &ResultsResult{
		StudentID:  id,
		Name:       student.Get("name"),
		Department: student.Get("department"),
	}
	var cur *SemesterSummary
	for _, i := range idx {
		sub := subjects[i]
		if cur == nil || cur.Semester != sub.Semester {
			res.Semesters = append(res.Semesters, SemesterSummary{
				Semester:     sub.Semester,
				AcademicYear: sub.AcademicYear,
			})
			cur = &res.Semesters[len(res.Semesters)-1]
		}
		cur.Subjects = append(cur.Subjects, sub)
		cur.Obtained += sub.Obtained
		cur.Total += sub.Total
		cur.Credits += credits[i]
		cur.GradePoints += points[i]
	}
	return res, nil
}

// Text renders the transcript with a summary after each semester.
func (r *ResultsResult) Text() string {
	if r.Notice != "" {
		return r.Notice
	}

	lines := []string{
		"**Student Results**",
		fmt.Sprintf("Student: %s (%s)", r.Name, r.StudentID),
		"Department: " + r.Department,
		"",
	}
	for _, sem := range r.Semesters {
		lines = append(lines, fmt.Sprintf("Semester %d - %s", sem.Semester, sem.AcademicYear))
		for _, sub := range sem.Subjects {
			lines = append(lines,
				fmt.Sprintf(" %s (%s)", sub.SubjectName, sub.SubjectCode),
				fmt.Sprintf(" Marks: %s/%s | Grade: %s | Status: %s", sub.RawObtained, sub.RawTotal, sub.Grade, sub.Status),
			)
		}
		lines = append(lines,
			"Semester Summary:",
			fmt.Sprintf("  Total: %.1f/%.1f (%.2f%%)", sem.Obtained, sem.Total, sem.Percentage()),
			fmt.Sprintf("  SGPA: %.2f", sem.SGPA()),
			"",
		)
	}
	return render(lines)
}
