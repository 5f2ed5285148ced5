// Package eval runs a fixed set of smoke cases against the lookup tools.
package eval

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/academate/internal/tools"
)

const previewLen = 200

// Caller executes a named tool.
type Caller interface {
	Call(ctx context.Context, name string, args tools.Args) (string, error)
}

// Case is one evaluation: a tool call and substrings its output must contain
// (case-insensitive).
type Case struct {
	Name     string
	Tool     string
	Args     tools.Args
	Expected []string
}

// Result is the outcome of one Case.
type Result struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Preview string `json:"preview"`
	Error   string `json:"error,omitempty"`
}

// DefaultCases covers each tool once against the bundled data.
func DefaultCases() []Case {
	return []Case{
		{
			Name:     "Exam Schedule",
			Tool:     tools.ExamSchedule,
			Args:     tools.Args{"department": "Computer Science", "semester": 3, "academic_year": "2024-25"},
			Expected: []string{"Data Structures", "Hall"},
		},
		{
			Name:     "Timetable",
			Tool:     tools.ClassTimetable,
			Args:     tools.Args{"student_id": "CS2024001"},
			Expected: []string{"Department:", "Monday"},
		},
		{
			Name:     "Faculty",
			Tool:     tools.FacultyInfo,
			Args:     tools.Args{"faculty_name": "Ramesh"},
			Expected: []string{"Ramesh", "Faculty"},
		},
		{
			Name:     "Academic Calendar",
			Tool:     tools.AcademicCalendar,
			Args:     tools.Args{"days_ahead": 30},
			Expected: []string{"events"},
		},
		{
			Name:     "Student Results",
			Tool:     tools.StudentResults,
			Args:     tools.Args{"student_id": "CS2024001"},
			Expected: []string{"Student", "SGPA"},
		},
		{
			Name:     "Previous Papers",
			Tool:     tools.PreviousPapers,
			Args:     tools.Args{"subject_code": "CS301", "years": 3},
			Expected: []string{"CS301"},
		},
	}
}

// Run executes cases in order. A tool error fails its case without stopping
// the run.
func Run(ctx context.Context, c Caller, cases []Case) []Result {
	results := make([]Result, 0, len(cases))
	for _, tc := range cases {
		out, err := c.Call(ctx, tc.Tool, tc.Args)
		if err != nil {
			results = append(results, Result{Name: tc.Name, Error: err.Error()})
			continue
		}
		results = append(results, Result{
			Name:    tc.Name,
			Passed:  containsAll(out, tc.Expected),
			Preview: preview(out),
		})
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func containsAll(out string, want []string) bool {
	lower := strings.ToLower(out)
	for _, w := range want {
		if !strings.Contains(lower, strings.ToLower(w)) {
			return false
		}
	}
	return true
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	return string([]rune(s)[:previewLen])
}
