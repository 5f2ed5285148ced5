package tools

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/academate/internal/dataset"
	"github.com/kalambet/academate/internal/query"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	loader := dataset.NewLoader(filepath.Join("..", "query", "testdata"), 0)
	svc := query.NewServiceWithClock(loader, fixedClock{time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)})
	return NewRegistry(svc)
}

func TestRegistry_ToolsHaveSchemas(t *testing.T) {
	r := newTestRegistry(t)
	want := []string{ExamSchedule, PreviousPapers, ClassTimetable, FacultyInfo, AcademicCalendar, StudentResults}

	defs := r.Tools()
	if len(defs) != len(want) {
		t.Fatalf("got %d tools, want %d", len(defs), len(want))
	}
	for i, def := range defs {
		if def.Name != want[i] {
			t.Errorf("tool %d = %q, want %q", i, def.Name, want[i])
		}
		if def.Description == "" {
			t.Errorf("tool %q has no description", def.Name)
		}
		if def.InputSchema.Type != "object" {
			t.Errorf("tool %q schema type = %q, want object", def.Name, def.InputSchema.Type)
		}
	}

	exam := defs[0]
	if len(exam.InputSchema.Required) != 2 {
		t.Errorf("exam schedule required = %v, want department and semester", exam.InputSchema.Required)
	}
}

func TestCall_CoercesArguments(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name string
		tool string
		args Args
		want string
	}{
		{"json number", ExamSchedule, Args{"department": "Computer Science", "semester": float64(3), "academic_year": "2024-25"}, "Data Structures"},
		{"numeric string", ExamSchedule, Args{"department": "computer science", "semester": "3"}, "Hall A-101"},
		{"int", PreviousPapers, Args{"subject_code": "CS301", "years": 2}, "2025 - End Semester"},
		{"student timetable", ClassTimetable, Args{"student_id": "CS2024001"}, "Monday"},
		{"single day", ClassTimetable, Args{"student_id": "CS2024001", "week_day": "friday"}, "Object Oriented Programming"},
		{"faculty", FacultyInfo, Args{"faculty_name": "ramesh"}, "Dr. Ramesh Kumar"},
		{"string bool", AcademicCalendar, Args{"include_past": "true", "days_ahead": "7"}, "Freshers Welcome"},
		{"results", StudentResults, Args{"student_id": "CS2024001", "semester": 1}, "SGPA: 8.57"},
		{"not found", StudentResults, Args{"student_id": "NOPE"}, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Call(ctx, tt.tool, tt.args)
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("result missing %q:\n%s", tt.want, got)
			}
		})
	}
}

func TestCall_DaysAheadZeroIsHonored(t *testing.T) {
	r := newTestRegistry(t)
	got, err := r.Call(context.Background(), AcademicCalendar, Args{"days_ahead": 0})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !strings.Contains(got, "TODAY") || strings.Contains(got, "TOMORROW") {
		t.Errorf("days_ahead=0 should list only today's events:\n%s", got)
	}
}

func TestCall_Errors(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name string
		tool string
		args Args
		want error
	}{
		{"unknown tool", "delete_everything", nil, ErrUnknownTool},
		{"missing required string", PreviousPapers, nil, ErrInvalidArgument},
		{"missing required int", ExamSchedule, Args{"department": "Computer Science"}, ErrInvalidArgument},
		{"empty required int", ExamSchedule, Args{"department": "Computer Science", "semester": ""}, ErrInvalidArgument},
		{"fractional int", ExamSchedule, Args{"department": "Computer Science", "semester": 2.5}, ErrInvalidArgument},
		{"word for int", StudentResults, Args{"student_id": "CS2024001", "semester": "first"}, ErrInvalidArgument},
		{"bool for int", PreviousPapers, Args{"subject_code": "CS301", "years": true}, ErrInvalidArgument},
		{"negative years", PreviousPapers, Args{"subject_code": "CS301", "years": -2}, ErrInvalidArgument},
		{"zero years", PreviousPapers, Args{"subject_code": "CS301", "years": "0"}, ErrInvalidArgument},
		{"negative days ahead", AcademicCalendar, Args{"days_ahead": -1}, ErrInvalidArgument},
		{"bad bool", AcademicCalendar, Args{"include_past": "sometimes"}, ErrInvalidArgument},
		{"object for string", FacultyInfo, Args{"faculty_name": map[string]any{"x": 1}}, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Call(ctx, tt.tool, tt.args)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCall_DataErrorsPropagate(t *testing.T) {
	svc := query.NewService(dataset.NewLoader(t.TempDir(), 0))
	r := NewRegistry(svc)

	_, err := r.Call(context.Background(), FacultyInfo, Args{"faculty_name": "x"})
	if !errors.Is(err, dataset.ErrFileMissing) {
		t.Errorf("err = %v, want ErrFileMissing", err)
	}
}
