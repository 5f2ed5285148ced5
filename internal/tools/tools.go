// Package tools exposes the college lookups as named, schema-described tools
// that an LLM agent, the MCP server, or the HTTP API can call.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/academate/internal/query"
)

// Tool names.
const (
	ExamSchedule     = "query_exam_schedule"
	PreviousPapers   = "fetch_previous_papers"
	ClassTimetable   = "get_class_timetable"
	FacultyInfo      = "get_faculty_info"
	AcademicCalendar = "get_academic_calendar"
	StudentResults   = "check_student_results"
)

var (
	// ErrUnknownTool is returned by Call for a name that is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArgument is returned when an argument is missing or has the
	// wrong type.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Args are loosely typed call arguments, as decoded from JSON.
type Args map[string]any

type handler func(ctx context.Context, args Args) (string, error)

type entry struct {
	def mcp.Tool
	fn  handler
}

// Registry maps tool names to their schema and implementation.
type Registry struct {
	svc     *query.Service
	entries []entry
	byName  map[string]int
	logger  *slog.Logger
}

// NewRegistry registers the six lookups backed by svc.
func NewRegistry(svc *query.Service) *Registry {
	r := &Registry{svc: svc, byName: make(map[string]int), logger: slog.Default()}

	r.add(mcp.NewTool(ExamSchedule,
		mcp.WithDescription("Get the exam schedule for a department and semester, sorted by date and time."),
		mcp.WithString("department", mcp.Description("Department name, e.g. Computer Science"), mcp.Required()),
		mcp.WithNumber("semester", mcp.Description("Semester number"), mcp.Required()),
		mcp.WithString("academic_year", mcp.Description("Academic year such as 2024-25")),
	), r.examSchedule)

	r.add(mcp.NewTool(PreviousPapers,
		mcp.WithDescription("List previous question papers for a subject from recent years, newest first."),
		mcp.WithString("subject_code", mcp.Description("Subject code, e.g. CS301"), mcp.Required()),
		mcp.WithNumber("years", mcp.Description("How many years back to search, at least 1 (default 3)")),
		mcp.WithString("paper_type", mcp.Description("Paper type such as End Semester or Mid Semester")),
	), r.previousPapers)

	r.add(mcp.NewTool(ClassTimetable,
		mcp.WithDescription("Get the weekly class timetable for a student, or for a department and semester."),
		mcp.WithString("student_id", mcp.Description("Student ID; department, semester and section are taken from the student record")),
		mcp.WithString("department", mcp.Description("Department name")),
		mcp.WithNumber("semester", mcp.Description("Semester number")),
		mcp.WithString("section", mcp.Description("Section letter")),
		mcp.WithString("week_day", mcp.Description("Only show this weekday, e.g. Monday")),
	), r.timetable)

	r.add(mcp.NewTool(FacultyInfo,
		mcp.WithDescription("Look up faculty members by ID, name (partial match) or department."),
		mcp.WithString("faculty_name", mcp.Description("Full or partial faculty name")),
		mcp.WithString("department", mcp.Description("Department name")),
		mcp.WithString("faculty_id", mcp.Description("Faculty ID, e.g. FAC001")),
	), r.facultyInfo)

	r.add(mcp.NewTool(AcademicCalendar,
		mcp.WithDescription("List academic calendar events (exams, holidays, deadlines) in the coming days."),
		mcp.WithString("event_type", mcp.Description("Event type such as exam, holiday, deadline or event")),
		mcp.WithNumber("days_ahead", mcp.Description("Number of days to look ahead (default 30)")),
		mcp.WithBoolean("include_past", mcp.Description("Also list events that already happened")),
	), r.academicCalendar)

	r.add(mcp.NewTool(StudentResults,
		mcp.WithDescription("Show a student's marks, grades and SGPA per semester."),
		mcp.WithString("student_id", mcp.Description("Student ID"), mcp.Required()),
		mcp.WithNumber("semester", mcp.Description("Only this semester")),
		mcp.WithString("academic_year", mcp.Description("Only this academic year")),
	), r.studentResults)

	return r
}

func (r *Registry) add(def mcp.Tool, fn handler) {
	r.byName[def.Name] = len(r.entries)
	r.entries = append(r.entries, entry{def: def, fn: fn})
}

// Tools returns the tool definitions in registration order.
func (r *Registry) Tools() []mcp.Tool {
	defs := make([]mcp.Tool, len(r.entries))
	for i, e := range r.entries {
		defs[i] = e.def
	}
	return defs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.def.Name
	}
	return names
}

// Call runs the named tool and returns its rendered answer.
func (r *Registry) Call(ctx context.Context, name string, args Args) (string, error) {
	i, ok := r.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if args == nil {
		args = Args{}
	}

	start := time.Now()
	out, err := r.entries[i].fn(ctx, args)
	if err != nil {
		r.logger.Warn("tool call failed", "tool", name, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return "", err
	}
	r.logger.Debug("tool call", "tool", name, "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (r *Registry) examSchedule(_ context.Context, args Args) (string, error) {
	var p query.ExamScheduleParams
	var err error
	if p.Department, err = args.requireStr("department"); err != nil {
		return "", err
	}
	if p.Semester, err = args.requireInteger("semester"); err != nil {
		return "", err
	}
	if p.AcademicYear, err = args.str("academic_year"); err != nil {
		return "", err
	}
	res, err := r.svc.ExamSchedule(p)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

func (r *Registry) previousPapers(_ context.Context, args Args) (string, error) {
	var p query.PreviousPapersParams
	var err error
	if p.SubjectCode, err = args.requireStr("subject_code"); err != nil {
		return "", err
	}
	if p.Years, err = args.atLeast("years", 1); err != nil {
		return "", err
	}
	if p.PaperType, err = args.str("paper_type"); err != nil {
		return "", err
	}
	res, err := r.svc.PreviousPapers(p)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

func (r *Registry) timetable(_ context.Context, args Args) (string, error) {
	var p query.TimetableParams
	var err error
	if p.StudentID, err = args.str("student_id"); err != nil {
		return "", err
	}
	if p.Department, err = args.str("department"); err != nil {
		return "", err
	}
	if p.Semester, err = args.integer("semester"); err != nil {
		return "", err
	}
	if p.Section, err = args.str("section"); err != nil {
		return "", err
	}
	if p.WeekDay, err = args.str("week_day"); err != nil {
		return "", err
	}
	res, err := r.svc.Timetable(p)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

func (r *Registry) facultyInfo(_ context.Context, args Args) (string, error) {
	var p query.FacultyParams
	var err error
	if p.Name, err = args.str("faculty_name"); err != nil {
		return "", err
	}
	if p.Department, err = args.str("department"); err != nil {
		return "", err
	}
	if p.FacultyID, err = args.str("faculty_id"); err != nil {
		return "", err
	}
	res, err := r.svc.FacultyInfo(p)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

func (r *Registry) academicCalendar(_ context.Context, args Args) (string, error) {
	var p query.CalendarParams
	var err error
	if p.EventType, err = args.str("event_type"); err != nil {
		return "", err
	}
	if !args.blank("days_ahead") {
		days, err := args.atLeast("days_ahead", 0)
		if err != nil {
			return "", err
		}
		p.DaysAhead = &days
	}
	if p.IncludePast, err = args.boolean("include_past"); err != nil {
		return "", err
	}
	res, err := r.svc.AcademicCalendar(p)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

func (r *Registry) studentResults(_ context.Context, args Args) (string, error) {
	var p query.ResultsParams
	var err error
	if p.StudentID, err = args.requireStr("student_id"); err != nil {
		return "", err
	}
	if p.Semester, err = args.integer("semester"); err != nil {
		return "", err
	}
	if p.AcademicYear, err = args.str("academic_year"); err != nil {
		return "", err
	}
	res, err := r.svc.StudentResults(p)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}
