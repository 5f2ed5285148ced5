package query

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/academate/internal/dataset"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewServiceWithClock(dataset.NewLoader("testdata", 0), fixedClock{testNow})
}

// newServiceWith copies testdata into a temp dir and overrides one file.
func newServiceWith(t *testing.T, file, content string) *Service {
	t.Helper()
	dir := t.TempDir()
	entries, err := os.ReadDir("testdata")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		b, err := os.ReadFile(filepath.Join("testdata", e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, e.Name()), b, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewServiceWithClock(dataset.NewLoader(dir, 0), fixedClock{testNow})
}

func assertContains(t *testing.T, text string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(text, w) {
			t.Errorf("output missing %q:\n%s", w, text)
		}
	}
}

func assertOrder(t *testing.T, text string, parts ...string) {
	t.Helper()
	last := -1
	for _, p := range parts {
		i := strings.Index(text, p)
		if i < 0 {
			t.Fatalf("output missing %q:\n%s", p, text)
		}
		if i <= last {
			t.Fatalf("%q out of order:\n%s", p, text)
		}
		last = i
	}
}

func TestExamSchedule_SortedByDateThenTime(t *testing.T) {
	s := newTestService(t)
	res, err := s.ExamSchedule(ExamScheduleParams{Department: "Computer Science", Semester: 3, AcademicYear: "2024-25"})
	if err != nil {
		t.Fatalf("ExamSchedule: %v", err)
	}
	if len(res.Exams) != 4 {
		t.Fatalf("got %d exams, want 4", len(res.Exams))
	}
	want := []string{"CS303", "CS302", "CS301", "CS304"}
	for i, code := range want {
		if res.Exams[i].SubjectCode != code {
			t.Errorf("exam %d = %s, want %s", i, res.Exams[i].SubjectCode, code)
		}
	}

	text := res.Text()
	assertContains(t, text, "**Exam Schedule - Computer Science - Semester 3**", "Academic Year: 2024-25", "Data Structures", "Hall A-101", "10 December 2024")
	assertOrder(t, text, "Discrete Mathematics", "Database Management Systems", "Data Structures (CS301)", "Object Oriented Programming")
}

func TestExamSchedule_InfersYearFromFirstMatch(t *testing.T) {
	s := newTestService(t)
	res, err := s.ExamSchedule(ExamScheduleParams{Department: "Computer Science", Semester: 3})
	if err != nil {
		t.Fatalf("ExamSchedule: %v", err)
	}
	if res.AcademicYear != "2024-25" {
		t.Errorf("AcademicYear = %q, want 2024-25", res.AcademicYear)
	}
	if len(res.Exams) != 5 {
		t.Errorf("got %d exams, want 5 across both years", len(res.Exams))
	}
}

func TestExamSchedule_NotFound(t *testing.T) {
	s := newTestService(t)
	res, err := s.ExamSchedule(ExamScheduleParams{Department: "Civil", Semester: 2, AcademicYear: "2024-25"})
	if err != nil {
		t.Fatalf("ExamSchedule: %v", err)
	}
	want := "No exam schedule found for Civil, semester 2 in 2024-25."
	if got := res.Text(); got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}

func TestPreviousPapers_WindowAndOrder(t *testing.T) {
	s := newTestService(t)
	res, err := s.PreviousPapers(PreviousPapersParams{SubjectCode: "CS301", Years: 3})
	if err != nil {
		t.Fatalf("PreviousPapers: %v", err)
	}
	var years []int
	for _, p := range res.Papers {
		years = append(years, p.Year)
		if p.Year < testNow.Year()-3 {
			t.Errorf("paper year %d outside window", p.Year)
		}
	}
	want := []int{2025, 2024, 2024, 2023}
	if len(years) != len(want) {
		t.Fatalf("years = %v, want %v", years, want)
	}
	for i := range want {
		if years[i] != want[i] {
			t.Fatalf("years = %v, want %v", years, want)
		}
	}
	if res.Papers[1].Type != "Mid Semester" {
		t.Errorf("equal years must keep file order, got %q first", res.Papers[1].Type)
	}

	text := res.Text()
	assertContains(t, text, "Previous Papers - CS301", "2025 - End Semester", "Link: Not available")
	if strings.Contains(text, "2021") {
		t.Errorf("2021 paper should be outside the window:\n%s", text)
	}
}

func TestPreviousPapers_DefaultYearsAndType(t *testing.T) {
	s := newTestService(t)
	res, err := s.PreviousPapers(PreviousPapersParams{SubjectCode: "cs301", PaperType: "mid semester"})
	if err != nil {
		t.Fatalf("PreviousPapers: %v", err)
	}
	if res.Years != DefaultPaperYears {
		t.Errorf("Years = %d, want %d", res.Years, DefaultPaperYears)
	}
	if len(res.Papers) != 1 || res.Papers[0].Year != 2024 {
		t.Errorf("papers = %+v, want the 2024 mid semester only", res.Papers)
	}
}

func TestPreviousPapers_NotFound(t *testing.T) {
	s := newTestService(t)
	res, err := s.PreviousPapers(PreviousPapersParams{SubjectCode: "ZZ999", Years: 2})
	if err != nil {
		t.Fatalf("PreviousPapers: %v", err)
	}
	want := "No previous papers found for ZZ999 in the last 2 years."
	if got := res.Text(); got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}

func TestTimetable_ByStudent(t *testing.T) {
	s := newTestService(t)
	res, err := s.Timetable(TimetableParams{StudentID: "CS2024001"})
	if err != nil {
		t.Fatalf("Timetable: %v", err)
	}
	if res.Department != "Computer Science" || res.Semester != 3 || res.Section != "A" {
		t.Errorf("resolved class = %s/%d/%s", res.Department, res.Semester, res.Section)
	}
	if len(res.Slots) != 5 {
		t.Fatalf("got %d slots, want 5", len(res.Slots))
	}

	text := res.Text()
	assertContains(t, text, "Class Timetable", "Department: Computer Science | Semester: 3 | Section: A", "**Monday**", "Dr. Ramesh Kumar")
	assertOrder(t, text, "09:00 - 10:00: Data Structures", "11:00 - 12:00: Database", "**Tuesday**", "**Wednesday**", "**Friday**")
	if strings.Contains(text, "Thursday") {
		t.Errorf("section B slots leaked into section A:\n%s", text)
	}
}

func TestTimetable_ExplicitFiltersAndDay(t *testing.T) {
	s := newTestService(t)
	res, err := s.Timetable(TimetableParams{Department: "computer science", Semester: 3, WeekDay: "MONDAY"})
	if err != nil {
		t.Fatalf("Timetable: %v", err)
	}
	// Sections A and B both have Monday classes.
	if len(res.Slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(res.Slots))
	}
	for _, slot := range res.Slots {
		if slot.Day != "Monday" {
			t.Errorf("slot day = %q, want Monday", slot.Day)
		}
	}
	if strings.Contains(res.Text(), "Section:") {
		t.Error("header should omit section when none was requested")
	}
}

func TestTimetable_Notices(t *testing.T) {
	s := newTestService(t)

	res, err := s.Timetable(TimetableParams{StudentID: "XX0000"})
	if err != nil {
		t.Fatalf("Timetable: %v", err)
	}
	if got, want := res.Text(), "Student XX0000 not found."; got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}

	res, err = s.Timetable(TimetableParams{Department: "Computer Science"})
	if err != nil {
		t.Fatalf("Timetable: %v", err)
	}
	if got, want := res.Text(), "Please provide either student_id or (department and semester)."; got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}

	res, err = s.Timetable(TimetableParams{Department: "Civil", Semester: 4})
	if err != nil {
		t.Fatalf("Timetable: %v", err)
	}
	if got, want := res.Text(), "No timetable found for Civil, semester 4."; got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}

func TestTimetable_StudentMatchesExplicitClass(t *testing.T) {
	s := newTestService(t)
	students, err := dataset.NewLoader("testdata", 0).Rows(dataset.Students)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}

	for _, st := range students {
		sem, err := st.Int("semester")
		if err != nil {
			t.Fatalf("semester: %v", err)
		}
		byStudent, err := s.Timetable(TimetableParams{StudentID: st.Get("student_id")})
		if err != nil {
			t.Fatalf("Timetable(%s): %v", st.Get("student_id"), err)
		}
		byClass, err := s.Timetable(TimetableParams{
			Department: st.Get("department"),
			Semester:   sem,
			Section:    st.Get("section"),
		})
		if err != nil {
			t.Fatalf("Timetable(class): %v", err)
		}
		if byStudent.Text() != byClass.Text() {
			t.Errorf("student %s:\n%s\n--- differs from ---\n%s", st.Get("student_id"), byStudent.Text(), byClass.Text())
		}
	}
}

func TestFacultyInfo_OrAcrossFilters(t *testing.T) {
	s := newTestService(t)
	res, err := s.FacultyInfo(FacultyParams{Name: "vikram", Department: "Mechanical"})
	if err != nil {
		t.Fatalf("FacultyInfo: %v", err)
	}
	if len(res.Members) != 2 {
		t.Fatalf("got %d members, want 2", len(res.Members))
	}
	if res.Members[0].ID != "FAC003" || res.Members[1].ID != "FAC004" {
		t.Errorf("members = %s, %s; want file order FAC003, FAC004", res.Members[0].ID, res.Members[1].ID)
	}

	text := res.Text()
	assertContains(t, text, "Faculty Information", "Prof. Vikram Singh", "Email: meera.iyer@college.edu")
	meera := text[strings.Index(text, "Dr. Meera Iyer"):]
	for _, absent := range []string{"Specialization", "Phone", "Office", "Research"} {
		if strings.Contains(meera, absent) {
			t.Errorf("empty %s should be omitted:\n%s", absent, meera)
		}
	}
}

func TestFacultyInfo_ByIDAndNotFound(t *testing.T) {
	s := newTestService(t)
	res, err := s.FacultyInfo(FacultyParams{FacultyID: "fac001"})
	if err != nil {
		t.Fatalf("FacultyInfo: %v", err)
	}
	assertContains(t, res.Text(), "Dr. Ramesh Kumar", "Office Hours: Mon-Wed 14:00-16:00")

	res, err = s.FacultyInfo(FacultyParams{})
	if err != nil {
		t.Fatalf("FacultyInfo: %v", err)
	}
	if got, want := res.Text(), "No faculty found matching your search criteria."; got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}

func TestAcademicCalendar_DefaultWindow(t *testing.T) {
	s := newTestService(t)
	res, err := s.AcademicCalendar(CalendarParams{})
	if err != nil {
		t.Fatalf("AcademicCalendar: %v", err)
	}
	if res.DaysAhead != DefaultDaysAhead {
		t.Errorf("DaysAhead = %d, want %d", res.DaysAhead, DefaultDaysAhead)
	}

	text := res.Text()
	assertContains(t, text, "events", "Industry Talk: Cloud Computing (TODAY)", "Project Proposal Deadline (TOMORROW)",
		"Mid-Semester Examinations (in 5 days)", "2026-10-20 - 2026-10-24", "Holiday")
	assertOrder(t, text, "Industry Talk", "Project Proposal", "Mid-Semester", "Course Registration", "Diwali")
	for _, absent := range []string{"Convocation", "Freshers"} {
		if strings.Contains(text, absent) {
			t.Errorf("%s should be outside the window:\n%s", absent, text)
		}
	}
}

func TestAcademicCalendar_PastAndType(t *testing.T) {
	s := newTestService(t)
	days := 7
	res, err := s.AcademicCalendar(CalendarParams{DaysAhead: &days, IncludePast: true, EventType: "EVENT"})
	if err != nil {
		t.Fatalf("AcademicCalendar: %v", err)
	}
	assertContains(t, res.Text(), "Freshers Welcome (14 days ago)", "Industry Talk")
	if len(res.Events) != 2 {
		t.Errorf("got %d events, want 2", len(res.Events))
	}

	zero := 0
	res, err = s.AcademicCalendar(CalendarParams{DaysAhead: &zero, EventType: "holiday"})
	if err != nil {
		t.Fatalf("AcademicCalendar: %v", err)
	}
	if got, want := res.Text(), "No events of type 'holiday' found in the next 0 days."; got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}

func TestEvent_When(t *testing.T) {
	tests := []struct {
		delta int
		want  string
	}{
		{-3, "3 days ago"},
		{0, "TODAY"},
		{1, "TOMORROW"},
		{9, "in 9 days"},
	}
	for _, tt := range tests {
		if got := (Event{Delta: tt.delta}).When(); got != tt.want {
			t.Errorf("When(%d) = %q, want %q", tt.delta, got, tt.want)
		}
	}
}

func TestStudentResults_SemesterSummaries(t *testing.T) {
	s := newTestService(t)
	res, err := s.StudentResults(ResultsParams{StudentID: "CS2024001"})
	if err != nil {
		t.Fatalf("StudentResults: %v", err)
	}
	if len(res.Semesters) != 2 {
		t.Fatalf("got %d semesters, want 2", len(res.Semesters))
	}
	first := res.Semesters[0]
	if first.Semester != 1 || first.Subjects[0].SubjectCode != "CS101" {
		t.Errorf("first semester = %d starting %s, want 1 starting CS101", first.Semester, first.Subjects[0].SubjectCode)
	}
	if first.Credits != 7 {
		t.Errorf("credits = %v, want 7 (CS103 has none)", first.Credits)
	}

	text := res.Text()
	assertContains(t, text, "**Student Results**", "Student: Aarav Sharma (CS2024001)", "SGPA")
	assertOrder(t, text,
		"Semester 1 - 2023-24",
		"Programming Fundamentals (CS101)",
		"Engineering Mathematics (CS102)",
		"Communication Skills (CS103)",
		"Total: 247.0/300.0 (82.33%)",
		"SGPA: 8.57",
		"Semester 2 - 2024-25",
		"Data Communication (CS201)",
		"Computer Organization (CS202)",
		"Total: 144.0/200.0 (72.00%)",
		"SGPA: 7.50",
	)
}

func TestStudentResults_Filters(t *testing.T) {
	s := newTestService(t)
	res, err := s.StudentResults(ResultsParams{StudentID: "cs2024001", Semester: 2})
	if err != nil {
		t.Fatalf("StudentResults: %v", err)
	}
	if len(res.Semesters) != 1 || res.Semesters[0].Semester != 2 {
		t.Fatalf("semesters = %+v, want only 2", res.Semesters)
	}

	res, err = s.StudentResults(ResultsParams{StudentID: "CS2024001", AcademicYear: "2023-24"})
	if err != nil {
		t.Fatalf("StudentResults: %v", err)
	}
	if len(res.Semesters) != 1 || res.Semesters[0].Semester != 1 {
		t.Fatalf("semesters = %+v, want only 1", res.Semesters)
	}
}

func TestStudentResults_Notices(t *testing.T) {
	s := newTestService(t)

	res, err := s.StudentResults(ResultsParams{StudentID: "ZZ0000"})
	if err != nil {
		t.Fatalf("StudentResults: %v", err)
	}
	if got, want := res.Text(), "Student ZZ0000 not found in the system."; got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}

	res, err = s.StudentResults(ResultsParams{StudentID: "CS2024002"})
	if err != nil {
		t.Fatalf("StudentResults: %v", err)
	}
	if got, want := res.Text(), "No results found for student CS2024002."; got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}

func TestSemesterSummary_ZeroCredits(t *testing.T) {
	s := SemesterSummary{Obtained: 40, Total: 50}
	if s.SGPA() != 0 {
		t.Errorf("SGPA = %v, want 0", s.SGPA())
	}
	if s.Percentage() != 80 {
		t.Errorf("Percentage = %v, want 80", s.Percentage())
	}
	if (SemesterSummary{}).Percentage() != 0 {
		t.Error("empty summary percentage should be 0")
	}
}

func TestCaseInsensitiveFiltersAreIdempotent(t *testing.T) {
	s := newTestService(t)
	variants := func(x string) []string {
		return []string{x, strings.ToLower(x), strings.ToUpper(x)}
	}

	checks := map[string]func(string) (string, error){
		"exams": func(x string) (string, error) {
			r, err := s.ExamSchedule(ExamScheduleParams{Department: x, Semester: 3, AcademicYear: "2024-25"})
			if err != nil {
				return "", err
			}
			return r.Text(), nil
		},
		"papers": func(x string) (string, error) {
			r, err := s.PreviousPapers(PreviousPapersParams{SubjectCode: x})
			if err != nil {
				return "", err
			}
			return r.Text(), nil
		},
		"timetable": func(x string) (string, error) {
			r, err := s.Timetable(TimetableParams{Department: x, Semester: 3, Section: "a"})
			if err != nil {
				return "", err
			}
			return r.Text(), nil
		},
		"faculty": func(x string) (string, error) {
			r, err := s.FacultyInfo(FacultyParams{Name: x})
			if err != nil {
				return "", err
			}
			return r.Text(), nil
		},
	}
	// The second input of each pair matches nothing.
	inputs := map[string][]string{
		"exams":     {"Computer Science", "Mechanical"},
		"papers":    {"Cs301", "Zz999"},
		"timetable": {"Computer Science", "Mechanical"},
		"faculty":   {"Anita", "Nobody Here"},
	}

	for name, fn := range checks {
		for _, input := range inputs[name] {
			t.Run(name+"/"+input, func(t *testing.T) {
				var outputs []string
				for _, v := range variants(input) {
					out, err := fn(v)
					if err != nil {
						t.Fatalf("%s(%q): %v", name, v, err)
					}
					outputs = append(outputs, out)
				}
				for _, out := range outputs[1:] {
					if out != outputs[0] {
						t.Errorf("outputs differ:\n%s\n---\n%s", outputs[0], out)
					}
				}
			})
		}
	}
}

func TestNotFound_EchoesNormalizedFilters(t *testing.T) {
	s := newTestService(t)

	tests := []struct {
		name string
		run  func() (string, error)
		want string
	}{
		{
			name: "unknown department is title-cased",
			run: func() (string, error) {
				r, err := s.Timetable(TimetableParams{Department: "MECHANICAL", Semester: 3})
				if err != nil {
					return "", err
				}
				return r.Text(), nil
			},
			want: "No timetable found for Mechanical, semester 3.",
		},
		{
			name: "known department keeps data spelling",
			run: func() (string, error) {
				r, err := s.ExamSchedule(ExamScheduleParams{Department: "computer science", Semester: 9})
				if err != nil {
					return "", err
				}
				return r.Text(), nil
			},
			want: "No exam schedule found for Computer Science, semester 9.",
		},
		{
			name: "subject code is upper-cased",
			run: func() (string, error) {
				r, err := s.PreviousPapers(PreviousPapersParams{SubjectCode: "zz999", Years: 2})
				if err != nil {
					return "", err
				}
				return r.Text(), nil
			},
			want: "No previous papers found for ZZ999 in the last 2 years.",
		},
		{
			name: "student id is upper-cased",
			run: func() (string, error) {
				r, err := s.StudentResults(ResultsParams{StudentID: "zz0000"})
				if err != nil {
					return "", err
				}
				return r.Text(), nil
			},
			want: "Student ZZ0000 not found in the system.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindStudent_CaseInsensitiveUsesFileOrder(t *testing.T) {
	s := newServiceWith(t, "students.csv",
		"student_id,name,department,semester,section\n"+
			"ab1,First,Computer Science,3,A\n"+
			"AB1,Second,Computer Science,3,A\n")

	for range 20 {
		res, err := s.StudentResults(ResultsParams{StudentID: "Ab1"})
		if err != nil {
			t.Fatalf("StudentResults: %v", err)
		}
		if got, want := res.Text(), "No results found for student ab1."; got != want {
			t.Fatalf("Text = %q, want %q", got, want)
		}
	}

	res, err := s.StudentResults(ResultsParams{StudentID: "AB1"})
	if err != nil {
		t.Fatalf("StudentResults: %v", err)
	}
	if got, want := res.Text(), "No results found for student AB1."; got != want {
		t.Errorf("exact id: Text = %q, want %q", got, want)
	}
}

func TestBadDataPropagates(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		call func(*Service) error
	}{
		{
			name: "exam semester",
			file: "exam_schedule.csv",
			data: "exam_id,department,semester,exam_date\nEX1,Computer Science,three,2024-12-10\n",
			call: func(s *Service) error {
				_, err := s.ExamSchedule(ExamScheduleParams{Department: "Computer Science", Semester: 3})
				return err
			},
		},
		{
			name: "calendar date",
			file: "academic_calendar.csv",
			data: "event_name,event_date,event_type\nBroken,10/20/2026,exam\n",
			call: func(s *Service) error {
				_, err := s.AcademicCalendar(CalendarParams{})
				return err
			},
		},
		{
			name: "result marks",
			file: "student_results.csv",
			data: "student_id,semester,subject_code,marks_obtained,total_marks\nCS2024001,1,CS101,eighty,100\n",
			call: func(s *Service) error {
				_, err := s.StudentResults(ResultsParams{StudentID: "CS2024001"})
				return err
			},
		},
		{
			name: "timetable weekday",
			file: "timetable.csv",
			data: "department,semester,section,day_of_week,start_time\nComputer Science,3,A,Funday,09:00\n",
			call: func(s *Service) error {
				_, err := s.Timetable(TimetableParams{StudentID: "CS2024001"})
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(newServiceWith(t, tt.file, tt.data))
			if !errors.Is(err, dataset.ErrBadData) {
				t.Errorf("err = %v, want ErrBadData", err)
			}
		})
	}
}

func TestMissingDatasetFails(t *testing.T) {
	s := NewServiceWithClock(dataset.NewLoader(t.TempDir(), 0), fixedClock{testNow})
	_, err := s.FacultyInfo(FacultyParams{Name: "Ramesh"})
	if !errors.Is(err, dataset.ErrFileMissing) {
		t.Errorf("err = %v, want ErrFileMissing", err)
	}
}
