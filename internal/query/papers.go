package query

import (
	"fmt"
	"sort"

	"github.com/kalambet/academate/internal/dataset"
)

// DefaultPaperYears is the look-back window when none is given.
const DefaultPaperYears = 3

// PreviousPapersParams selects papers for one subject.
type PreviousPapersParams struct {
	SubjectCode string
	Years       int    // <= 0 means DefaultPaperYears
	PaperType   string // optional
}

// Paper is one archived question paper.
type Paper struct {
	Year        int
	Type        string
	SubjectName string
	Department  string
	Semester    string
	TotalMarks  string
	FileURL     string
}

// PreviousPapersResult lists papers newest first.
type PreviousPapersResult struct {
	SubjectCode string
	Years       int
	FromYear    int
	Papers      []Paper
}

// PreviousPapers returns papers for a subject with exam_year >= current year
// minus the window, newest first.
func (s *Service) PreviousPapers(p PreviousPapersParams) (*PreviousPapersResult, error) {
	years := p.Years
	if years <= 0 {
		years = DefaultPaperYears
	}
	code, err := s.canonical(dataset.PreviousPapers, "subject_code", p.SubjectCode, idCase)
	if err != nil {
		return nil, err
	}
	res := &PreviousPapersResult{
		SubjectCode: code,
		Years:       years,
		FromYear:    s.clock.Now().Year() - years,
	}

	rows, err := s.data.Rows(dataset.PreviousPapers)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if !sameFold(row.Get("subject_code"), p.SubjectCode) {
			continue
		}
		year, err := row.Int("exam_year")
		if err != nil {
			return nil, err
		}
		if year < res.FromYear {
			continue
		}
		if p.PaperType != "" && !sameFold(row.Get("paper_type"), p.PaperType) {
			continue
		}
		res.Papers = append(res.Papers, Paper{
			Year:        year,
			Type:        row.Get("paper_type"),
			SubjectName: row.Get("subject_name"),
			Department:  row.Get("department"),
			Semester:    row.Get("semester"),
			TotalMarks:  row.Get("total_marks"),
			FileURL:     row.Get("file_url"),
		})
	}

	sort.SliceStable(res.Papers, func(i, j int) bool {
		return res.Papers[i].Year > res.Papers[j].Year
	})
	return res, nil
}

// Text renders the paper list for display.
func (r *PreviousPapersResult) Text() string {
	if len(r.Papers) == 0 {
		return fmt.Sprintf("No previous papers found for %s in the last %d years.", r.SubjectCode, r.Years)
	}

	lines := []string{"Previous Papers - " + r.SubjectCode, ""}
	for _, p := range r.Papers {
		link := p.FileURL
		if link == "" {
			link = "Not available"
		}
		lines = append(lines,
			fmt.Sprintf("%d - %s", p.Year, p.Type),
			" Subject: "+p.SubjectName,
			fmt.Sprintf(" Department: %s | Semester: %s", p.Department, p.Semester),
			" Marks: "+p.TotalMarks,
			" Link: "+link,
			"",
		)
	}
	return render(lines)
}
