package query

import (
	"strings"

	"github.com/kalambet/academate/internal/dataset"
)

// FacultyParams holds the three alternative filters. A row matches when any
// non-empty filter matches it.
type FacultyParams struct {
	FacultyID  string
	Name       string // substring
	Department string
}

// FacultyMember is one directory entry. Empty optional fields are omitted
// from the rendering.
type FacultyMember struct {
	ID                string
	Name              string
	Department        string
	Designation       string
	Specialization    string
	Email             string
	Phone             string
	OfficeLocation    string
	OfficeHours       string
	ResearchInterests string
}

// FacultyResult lists matching staff in file order.
type FacultyResult struct {
	Members []FacultyMember
}

// FacultyInfo searches the faculty directory.
func (s *Service) FacultyInfo(p FacultyParams) (*FacultyResult, error) {
	rows, err := s.data.Rows(dataset.Faculty)
	if err != nil {
		return nil, err
	}

	res := &FacultyResult{}
	for _, row := range rows {
		if !p.matches(row) {
			continue
		}
		res.Members = append(res.Members, FacultyMember{
			ID:                row.Get("faculty_id"),
			Name:              row.Get("name"),
			Department:        row.Get("department"),
			Designation:       row.Get("designation"),
			Specialization:    row.Get("specialization"),
			Email:             row.Get("email"),
			Phone:             row.Get("phone"),
			OfficeLocation:    row.Get("office_location"),
			OfficeHours:       row.Get("office_hours"),
			ResearchInterests: row.Get("research_interests"),
		})
	}
	return res, nil
}

func (p FacultyParams) matches(row dataset.Row) bool {
	if p.FacultyID != "" && sameFold(row.Get("faculty_id"), p.FacultyID) {
		return true
	}
	if p.Name != "" && strings.Contains(fold(row.Get("name")), fold(p.Name)) {
		return true
	}
	return p.Department != "" && sameFold(row.Get("department"), p.Department)
}

// Text renders the directory entries.
func (r *FacultyResult) Text() string {
	if len(r.Members) == 0 {
		return "No faculty found matching your search criteria."
	}

	lines := []string{"Faculty Information", ""}
	for _, m := range r.Members {
		lines = append(lines,
			m.Name,
			" Faculty ID: "+m.ID,
			" Department: "+m.Department,
			" Designation: "+m.Designation,
		)
		optional := []struct{ label, value string }{
			{"Specialization", m.Specialization},
			{"Email", m.Email},
			{"Phone", m.Phone},
			{"Office", m.OfficeLocation},
			{"Office Hours", m.OfficeHours},
			{"Research Interests", m.ResearchInterests},
		}
		for _, f := range optional {
			if f.value != "" {
				lines = append(lines, " "+f.label+": "+f.value)
			}
		}
		lines = append(lines, "")
	}
	return render(lines)
}
