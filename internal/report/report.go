// Package report renders project staffing summaries as PDF.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"staffline/internal/domain"
	"staffline/internal/engine"
	"staffline/internal/query"
	"staffline/internal/repo"
)

type Line struct {
	AllocationID int64
	DeveloperID  int64
	Developer    string
	Hours        decimal.Decimal
}

// Summary is the staffing state of one project.
type Summary struct {
	Project   domain.Project
	Policy    string
	Ceiling   decimal.Decimal
	Allocated decimal.Decimal
	Lines     []Line
}

func (s Summary) Remaining() decimal.Decimal {
	return s.Ceiling.Sub(s.Allocated)
}

// Build collects summaries for the given projects, or for every project when
// ids is empty.
func Build(ctx context.Context, e engine.Engine, ids ...int64) ([]Summary, error) {
	var projects []domain.Project
	if len(ids) == 0 {
		all, err := e.Repo.ListProjects(ctx, nil)
		if err != nil {
			return nil, err
		}
		projects = all
	} else {
		for _, id := range ids {
			p, err := e.Repo.GetProject(ctx, id)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return nil, fmt.Errorf("project %d not found", id)
				}
				return nil, err
			}
			projects = append(projects, p)
		}
	}

	names := map[int64]string{}
	out := make([]Summary, 0, len(projects))
	for _, p := range projects {
		allocs, err := e.Repo.ListAllocations(ctx, query.Allocations.Parse(map[string][]string{
			"project": {fmt.Sprint(p.ID)},
		}))
		if err != nil {
			return nil, err
		}
		s := Summary{Project: p, Policy: e.Capacity.Name(), Ceiling: e.Capacity.Ceiling(p), Allocated: decimal.Zero}
		for _, a := range allocs {
			name, ok := names[a.DeveloperID]
			if !ok {
				dev, err := e.Repo.GetProgrammer(ctx, a.DeveloperID)
				if err != nil {
					return nil, err
				}
				name = dev.Name
				names[a.DeveloperID] = name
			}
			s.Allocated = s.Allocated.Add(a.Hours)
			s.Lines = append(s.Lines, Line{AllocationID: a.ID, DeveloperID: a.DeveloperID, Developer: name, Hours: a.Hours})
		}
		out = append(out, s)
	}
	return out, nil
}

// Write renders summaries as an A4 PDF.
func Write(w io.Writer, title string, summaries []Summary) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, title)
	pdf.Ln(12)

	if len(summaries) == 0 {
		pdf.SetFont("Arial", "", 12)
		pdf.Cell(0, 8, "No projects.")
		pdf.Ln(8)
	}
	for _, s := range summaries {
		writeProject(pdf, s)
	}
	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func writeProject(pdf *fpdf.Fpdf, s Summary) {
	p := s.Project
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, fmt.Sprintf("#%d %s (%s)", p.ID, p.Name, p.Status))
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Window: %s to %s", domain.FormatDate(p.StartDate), domain.FormatDate(p.EndDate)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Required skills: %s", skillsText(p.RequiredSkills)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Capacity (%s): %s h   Allocated: %s h   Remaining: %s h",
		s.Policy, s.Ceiling.StringFixed(2), s.Allocated.StringFixed(2), s.Remaining().StringFixed(2)))
	pdf.Ln(8)

	if len(s.Lines) == 0 {
		pdf.Cell(0, 6, "  - No allocations.")
		pdf.Ln(10)
		return
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(25, 7, "Alloc", "1", 0, "", false, 0, "")
	pdf.CellFormat(110, 7, "Programmer", "1", 0, "", false, 0, "")
	pdf.CellFormat(30, 7, "Hours", "1", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	for _, l := range s.Lines {
		pdf.CellFormat(25, 7, fmt.Sprint(l.AllocationID), "1", 0, "", false, 0, "")
		pdf.CellFormat(110, 7, fmt.Sprintf("%s (#%d)", l.Developer, l.DeveloperID), "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 7, l.Hours.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

func skillsText(refs []domain.SkillRef) string {
	if len(refs) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(refs))
	for _, r := range refs {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}
