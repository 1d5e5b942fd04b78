// Package render writes the assembled grid to a spreadsheet. Row 1 carries
// merged month spans, row 2 merged week spans, row 3 the day labels, and
// every employee is one row below that, indented by hierarchy depth, with
// assignment days color-filled.
package render

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"teamcal/internal/grid"
	appLog "teamcal/internal/log"
	"teamcal/internal/model"
)

const sheetName = "Calendar View"

// defaultColors are the fill colors per assignment type, overridable from
// config.
var defaultColors = map[model.AssignmentType]string{
	model.AssignmentPTO:     "F28C28", // orange
	model.AssignmentTravel:  "0070C0", // blue
	model.AssignmentHoliday: "C0C0C0", // grey
}

// Renderer writes grids as xlsx files into outputDir.
type Renderer struct {
	outputDir string
	colors    map[model.AssignmentType]string
}

// New builds a Renderer. overrides maps assignment type names (PTO, TRAVEL,
// HOLIDAY) to RRGGBB hex colors; unknown keys are ignored.
func New(outputDir string, overrides map[string]string) *Renderer {
	colors := make(map[model.AssignmentType]string, len(defaultColors))
	for typ, c := range defaultColors {
		colors[typ] = c
	}
	for name, c := range overrides {
		typ := model.AssignmentType(name)
		if _, ok := colors[typ]; ok && c != "" {
			colors[typ] = c
		}
	}
	return &Renderer{outputDir: outputDir, colors: colors}
}

// Render writes g to calendar_view_MMDDYY.xlsx (named after now) and
// returns the full path.
func (r *Renderer) Render(g *grid.Grid, now time.Time) (string, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", err
	}

	styles, err := r.buildStyles(f)
	if err != nil {
		return "", err
	}

	if err := writeHeader(f, g, styles); err != nil {
		return "", err
	}

	row := 4
	for node := range g.Rows() {
		if err := writeEmployeeRow(f, node, row, styles); err != nil {
			return "", err
		}
		row++
	}

	// Column widths: wide name column, narrow day columns.
	if err := f.SetColWidth(sheetName, "A", "A", 20); err != nil {
		return "", err
	}
	if len(g.Days) > 0 {
		last, err := excelize.ColumnNumberToName(1 + len(g.Days))
		if err != nil {
			return "", err
		}
		if err := f.SetColWidth(sheetName, "B", last, 7); err != nil {
			return "", err
		}
	}

	path := filepath.Join(r.outputDir, fmt.Sprintf("calendar_view_%s.xlsx", now.Format("010206")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	appLog.Info("report written", "path", path, "rows", row-4, "columns", len(g.Days))
	return path, nil
}

type styleSet struct {
	header int
	name   map[int]int // per indent depth
	empty  int
	byType map[model.AssignmentType]int
}

func (r *Renderer) buildStyles(f *excelize.File) (*styleSet, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	s := &styleSet{
		name:   make(map[int]int),
		byType: make(map[model.AssignmentType]int),
	}

	var err error
	if s.header, err = f.NewStyle(&excelize.Style{Border: border, Alignment: center}); err != nil {
		return nil, err
	}
	if s.empty, err = f.NewStyle(&excelize.Style{Border: border}); err != nil {
		return nil, err
	}
	for typ, color := range r.colors {
		id, err := f.NewStyle(&excelize.Style{
			Border: border,
			Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
		if err != nil {
			return nil, err
		}
		s.byType[typ] = id
	}
	return s, nil
}

func (s *styleSet) nameStyle(f *excelize.File, depth int) (int, error) {
	if id, ok := s.name[depth]; ok {
		return id, nil
	}
	id, err := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Indent: depth},
	})
	if err != nil {
		return 0, err
	}
	s.name[depth] = id
	return id, nil
}

func writeHeader(f *excelize.File, g *grid.Grid, styles *styleSet) error {
	if err := setHeaderCell(f, styles, 1, 3, "Employee"); err != nil {
		return err
	}
	for i, d := range g.Days {
		if err := setHeaderCell(f, styles, 2+i, 3, d.Format("Mon 02")); err != nil {
			return err
		}
	}
	for _, span := range g.Months {
		if err := mergedHeader(f, styles, 1, span); err != nil {
			return err
		}
	}
	for _, span := range g.Weeks {
		if err := mergedHeader(f, styles, 2, span); err != nil {
			return err
		}
	}
	return nil
}

func mergedHeader(f *excelize.File, styles *styleSet, row int, span grid.Span) error {
	start, err := excelize.CoordinatesToCellName(2+span.Start, row)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(2+span.End, row)
	if err != nil {
		return err
	}
	if start != end {
		if err := f.MergeCell(sheetName, start, end); err != nil {
			return err
		}
	}
	if err := f.SetCellValue(sheetName, start, span.Label); err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, start, end, styles.header)
}

func setHeaderCell(f *excelize.File, styles *styleSet, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, cell, cell, styles.header)
}

func writeEmployeeRow(f *excelize.File, node *grid.Node, row int, styles *styleSet) error {
	nameCell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, nameCell, node.DisplayName); err != nil {
		return err
	}
	nameStyle, err := styles.nameStyle(f, node.Depth)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, nameCell, nameCell, nameStyle); err != nil {
		return err
	}

	for i, assignment := range node.Cells {
		cell, err := excelize.CoordinatesToCellName(2+i, row)
		if err != nil {
			return err
		}
		style := styles.empty
		if assignment != nil {
			style = styles.byType[assignment.Type]
		}
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}
