package grid

import (
	"errors"
	"testing"
	"time"

	"teamcal/internal/hierarchy"
	"teamcal/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testIndex(t *testing.T) *hierarchy.Index {
	t.Helper()
	x, err := hierarchy.New([]hierarchy.RawNode{
		{Name: "Ada CEO", Location: "US", Reports: []hierarchy.RawNode{
			{Name: "Marie Manager", Location: "France", Reports: []hierarchy.RawNode{
				{Name: "Jane Report", Location: "France"},
			}},
		}},
	})
	if err != nil {
		t.Fatalf("hierarchy: %v", err)
	}
	return x
}

func TestAssembleColumnsSkipWeekends(t *testing.T) {
	// Dec 2 2024 is a Monday; two full weeks.
	g, err := Assemble(testIndex(t), nil, day(2024, time.December, 2), day(2024, time.December, 13))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(g.Days) != 10 {
		t.Fatalf("expected 10 weekday columns, got %d", len(g.Days))
	}
	for _, d := range g.Days {
		if model.IsWeekend(d) {
			t.Fatalf("weekend column %s", d)
		}
	}
	if len(g.Weeks) != 2 || g.Weeks[0].Start != 0 || g.Weeks[0].End != 4 || g.Weeks[1].Start != 5 || g.Weeks[1].End != 9 {
		t.Fatalf("unexpected week spans %+v", g.Weeks)
	}
	if len(g.Months) != 1 || g.Months[0].Label != "December 2024" || g.Months[0].End != 9 {
		t.Fatalf("unexpected month spans %+v", g.Months)
	}
}

func TestAssembleWeekSpansDoNotCrossMonths(t *testing.T) {
	// Oct 30 2024 (Wed) .. Nov 5 2024 (Tue) shares an ISO week across the
	// month boundary.
	g, err := Assemble(testIndex(t), nil, day(2024, time.October, 30), day(2024, time.November, 5))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(g.Months) != 2 {
		t.Fatalf("expected 2 month spans, got %+v", g.Months)
	}
	for _, w := range g.Weeks {
		first := g.Days[w.Start].Month()
		for i := w.Start; i <= w.End; i++ {
			if g.Days[i].Month() != first {
				t.Fatalf("week span %+v crosses month boundary", w)
			}
		}
	}
}

func TestAssembleRowsPreserveHierarchyOrderAndCells(t *testing.T) {
	assignments := []model.DateAssignment{
		{EmployeeID: "jane report", Date: day(2024, time.December, 3), Type: model.AssignmentPTO},
		{EmployeeID: "ada ceo", Date: day(2024, time.December, 4), Type: model.AssignmentTravel},
	}
	g, err := Assemble(testIndex(t), assignments, day(2024, time.December, 2), day(2024, time.December, 6))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	var order []string
	total := 0
	for row := range g.Rows() {
		order = append(order, row.DisplayName)
		for _, c := range row.Cells {
			if c != nil {
				total++
			}
		}
	}
	want := []string{"Ada CEO", "Marie Manager", "Jane Report"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected row order %v, got %v", want, order)
		}
	}
	// Every assignment appears exactly once.
	if total != len(assignments) {
		t.Fatalf("expected %d filled cells, got %d", len(assignments), total)
	}

	// Depth drives row indentation downstream.
	for row := range g.Rows() {
		if row.DisplayName == "Jane Report" && row.Depth != 2 {
			t.Fatalf("expected depth 2 for Jane, got %d", row.Depth)
		}
		if row.DisplayName == "Jane Report" {
			// Dec 3 is the second weekday column.
			if row.Cells[1] == nil || row.Cells[1].Type != model.AssignmentPTO {
				t.Fatalf("expected PTO cell in column 1, got %+v", row.Cells)
			}
		}
	}
}

func TestAssembleRejectsInconsistentInput(t *testing.T) {
	cases := []model.DateAssignment{
		{EmployeeID: "nobody", Date: day(2024, time.December, 3), Type: model.AssignmentPTO},
		{EmployeeID: "jane report", Date: day(2024, time.December, 7), Type: model.AssignmentPTO}, // Saturday
		{EmployeeID: "jane report", Date: day(2025, time.February, 3), Type: model.AssignmentPTO}, // out of range
	}
	for _, bad := range cases {
		_, err := Assemble(testIndex(t), []model.DateAssignment{bad}, day(2024, time.December, 2), day(2024, time.December, 6))
		var ierr *model.InternalConsistencyError
		if !errors.As(err, &ierr) {
			t.Fatalf("expected InternalConsistencyError for %+v, got %v", bad, err)
		}
	}
}
