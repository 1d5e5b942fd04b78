// Package grid arranges reconciled assignments into the hierarchical,
// date-ordered structure the renderer consumes. Assembly is pure layout:
// given consistent inputs it cannot fail, and any failure it does report
// means an upstream invariant broke.
package grid

import (
	"fmt"
	"iter"
	"time"

	"teamcal/internal/hierarchy"
	"teamcal/internal/model"
)

// Span is a labeled run of consecutive day columns, used for the merged
// month and week header rows. Start and End are inclusive column indexes.
type Span struct {
	Label string
	Start int
	End   int
}

// Node is one employee's row. Children mirror the org tree so the
// renderer can walk the same shape the hierarchy has; cell order within a
// node follows the grid's day columns.
type Node struct {
	EmployeeID  string
	DisplayName string
	Depth       int

	// Cells is parallel to Grid.Days; nil means no event that day.
	Cells []*model.DateAssignment

	Children []*Node
}

// Grid is the finalized report layout. It is built once per run and not
// mutated afterwards.
type Grid struct {
	Start time.Time
	End   time.Time

	// Days are the weekday columns spanning the whole range.
	Days []time.Time

	// Months and Weeks are the header spans over Days. Week spans never
	// cross a month boundary so the two header rows nest cleanly.
	Months []Span
	Weeks  []Span

	Roots []*Node
}

// Rows walks the grid rows in hierarchy pre-order.
func (g *Grid) Rows() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		var walk func(n *Node) bool
		walk = func(n *Node) bool {
			if !yield(n) {
				return false
			}
			for _, c := range n.Children {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		for _, r := range g.Roots {
			if !walk(r) {
				return
			}
		}
	}
}

// Assemble builds the grid for the inclusive range [start, end]. Every
// assignment must reference a known employee and land on one of the grid's
// weekday columns; anything else is an InternalConsistencyError.
func Assemble(index *hierarchy.Index, assignments []model.DateAssignment, start, end time.Time) (*Grid, error) {
	g := &Grid{Start: model.Day(start), End: model.Day(end)}

	for d := g.Start; !d.After(g.End); d = d.AddDate(0, 0, 1) {
		if !model.IsWeekend(d) {
			g.Days = append(g.Days, d)
		}
	}
	g.Months, g.Weeks = headerSpans(g.Days)

	colByDay := make(map[time.Time]int, len(g.Days))
	for i, d := range g.Days {
		colByDay[d] = i
	}

	// One cell slice per employee, then hang them on the tree.
	cells := make(map[string][]*model.DateAssignment, index.Len())
	for n := range index.All() {
		cells[n.ID] = make([]*model.DateAssignment, len(g.Days))
	}

	for i := range assignments {
		a := &assignments[i]
		row, ok := cells[a.EmployeeID]
		if !ok {
			return nil, &model.InternalConsistencyError{Reason: fmt.Sprintf("assignment for unknown employee %q", a.EmployeeID)}
		}
		col, ok := colByDay[model.Day(a.Date)]
		if !ok {
			return nil, &model.InternalConsistencyError{Reason: fmt.Sprintf("assignment for %s on %s outside grid columns", a.EmployeeID, a.Date.Format("2006-01-02"))}
		}
		if row[col] != nil {
			return nil, &model.InternalConsistencyError{Reason: fmt.Sprintf("duplicate assignment for %s on %s", a.EmployeeID, a.Date.Format("2006-01-02"))}
		}
		row[col] = a
	}

	var build func(n *hierarchy.Node) *Node
	build = func(n *hierarchy.Node) *Node {
		gn := &Node{
			EmployeeID:  n.ID,
			DisplayName: n.DisplayName,
			Depth:       index.Depth(n.ID),
			Cells:       cells[n.ID],
		}
		for _, childID := range n.ChildIDs {
			child, _ := index.Get(childID)
			gn.Children = append(gn.Children, build(child))
		}
		return gn
	}
	for n := range index.All() {
		if n.ParentID == "" {
			g.Roots = append(g.Roots, build(n))
		}
	}

	return g, nil
}

// headerSpans groups the day columns into month spans and, within each
// month, ISO-week spans.
func headerSpans(days []time.Time) (months, weeks []Span) {
	if len(days) == 0 {
		return nil, nil
	}

	monthLabel := func(d time.Time) string { return d.Format("January 2006") }
	weekLabel := func(d time.Time) string {
		_, wk := d.ISOWeek()
		return fmt.Sprintf("W%02d", wk)
	}

	mStart, wStart := 0, 0
	for i := 1; i <= len(days); i++ {
		newMonth := i == len(days) || monthLabel(days[i]) != monthLabel(days[mStart])
		if i == len(days) || newMonth || weekLabel(days[i]) != weekLabel(days[wStart]) {
			weeks = append(weeks, Span{Label: weekLabel(days[wStart]), Start: wStart, End: i - 1})
			wStart = i
		}
		if newMonth {
			months = append(months, Span{Label: monthLabel(days[mStart]), Start: mStart, End: i - 1})
			mStart = i
		}
	}
	return months, weeks
}
