package reconcile

import (
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

func keywords() map[string]string {
	return map[string]string{"us": "US", "france": "France"}
}

func find(assignments []model.DateAssignment, id string, d time.Time) (model.AssignmentType, bool) {
	for _, a := range assignments {
		if a.EmployeeID == id && a.Date.Equal(d) {
			return a.Type, true
		}
	}
	return "", false
}

func TestJaneDecemberScenario(t *testing.T) {
	// PTO feed event "Jane off" Dec 24-26; France table holiday Dec 25.
	events := []model.CanonicalEvent{{
		Key:   "jane off",
		Title: "Jane off",
		Occurrences: []model.Occurrence{
			{Feed: model.FeedPTO, Start: day(2024, time.December, 24), End: day(2024, time.December, 26)},
		},
	}}
	mapping := model.MappingResult{
		"jane off": {{EmployeeID: "jane report"}},
	}
	holidays := model.HolidaySet{
		"France": {{Date: day(2024, time.December, 25), Name: "Christmas Day", Scope: model.ScopeCountry}},
	}

	r := New(testIndex(t), keywords())
	got := r.Reconcile(events, mapping, holidays, day(2024, time.December, 1), day(2024, time.December, 31))

	cases := []struct {
		date time.Time
		want model.AssignmentType
	}{
		{day(2024, time.December, 24), model.AssignmentPTO},
		{day(2024, time.December, 25), model.AssignmentHoliday},
		{day(2024, time.December, 26), model.AssignmentPTO},
	}
	for _, c := range cases {
		typ, ok := find(got, "jane report", c.date)
		if !ok || typ != c.want {
			t.Fatalf("jane %s: expected %s, got %s (found=%v)", c.date.Format("Jan 2"), c.want, typ, ok)
		}
	}

	// CEO has no claims; Manager gets only the France table holiday.
	for _, a := range got {
		if a.EmployeeID == "ada ceo" {
			t.Fatalf("unexpected assignment for CEO: %+v", a)
		}
		if a.EmployeeID == "marie manager" && !a.Date.Equal(day(2024, time.December, 25)) {
			t.Fatalf("unexpected assignment for Manager: %+v", a)
		}
	}
}

func TestPrecedenceTotalOrder(t *testing.T) {
	d := day(2024, time.December, 3) // a Tuesday
	events := []model.CanonicalEvent{
		{
			Key: "jane pto", Title: "Jane pto",
			Occurrences: []model.Occurrence{{Feed: model.FeedPTO, Start: d, End: d}},
		},
		{
			Key: "jane trip", Title: "Jane trip",
			Occurrences: []model.Occurrence{{Feed: model.FeedTravel, Start: d, End: d}},
		},
	}
	mapping := model.MappingResult{
		"jane pto":  {{EmployeeID: "jane report"}},
		"jane trip": {{EmployeeID: "jane report"}},
	}

	r := New(testIndex(t), keywords())

	// PTO + TRAVEL: travel survives.
	got := r.Reconcile(events, mapping, nil, d, d)
	if len(got) != 1 || got[0].Type != model.AssignmentTravel {
		t.Fatalf("expected single TRAVEL assignment, got %+v", got)
	}

	// Adding a holiday on the same day: holiday survives.
	holidays := model.HolidaySet{
		"France": {{Date: d, Name: "Some Day", Scope: model.ScopeCountry}},
	}
	got = r.Reconcile(events, mapping, holidays, d, d)
	typ, ok := find(got, "jane report", d)
	if !ok || typ != model.AssignmentHoliday {
		t.Fatalf("expected HOLIDAY to win, got %s", typ)
	}
}

func TestOutranksIsTotalOrder(t *testing.T) {
	if !Outranks(model.AssignmentHoliday, model.AssignmentTravel) ||
		!Outranks(model.AssignmentTravel, model.AssignmentPTO) ||
		!Outranks(model.AssignmentHoliday, model.AssignmentPTO) {
		t.Fatalf("precedence order broken")
	}
	if Outranks(model.AssignmentPTO, model.AssignmentPTO) {
		t.Fatalf("a type must not outrank itself")
	}
}

func TestNoWeekendAssignments(t *testing.T) {
	// Dec 20 2024 is a Friday; the range covers the following weekend.
	events := []model.CanonicalEvent{{
		Key: "jane off", Title: "Jane off",
		Occurrences: []model.Occurrence{
			{Feed: model.FeedPTO, Start: day(2024, time.December, 20), End: day(2024, time.December, 23)},
		},
	}}
	mapping := model.MappingResult{"jane off": {{EmployeeID: "jane report"}}}
	holidays := model.HolidaySet{
		"France": {{Date: day(2024, time.December, 21), Name: "Saturday Holiday", Scope: model.ScopeCountry}},
	}

	r := New(testIndex(t), keywords())
	got := r.Reconcile(events, mapping, holidays, day(2024, time.December, 1), day(2024, time.December, 31))

	for _, a := range got {
		if model.IsWeekend(a.Date) {
			t.Fatalf("weekend assignment produced: %+v", a)
		}
	}
	if _, ok := find(got, "jane report", day(2024, time.December, 20)); !ok {
		t.Fatalf("expected Friday assignment")
	}
	if _, ok := find(got, "jane report", day(2024, time.December, 23)); !ok {
		t.Fatalf("expected Monday assignment")
	}
}

func TestSentinelHolidayIndependentOfRuleTable(t *testing.T) {
	d := day(2024, time.December, 4) // a Wednesday, in no holiday table
	events := []model.CanonicalEvent{{
		Key: "office closed", Title: "Office closed",
		Occurrences: []model.Occurrence{{Feed: model.FeedTravel, Start: d, End: d}},
	}}
	mapping := model.MappingResult{"office closed": {{Holiday: true}}}

	r := New(testIndex(t), keywords())
	got := r.Reconcile(events, mapping, nil, d, d)

	// No location keyword in the title: applies to all three employees.
	if len(got) != 3 {
		t.Fatalf("expected holiday for all employees, got %+v", got)
	}
	for _, a := range got {
		if a.Type != model.AssignmentHoliday {
			t.Fatalf("expected HOLIDAY type, got %+v", a)
		}
	}
}

func TestSentinelHolidayScopedByTitleKeyword(t *testing.T) {
	d := day(2024, time.November, 28)
	events := []model.CanonicalEvent{{
		Key: "us holiday (thanksgiving)", Title: "US Holiday (Thanksgiving)",
		Occurrences: []model.Occurrence{{Feed: model.FeedPTO, Start: d, End: d}},
	}}
	mapping := model.MappingResult{"us holiday (thanksgiving)": {{Holiday: true}}}

	r := New(testIndex(t), keywords())
	got := r.Reconcile(events, mapping, nil, d, d)

	if len(got) != 1 || got[0].EmployeeID != "ada ceo" || got[0].Type != model.AssignmentHoliday {
		t.Fatalf("expected holiday for the US employee only, got %+v", got)
	}
}

func TestBoundarySpanningEventClipped(t *testing.T) {
	// Event runs past the report end; only in-range weekdays expand.
	events := []model.CanonicalEvent{{
		Key: "jane off", Title: "Jane off",
		Occurrences: []model.Occurrence{
			{Feed: model.FeedPTO, Start: day(2024, time.December, 30), End: day(2025, time.January, 3)},
		},
	}}
	mapping := model.MappingResult{"jane off": {{EmployeeID: "jane report"}}}

	r := New(testIndex(t), keywords())
	got := r.Reconcile(events, mapping, nil, day(2024, time.December, 1), day(2024, time.December, 31))

	// Dec 30 (Mon) and Dec 31 (Tue) only.
	if len(got) != 2 {
		t.Fatalf("expected 2 in-range assignments, got %+v", got)
	}
	for _, a := range got {
		if a.Date.After(day(2024, time.December, 31)) {
			t.Fatalf("assignment outside report range: %+v", a)
		}
	}
}

func TestAtMostOneAssignmentPerEmployeeDay(t *testing.T) {
	d := day(2024, time.December, 5)
	events := []model.CanonicalEvent{{
		Key: "jane off", Title: "Jane off",
		Occurrences: []model.Occurrence{
			{Feed: model.FeedPTO, Start: d, End: d},
			{Feed: model.FeedPTO, Start: d, End: d}, // duplicate occurrence
		},
	}}
	mapping := model.MappingResult{"jane off": {{EmployeeID: "jane report"}}}

	r := New(testIndex(t), keywords())
	got := r.Reconcile(events, mapping, nil, d, d)
	if len(got) != 1 {
		t.Fatalf("expected exactly one assignment, got %+v", got)
	}
}
