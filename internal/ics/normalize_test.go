package ics

import (
	"testing"
	"time"

	"teamcal/internal/model"
)

func TestNormalizeGroupsByFoldedTitle(t *testing.T) {
	raw := []model.RawEvent{
		{Feed: model.FeedPTO, Title: "Jane off", Start: day(2024, time.December, 2), End: day(2024, time.December, 3)},
		{Feed: model.FeedPTO, Title: "  JANE   OFF ", Start: day(2024, time.December, 9), End: day(2024, time.December, 9)},
		{Feed: model.FeedTravel, Title: "Omar in Paris", Start: day(2024, time.December, 4), End: day(2024, time.December, 5)},
	}

	events := Normalize(raw, day(2024, time.December, 1), day(2024, time.December, 31))
	if len(events) != 2 {
		t.Fatalf("expected 2 canonical events, got %d: %+v", len(events), events)
	}

	// Sorted by key: "jane off" < "omar in paris".
	jane := events[0]
	if jane.Key != "jane off" || jane.Title != "Jane off" {
		t.Fatalf("expected key 'jane off' with first-seen title, got %+v", jane)
	}
	if len(jane.Occurrences) != 2 {
		t.Fatalf("expected 2 occurrences for jane, got %d", len(jane.Occurrences))
	}

	titles := Titles(events)
	if len(titles) != 2 || titles[0] != "Jane off" || titles[1] != "Omar in Paris" {
		t.Fatalf("unexpected titles %v", titles)
	}
}

func TestNormalizeKeepsBoundarySpanningEventWhole(t *testing.T) {
	raw := []model.RawEvent{
		{Feed: model.FeedPTO, Title: "Long trip", Start: day(2024, time.December, 28), End: day(2025, time.January, 6)},
		{Feed: model.FeedPTO, Title: "Out of range", Start: day(2025, time.February, 1), End: day(2025, time.February, 2)},
	}

	events := Normalize(raw, day(2024, time.December, 1), day(2024, time.December, 31))
	if len(events) != 1 {
		t.Fatalf("expected only the overlapping event, got %+v", events)
	}
	occ := events[0].Occurrences[0]
	// The original range is retained; clipping happens at day expansion.
	if !occ.Start.Equal(day(2024, time.December, 28)) || !occ.End.Equal(day(2025, time.January, 6)) {
		t.Fatalf("expected full original range retained, got %s..%s", occ.Start, occ.End)
	}
}

func TestExpandRecurringWeekly(t *testing.T) {
	events := []ParsedEvent{
		{
			Title:    "Team holiday",
			Start:    day(2024, time.November, 4),
			End:      day(2024, time.November, 4),
			RawRRule: "FREQ=WEEKLY;BYDAY=MO;COUNT=10",
			ExDates:  []time.Time{day(2024, time.November, 18)},
		},
	}

	raw := ExpandEvents(model.FeedPTO, events, day(2024, time.November, 1), day(2024, time.November, 30))
	// Mondays in November 2024: 4, 11, 18, 25 — minus the EXDATE on the 18th.
	if len(raw) != 3 {
		t.Fatalf("expected 3 occurrences, got %d: %+v", len(raw), raw)
	}
	want := []time.Time{day(2024, time.November, 4), day(2024, time.November, 11), day(2024, time.November, 25)}
	for i, ev := range raw {
		if !ev.Start.Equal(want[i]) || !ev.End.Equal(want[i]) {
			t.Fatalf("occurrence %d: expected %s, got %s..%s", i, want[i], ev.Start, ev.End)
		}
	}
}

func TestExpandNonRecurringFiltersByOverlap(t *testing.T) {
	events := []ParsedEvent{
		{Title: "Inside", Start: day(2024, time.November, 5), End: day(2024, time.November, 6)},
		{Title: "Outside", Start: day(2024, time.October, 1), End: day(2024, time.October, 2)},
		{Title: "Spanning", Start: day(2024, time.October, 30), End: day(2024, time.November, 2)},
	}

	raw := ExpandEvents(model.FeedTravel, events, day(2024, time.November, 1), day(2024, time.November, 30))
	if len(raw) != 2 {
		t.Fatalf("expected 2 events, got %+v", raw)
	}
	if raw[0].Title != "Inside" || raw[1].Title != "Spanning" {
		t.Fatalf("unexpected events %+v", raw)
	}
}
