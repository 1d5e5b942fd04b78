package model

import "time"

// Feed identifies which calendar feed a raw event came from.
type Feed string

const (
	FeedPTO    Feed = "PTO"
	FeedTravel Feed = "TRAVEL"
)

// AssignmentType is the per-day classification of an employee's absence.
type AssignmentType string

const (
	AssignmentPTO     AssignmentType = "PTO"
	AssignmentTravel  AssignmentType = "TRAVEL"
	AssignmentHoliday AssignmentType = "HOLIDAY"
)

// HolidaySentinel is the reserved identifier the classification oracle uses
// to tag an event title as a holiday rather than a personal claim.
const HolidaySentinel = "_HOLIDAY_"

// RawEvent is a single calendar entry as read from a feed, before
// deduplication. Start and End are inclusive calendar days.
type RawEvent struct {
	Feed  Feed
	Title string
	Start time.Time
	End   time.Time
}

// Occurrence is one dated occurrence of a canonical event.
type Occurrence struct {
	Feed  Feed
	Start time.Time // inclusive day
	End   time.Time // inclusive day
}

// CanonicalEvent groups all raw events sharing one normalized title.
//
// Key is the normalized form (trimmed, whitespace-collapsed, case-folded)
// used for grouping and as the oracle request/response key. Title keeps the
// first-seen original spelling for display.
type CanonicalEvent struct {
	Key         string
	Title       string
	Occurrences []Occurrence
}

// Target is a single resolution of an event title: either a concrete
// employee or the holiday sentinel.
type Target struct {
	EmployeeID string
	Holiday    bool
}

// MappingResult maps each requested title key to its resolved targets.
// An empty target list means the title stayed unmapped after the retry.
type MappingResult map[string][]Target

// HolidayScope distinguishes country-specific holidays from company-wide ones.
type HolidayScope string

const (
	ScopeCountry HolidayScope = "COUNTRY"
	ScopeCompany HolidayScope = "COMPANY"
)

// HolidayDate is a single resolved holiday for a location.
type HolidayDate struct {
	Date  time.Time
	Name  string
	Scope HolidayScope
}

// HolidaySet maps a location code to the holidays applicable there within
// the report range. Company-scope entries appear in every location's set.
type HolidaySet map[string][]HolidayDate

// DateAssignment is the single authoritative absence record for one
// employee on one day. Reconciliation guarantees at most one per
// (EmployeeID, Date).
type DateAssignment struct {
	EmployeeID string
	Date       time.Time
	Type       AssignmentType
}

// Day truncates t to its calendar day in UTC. All dates flowing between
// pipeline stages are day-truncated so they compare with Equal/Before.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether d falls on a Saturday or Sunday. Weekend days
// never receive assignments and never appear as grid columns.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
