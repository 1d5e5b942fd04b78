// Package reconcile merges canonical events, oracle mappings, and holiday
// sets into exactly one DateAssignment per (employee, day).
package reconcile

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"teamcal/internal/hierarchy"
	"teamcal/internal/model"
)

// precedenceRank is the total order used to pick the surviving assignment
// when several types claim the same employee-day. Higher rank wins:
// HOLIDAY > TRAVEL > PTO. Holidays and recognized non-work days outrank a
// personal claim on the same date, and travel outranks PTO because travel
// implies away-from-desk regardless of a simultaneous leave request.
var precedenceRank = map[model.AssignmentType]int{
	model.AssignmentPTO:     0,
	model.AssignmentTravel:  1,
	model.AssignmentHoliday: 2,
}

// Outranks reports whether type a wins over type b.
func Outranks(a, b model.AssignmentType) bool {
	return precedenceRank[a] > precedenceRank[b]
}

// Reconciler expands events and holidays into per-day assignments.
type Reconciler struct {
	index *hierarchy.Index

	// scopeKeywords narrows an oracle-tagged holiday title to one
	// location when the title contains the keyword. Comes from config;
	// the default policy (no keyword match) applies the holiday to every
	// employee regardless of location.
	scopeKeywords map[string]string
}

func New(index *hierarchy.Index, scopeKeywords map[string]string) *Reconciler {
	return &Reconciler{index: index, scopeKeywords: scopeKeywords}
}

type dayKey struct {
	employeeID string
	date       time.Time
}

// Reconcile produces the final assignment set for the inclusive report
// range. Occurrence day ranges are clipped to the range, weekends are
// never assigned, and collisions resolve by precedence.
func (r *Reconciler) Reconcile(
	events []model.CanonicalEvent,
	mapping model.MappingResult,
	holidays model.HolidaySet,
	rangeStart, rangeEnd time.Time,
) []model.DateAssignment {
	rangeStart = model.Day(rangeStart)
	rangeEnd = model.Day(rangeEnd)

	byDay := make(map[dayKey]model.AssignmentType)
	assign := func(employeeID string, date time.Time, typ model.AssignmentType) {
		if date.Before(rangeStart) || date.After(rangeEnd) || model.IsWeekend(date) {
			return
		}
		key := dayKey{employeeID: employeeID, date: date}
		if existing, ok := byDay[key]; ok && !Outranks(typ, existing) {
			return
		}
		byDay[key] = typ
	}

	// Feed events through their oracle targets.
	for _, ev := range events {
		targets := mapping[ev.Key]
		if len(targets) == 0 {
			continue // unmapped; reported by the pipeline summary
		}
		for _, occ := range ev.Occurrences {
			typ := feedType(occ.Feed)
			for _, target := range targets {
				if target.Holiday {
					// Oracle-driven holiday classification is independent
					// of the static rule table.
					for _, id := range r.holidayScope(ev.Title) {
						forEachDay(occ.Start, occ.End, func(d time.Time) {
							assign(id, d, model.AssignmentHoliday)
						})
					}
					continue
				}
				forEachDay(occ.Start, occ.End, func(d time.Time) {
					assign(target.EmployeeID, d, typ)
				})
			}
		}
	}

	// Table-derived holidays per location.
	for loc, dates := range holidays {
		ids := r.index.InLocation(loc)
		for _, h := range dates {
			for _, id := range ids {
				assign(id, model.Day(h.Date), model.AssignmentHoliday)
			}
		}
	}

	out := make([]model.DateAssignment, 0, len(byDay))
	for key, typ := range byDay {
		out = append(out, model.DateAssignment{EmployeeID: key.employeeID, Date: key.date, Type: typ})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// holidayScope returns the employees a holiday-tagged title applies to:
// everyone, unless the title text names a configured location keyword.
// Keywords match whole words ("US Holiday" matches "us", "status" does
// not); multiple matching keywords union their locations.
func (r *Reconciler) holidayScope(title string) []string {
	padded := " " + strings.Join(tokenize(title), " ") + " "

	keywords := make([]string, 0, len(r.scopeKeywords))
	for kw := range r.scopeKeywords {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	var ids []string
	for _, kw := range keywords {
		needle := " " + strings.Join(tokenize(kw), " ") + " "
		if strings.Contains(padded, needle) {
			ids = append(ids, r.index.InLocation(r.scopeKeywords[kw])...)
		}
	}
	if ids != nil {
		return ids
	}

	all := make([]string, 0, r.index.Len())
	for n := range r.index.All() {
		all = append(all, n.ID)
	}
	return all
}

// tokenize lower-cases s and splits it on anything that is not a letter
// or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func feedType(feed model.Feed) model.AssignmentType {
	if feed == model.FeedTravel {
		return model.AssignmentTravel
	}
	return model.AssignmentPTO
}

func forEachDay(start, end time.Time, fn func(time.Time)) {
	for d := model.Day(start); !d.After(model.Day(end)); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}
