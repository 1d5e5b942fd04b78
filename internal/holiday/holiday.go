// Package holiday computes the set of holiday dates applicable to each
// location over a report range, from a static YAML rule table. Fixed rules
// name a month/day; floating rules ("fourth Thursday of November") are
// RFC 5545 RRULEs evaluated with rrule-go.
package holiday

import (
	"fmt"
	"os"
	"time"

	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	appLog "teamcal/internal/log"
	"teamcal/internal/model"
)

// Rule is a single holiday rule. Exactly one of (Month, Day) or RRule
// should be set.
type Rule struct {
	Name  string `yaml:"name"`
	Month int    `yaml:"month,omitempty"`
	Day   int    `yaml:"day,omitempty"`
	RRule string `yaml:"rrule,omitempty"`
}

// Table is the external holiday rule table, keyed by location code, plus a
// company-wide list applied to every location.
type Table struct {
	Locations map[string][]Rule `yaml:"locations"`
	Company   []Rule            `yaml:"company"`
}

// LoadTable reads the YAML rule table from path.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading holiday rules: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing holiday rules: %w", err)
	}
	return &t, nil
}

// Resolver resolves rules against a concrete date range.
type Resolver struct {
	table *Table
}

func NewResolver(table *Table) *Resolver {
	return &Resolver{table: table}
}

// Resolve returns the HolidaySet for the inclusive range [start, end],
// restricted to the given locations. Locations with no rule entry are
// reported as UnsupportedLocationError values in the second return; they
// get no entry in the set and the run continues.
func (r *Resolver) Resolve(start, end time.Time, locations []string) (model.HolidaySet, []error) {
	start = model.Day(start)
	end = model.Day(end)

	set := make(model.HolidaySet, len(locations))
	var warnings []error

	company := r.expandRules(r.table.Company, start, end, model.ScopeCompany)

	for _, loc := range locations {
		rules, ok := r.table.Locations[loc]
		if !ok {
			warnings = append(warnings, &model.UnsupportedLocationError{Location: loc})
			continue
		}
		dates := r.expandRules(rules, start, end, model.ScopeCountry)
		dates = append(dates, company...)
		set[loc] = dates
	}

	return set, warnings
}

// expandRules resolves each rule once per calendar year overlapping the
// range and keeps only dates inside [start, end].
func (r *Resolver) expandRules(rules []Rule, start, end time.Time, scope model.HolidayScope) []model.HolidayDate {
	var out []model.HolidayDate
	for _, rule := range rules {
		for _, d := range expandRule(rule, start, end) {
			out = append(out, model.HolidayDate{Date: d, Name: rule.Name, Scope: scope})
		}
	}
	return out
}

func expandRule(rule Rule, start, end time.Time) []time.Time {
	if rule.RRule != "" {
		rr, err := rrule.StrToRRule(rule.RRule)
		if err != nil {
			// Bad table entry: log and skip rather than killing the run.
			appLog.Warn("holiday rule skipped, invalid rrule", "name", rule.Name, "rrule", rule.RRule, "parse_err", err)
			return nil
		}
		rr.DTStart(time.Date(start.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
		times := rr.Between(start, end, true)
		out := make([]time.Time, 0, len(times))
		for _, t := range times {
			out = append(out, model.Day(t))
		}
		return out
	}

	if rule.Month < 1 || rule.Month > 12 || rule.Day < 1 || rule.Day > 31 {
		appLog.Warn("holiday rule skipped, invalid month/day", "name", rule.Name, "month", rule.Month, "day", rule.Day)
		return nil
	}
	var out []time.Time
	for year := start.Year(); year <= end.Year(); year++ {
		d := time.Date(year, time.Month(rule.Month), rule.Day, 0, 0, 0, 0, time.UTC)
		if !d.Before(start) && !d.After(end) {
			out = append(out, d)
		}
	}
	return out
}
