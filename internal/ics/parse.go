package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "teamcal/internal/log"
	"teamcal/internal/model"
)

// ParsedEvent is one VEVENT reduced to what the report needs: a title, an
// inclusive day range, and enough recurrence information for expansion.
type ParsedEvent struct {
	Title  string
	Start  time.Time // inclusive day
	End    time.Time // inclusive day
	AllDay bool

	RawRRule string
	ExDates  []time.Time
}

// Parse parses a single ICS payload. Events without a summary carry no
// information for the report and are skipped; individual malformed events
// are logged and skipped so one bad entry does not lose the feed.
func Parse(feed model.Feed, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Warn("vevent skipped", "feed", feed, "parse_err", perr)
			continue
		}
		if ev.Title == "" {
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("feed parsed", "feed", feed, "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, errors.New("missing or invalid DTSTART")
	}
	end, err := ve.GetEndAt()
	if err != nil {
		// Events without DTEND are single-day.
		end = start
	}

	// All-day detection: VALUE=DATE or a date-only DTSTART value.
	if dtStart := ve.GetProperty(ical.ComponentPropertyDtStart); dtStart != nil {
		if params := dtStart.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				out.AllDay = true
			}
		}
		if !strings.Contains(dtStart.Value, "T") {
			out.AllDay = true
		}
	}

	out.Start = model.Day(start)
	out.End = model.Day(end)

	// DTEND is exclusive in iCalendar. For all-day events the end lands on
	// the morning after the last day; a timed event ending exactly at
	// midnight has the same shape. Both collapse to an inclusive last day.
	if out.End.After(out.Start) {
		endsAtMidnight := end.Hour() == 0 && end.Minute() == 0 && end.Second() == 0
		if out.AllDay || endsAtMidnight {
			out.End = out.End.AddDate(0, 0, -1)
		}
	}
	if out.End.Before(out.Start) {
		out.End = out.Start
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, model.Day(t))
			}
		}
	}

	return out, nil
}

// parseICSTime parses the basic ICS date/date-time forms used by EXDATE.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.UTC)
	}
	return time.ParseInLocation("20060102", v, time.UTC)
}
