package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "teamcal/internal/log"
	"teamcal/internal/model"
)

// maxOccurrencesPerEvent caps recurrence expansion so a runaway rule cannot
// blow up a report covering a few months.
const maxOccurrencesPerEvent = 366

// ExpandEvents turns parsed events into concrete RawEvents intersecting the
// inclusive day range [rangeStart, rangeEnd]. Non-recurring events are kept
// whole (their full original range is retained for day expansion later);
// RRULE events are expanded into one RawEvent per occurrence, honoring
// EXDATE. Shared calendars commonly carry yearly-recurring holiday entries,
// which is why expansion lives here rather than being left to the feed.
func ExpandEvents(feed model.Feed, events []ParsedEvent, rangeStart, rangeEnd time.Time) []model.RawEvent {
	rangeStart = model.Day(rangeStart)
	rangeEnd = model.Day(rangeEnd)

	out := make([]model.RawEvent, 0, len(events))
	for _, ev := range events {
		if ev.RawRRule == "" {
			if daysOverlap(ev.Start, ev.End, rangeStart, rangeEnd) {
				out = append(out, model.RawEvent{Feed: feed, Title: ev.Title, Start: ev.Start, End: ev.End})
			}
			continue
		}
		out = append(out, expandRecurring(feed, ev, rangeStart, rangeEnd)...)
	}
	return out
}

func expandRecurring(feed model.Feed, ev ParsedEvent, rangeStart, rangeEnd time.Time) []model.RawEvent {
	rr, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("recurring event skipped, invalid rrule", "feed", feed, "title", ev.Title, "parse_err", err)
		return nil
	}
	rr.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(rr)
	for _, ex := range ev.ExDates {
		set.ExDate(ex)
	}

	durDays := int(ev.End.Sub(ev.Start).Hours() / 24)

	// Widen the window backwards so a multi-day occurrence that starts
	// before the range but reaches into it is still produced.
	windowStart := rangeStart.AddDate(0, 0, -durDays)
	times := set.Between(windowStart, rangeEnd, true)
	if len(times) > maxOccurrencesPerEvent {
		appLog.Warn("recurring event truncated", "feed", feed, "title", ev.Title, "cap", maxOccurrencesPerEvent)
		times = times[:maxOccurrencesPerEvent]
	}

	out := make([]model.RawEvent, 0, len(times))
	for _, t := range times {
		start := model.Day(t)
		out = append(out, model.RawEvent{
			Feed:  feed,
			Title: ev.Title,
			Start: start,
			End:   start.AddDate(0, 0, durDays),
		})
	}
	return out
}

func daysOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
