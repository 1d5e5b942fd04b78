package ics

import (
	"sort"
	"strings"
	"time"

	"teamcal/internal/model"
)

// NormalizeTitle produces the canonical grouping key for an event title:
// trimmed, inner whitespace collapsed, case-folded.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// Normalize deduplicates raw events from all feeds into canonical events
// restricted to the report range. Events overlapping a range boundary are
// kept with their full original range; the reconciler clips day expansion
// to the range. The result is sorted by key so the distinct-title request
// sent to the oracle is deterministic.
func Normalize(raw []model.RawEvent, rangeStart, rangeEnd time.Time) []model.CanonicalEvent {
	rangeStart = model.Day(rangeStart)
	rangeEnd = model.Day(rangeEnd)

	byKey := make(map[string]*model.CanonicalEvent)
	for _, ev := range raw {
		key := NormalizeTitle(ev.Title)
		if key == "" {
			continue
		}
		if !daysOverlap(model.Day(ev.Start), model.Day(ev.End), rangeStart, rangeEnd) {
			continue
		}
		ce, ok := byKey[key]
		if !ok {
			ce = &model.CanonicalEvent{Key: key, Title: strings.TrimSpace(ev.Title)}
			byKey[key] = ce
		}
		ce.Occurrences = append(ce.Occurrences, model.Occurrence{
			Feed:  ev.Feed,
			Start: model.Day(ev.Start),
			End:   model.Day(ev.End),
		})
	}

	out := make([]model.CanonicalEvent, 0, len(byKey))
	for _, ce := range byKey {
		out = append(out, *ce)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Titles returns the distinct display titles of the canonical events, in
// the events' (sorted) order. This is the oracle request payload.
func Titles(events []model.CanonicalEvent) []string {
	out := make([]string, 0, len(events))
	for _, ce := range events {
		out = append(out, ce.Title)
	}
	return out
}
