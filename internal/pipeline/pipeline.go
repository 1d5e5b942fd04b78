// Package pipeline runs one end-to-end report generation: load the org
// hierarchy, resolve holidays, fetch and normalize both feeds, classify
// titles through the oracle, reconcile assignments, and render the
// spreadsheet.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"teamcal/internal/config"
	"teamcal/internal/grid"
	"teamcal/internal/hierarchy"
	"teamcal/internal/holiday"
	"teamcal/internal/ics"
	appLog "teamcal/internal/log"
	"teamcal/internal/mapping"
	"teamcal/internal/model"
	"teamcal/internal/reconcile"
	"teamcal/internal/render"
)

// Fetcher retrieves one feed body. *ics.Client is the production
// implementation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Pipeline wires the stages together. Stages either succeed, degrade with a
// recorded warning, or abort the run with an error; no stage silently drops
// data.
type Pipeline struct {
	cfg     *config.Config
	fetcher Fetcher
	oracle  mapping.Classifier

	now func() time.Time
}

func New(cfg *config.Config, fetcher Fetcher, oracle mapping.Classifier) *Pipeline {
	return &Pipeline{cfg: cfg, fetcher: fetcher, oracle: oracle, now: time.Now}
}

// RunSummary reports what a run produced and every non-fatal degradation
// it accumulated along the way.
type RunSummary struct {
	OutputPath  string
	Employees   int
	Events      int
	Assignments int
	Warnings    []string
}

// Run generates one report for the inclusive day range [start, end].
func (p *Pipeline) Run(ctx context.Context, start, end time.Time) (*RunSummary, error) {
	start, end = model.Day(start), model.Day(end)
	if end.Before(start) {
		return nil, &model.ValidationError{Reason: fmt.Sprintf("report range ends (%s) before it starts (%s)",
			end.Format("2006-01-02"), start.Format("2006-01-02"))}
	}
	appLog.Info("run starting", "start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))

	summary := &RunSummary{}

	index, err := hierarchy.LoadFile(p.cfg.EmployeesPath)
	if err != nil {
		return nil, fmt.Errorf("loading employees: %w", err)
	}
	summary.Employees = index.Len()

	table, err := holiday.LoadTable(p.cfg.HolidayRulesPath)
	if err != nil {
		return nil, fmt.Errorf("loading holiday rules: %w", err)
	}
	holidays, holidayWarnings := holiday.NewResolver(table).Resolve(start, end, index.Locations())
	for _, w := range holidayWarnings {
		summary.Warnings = append(summary.Warnings, w.Error())
	}

	events, err := p.collectEvents(ctx, start, end, summary)
	if err != nil {
		return nil, err
	}
	summary.Events = len(events)

	result, mapWarnings, err := mapping.NewEngine(p.oracle, index).Map(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("classifying events: %w", err)
	}
	summary.Warnings = append(summary.Warnings, mapWarnings...)

	assignments := reconcile.New(index, p.cfg.HolidayScopeKeywords).Reconcile(events, result, holidays, start, end)
	summary.Assignments = len(assignments)

	g, err := grid.Assemble(index, assignments, start, end)
	if err != nil {
		return nil, err
	}

	path, err := render.New(p.cfg.OutputDir, p.cfg.CellColors).Render(g, p.now())
	if err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	summary.OutputPath = path

	appLog.Info("run finished",
		"output", path,
		"employees", summary.Employees,
		"events", summary.Events,
		"assignments", summary.Assignments,
		"warnings", len(summary.Warnings))
	return summary, nil
}

// collectEvents fetches, parses, and expands both feeds, then folds them
// into one canonical event list. A feed with no configured URL is skipped
// with a warning rather than failing the run.
func (p *Pipeline) collectEvents(ctx context.Context, start, end time.Time, summary *RunSummary) ([]model.CanonicalEvent, error) {
	feeds := []struct {
		feed model.Feed
		url  string
	}{
		{model.FeedPTO, p.cfg.PTOFeed.URL},
		{model.FeedTravel, p.cfg.TravelFeed.URL},
	}

	var raw []model.RawEvent
	for _, f := range feeds {
		if f.url == "" {
			appLog.Warn("feed not configured, skipping", "feed", f.feed)
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("feed %s has no URL configured", f.feed))
			continue
		}
		body, err := p.fetcher.Fetch(ctx, f.url)
		if err != nil {
			return nil, fmt.Errorf("fetching %s feed: %w", f.feed, err)
		}
		parsed, err := ics.Parse(f.feed, body)
		if err != nil {
			return nil, fmt.Errorf("parsing %s feed: %w", f.feed, err)
		}
		raw = append(raw, ics.ExpandEvents(f.feed, parsed, start, end)...)
	}

	return ics.Normalize(raw, start, end), nil
}
