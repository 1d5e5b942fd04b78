// Package mapping drives the classification oracle that associates
// free-text event titles with employee identities or the holiday sentinel.
// The oracle is an untrusted boundary: its output is validated and repaired
// here, and everything after this package is deterministic.
package mapping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"teamcal/internal/hierarchy"
	"teamcal/internal/ics"
	appLog "teamcal/internal/log"
	"teamcal/internal/model"
)

// Classifier is the request/response boundary to the oracle. It receives
// the distinct event titles, the employee roster (display names only), and
// the sentinel tag name, and returns the raw response text. Transport
// failures are NetworkErrors; the engine owns all response validation.
type Classifier interface {
	Classify(ctx context.Context, titles, roster []string, sentinel string) (string, error)
}

// Engine validates and repairs oracle output into a MappingResult.
type Engine struct {
	oracle Classifier
	index  *hierarchy.Index
}

func NewEngine(oracle Classifier, index *hierarchy.Index) *Engine {
	return &Engine{oracle: oracle, index: index}
}

// Map resolves every canonical event title to employee IDs or the holiday
// sentinel. Titles missing from the response (or lost to an unparseable
// response) are retried exactly once with a narrowed request; whatever is
// still missing afterwards yields an empty target set. The returned
// warnings describe dropped identifiers and unmapped titles; they are
// non-fatal. Only transport failures return an error.
func (e *Engine) Map(ctx context.Context, events []model.CanonicalEvent) (model.MappingResult, []string, error) {
	result := make(model.MappingResult, len(events))
	if len(events) == 0 {
		return result, nil, nil
	}

	titles := ics.Titles(events)
	roster := e.roster()
	var warnings []string

	parsed, err := e.classifyOnce(ctx, titles, roster)
	if err != nil {
		var oerr *model.OracleResponseError
		if !errors.As(err, &oerr) {
			return nil, nil, err
		}
		// Unparseable response counts as "every title missing"; the
		// narrowed retry below is the single repair attempt.
		appLog.Warn("oracle response unparseable, retrying", "reason", oerr.Reason)
		warnings = append(warnings, oerr.Error())
		parsed = map[string][]string{}
	}

	// First pass: resolve what came back.
	for _, ev := range events {
		if ids, ok := parsed[ev.Key]; ok {
			targets, w := e.resolveTargets(ev.Title, ids)
			result[ev.Key] = targets
			warnings = append(warnings, w...)
		}
	}

	// One narrowed retry for whatever is missing.
	var missing []model.CanonicalEvent
	for _, ev := range events {
		if _, ok := result[ev.Key]; !ok {
			missing = append(missing, ev)
		}
	}
	if len(missing) > 0 {
		appLog.Warn("oracle response missing titles, retrying narrowed", "missing", len(missing))
		retryParsed, err := e.classifyOnce(ctx, ics.Titles(missing), roster)
		if err != nil {
			var oerr *model.OracleResponseError
			if !errors.As(err, &oerr) {
				return nil, nil, err
			}
			warnings = append(warnings, "retry: "+oerr.Error())
			retryParsed = map[string][]string{}
		}
		for _, ev := range missing {
			if ids, ok := retryParsed[ev.Key]; ok {
				targets, w := e.resolveTargets(ev.Title, ids)
				result[ev.Key] = targets
				warnings = append(warnings, w...)
			}
		}
	}

	// Whatever is still absent stays unmapped, visibly.
	for _, ev := range events {
		if _, ok := result[ev.Key]; !ok {
			result[ev.Key] = nil
			warnings = append(warnings, fmt.Sprintf("event %q unmapped after retry", ev.Title))
		}
	}

	return result, warnings, nil
}

// classifyOnce performs a single oracle round trip and parses the response
// into a map keyed by normalized title.
func (e *Engine) classifyOnce(ctx context.Context, titles, roster []string) (map[string][]string, error) {
	text, err := e.oracle.Classify(ctx, titles, roster, model.HolidaySentinel)
	if err != nil {
		return nil, err
	}
	raw, err := parseResponse(text)
	if err != nil {
		return nil, err
	}
	// Key the response by normalized title so cosmetic rewrites of a title
	// by the oracle still match the request.
	out := make(map[string][]string, len(raw))
	for title, ids := range raw {
		out[ics.NormalizeTitle(title)] = ids
	}
	return out, nil
}

// resolveTargets maps response identifiers to employees or the sentinel.
// Unresolvable identifiers are dropped with a warning; duplicates are
// removed preserving response order.
func (e *Engine) resolveTargets(title string, ids []string) ([]model.Target, []string) {
	var targets []model.Target
	var warnings []string
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if strings.EqualFold(id, model.HolidaySentinel) {
			if !seen[model.HolidaySentinel] {
				seen[model.HolidaySentinel] = true
				targets = append(targets, model.Target{Holiday: true})
			}
			continue
		}
		node, ok := e.index.ByName(id)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("event %q: identifier %q matches no employee, dropped", title, id))
			continue
		}
		if !seen[node.ID] {
			seen[node.ID] = true
			targets = append(targets, model.Target{EmployeeID: node.ID})
		}
	}
	return targets, warnings
}

// roster returns employee display names in hierarchy pre-order. The oracle
// sees names only, never IDs.
func (e *Engine) roster() []string {
	var names []string
	for n := range e.index.All() {
		names = append(names, n.DisplayName)
	}
	return names
}

// parseResponse validates the raw oracle text into title -> identifiers.
// It strips markdown fences and tolerates a bare string where a list was
// asked for; anything else malformed is an OracleResponseError.
func parseResponse(text string) (map[string][]string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var loose map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &loose); err != nil {
		return nil, &model.OracleResponseError{Reason: "response is not a JSON object", Err: err}
	}

	out := make(map[string][]string, len(loose))
	for title, raw := range loose {
		ids, err := coerceIdentifierList(raw)
		if err != nil {
			return nil, &model.OracleResponseError{Reason: fmt.Sprintf("entry %q is not a list of identifiers", title), Err: err}
		}
		out[title] = ids
	}
	return out, nil
}

// coerceIdentifierList accepts ["a","b"], a bare "a", or null/[].
func coerceIdentifierList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	return nil, fmt.Errorf("unsupported value %s", string(raw))
}
