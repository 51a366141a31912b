// Package filter derives the visible subset of events from search criteria.
package filter

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"eventboard/internal/model"
)

// DefaultCategoryID is the category uncategorized events are shown under.
const DefaultCategoryID int64 = 1

// Criteria is the view-local filter state.
type Criteria struct {
	// Query matches event titles, case-insensitively.
	Query string
	// Category is a category id as entered in the selector; empty disables it.
	Category string
}

// IsZero reports whether the criteria let every event through.
func (c Criteria) IsZero() bool {
	return c.Query == "" && c.Category == ""
}

// Engine filters events. It is safe for concurrent use.
type Engine struct {
	defaultCategory int64
}

// New returns an Engine with the given default category id.
func New(defaultCategory int64) *Engine {
	return &Engine{defaultCategory: defaultCategory}
}

// DefaultCategory returns the id uncategorized events are listed under.
func (e *Engine) DefaultCategory() int64 { return e.defaultCategory }

// Filter keeps events that match both the title query and the category
// selector, preserving input order. The input slice is not modified.
func (e *Engine) Filter(events []model.Event, c Criteria) []model.Event {
	// Casers carry state and are not shared between goroutines.
	lower := cases.Lower(language.Und)
	query := lower.String(c.Query)
	sel := parseSelector(c.Category)

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if query != "" && !strings.Contains(lower.String(ev.Title), query) {
			continue
		}
		if sel.active && !e.inCategory(ev, sel) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Match reports whether a single event passes the criteria.
func (e *Engine) Match(ev model.Event, c Criteria) bool {
	return len(e.Filter([]model.Event{ev}, c)) == 1
}

type selector struct {
	id     int64
	active bool
	// numeric is false for a selector that is set but not a number; such a
	// selector matches no event.
	numeric bool
}

func parseSelector(raw string) selector {
	if raw == "" {
		return selector{}
	}
	n, ok := model.LeadingInt(raw)
	return selector{id: n, active: true, numeric: ok}
}

func (e *Engine) inCategory(ev model.Event, sel selector) bool {
	if !sel.numeric {
		return false
	}
	if ev.CategoryIDs == nil {
		return e.uncategorizedInDefault(sel.id)
	}
	for _, id := range ev.CategoryIDs {
		if n, ok := id.Int(); ok && n == sel.id {
			return true
		}
	}
	return false
}

// uncategorizedInDefault is the rule that events without any categoryIds
// belong to the default category.
func (e *Engine) uncategorizedInDefault(selected int64) bool {
	return selected == e.defaultCategory
}

var defaultEngine = New(DefaultCategoryID)

// Filter applies the default engine.
func Filter(events []model.Event, c Criteria) []model.Event {
	return defaultEngine.Filter(events, c)
}
