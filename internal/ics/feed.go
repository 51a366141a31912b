// Package ics exports events as an iCalendar feed so the board can be
// subscribed to from calendar clients.
package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"eventboard/internal/category"
	"eventboard/internal/datetime"
	appLog "eventboard/internal/log"
	"eventboard/internal/model"
)

const productID = "-//eventboard//Event Board//EN"

// FeedOptions controls feed generation.
type FeedOptions struct {
	// Name is the calendar display name (X-WR-CALNAME).
	Name string
	// BaseURL, when set, is used to link each VEVENT to its detail page.
	BaseURL string
	// Now stamps DTSTAMP; zero means time.Now().
	Now time.Time
	// Formatter parses zone-less event times; nil uses the default zone.
	Formatter *datetime.Formatter
}

// Build serializes events into an iCalendar document. Events whose start or
// end time cannot be parsed are skipped and logged.
func Build(events []model.Event, users []model.User, categories []model.Category, opts FeedOptions) string {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Formatter == nil {
		opts.Formatter = datetime.Default()
	}
	if opts.Name == "" {
		opts.Name = "Events"
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(opts.Name)
	cal.SetXWRCalName(opts.Name)
	cal.SetTimezoneId(opts.Formatter.Location().String())

	skipped := 0
	for _, ev := range events {
		start, err := opts.Formatter.Parse(ev.StartTime)
		if err != nil {
			appLog.Error("ics export: bad start time", err, "id", ev.ID.String())
			skipped++
			continue
		}
		end, err := opts.Formatter.Parse(ev.EndTime)
		if err != nil {
			appLog.Error("ics export: bad end time", err, "id", ev.ID.String())
			skipped++
			continue
		}

		vev := cal.AddEvent(UID(ev.ID))
		vev.SetDtStampTime(opts.Now.UTC())
		vev.SetStartAt(start.UTC())
		vev.SetEndAt(end.UTC())
		vev.SetSummary(ev.Title)
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}
		// One CATEGORIES line per name; a joined value would be escaped
		// into a single category.
		for _, name := range nonEmpty(category.ResolveNames(ev.CategoryIDs, categories)) {
			vev.AddProperty(ical.ComponentPropertyCategories, name)
		}
		if u, ok := model.FindUser(users, ev.CreatedBy); ok && u.Name != "" {
			vev.SetOrganizer("urn:eventboard:user:"+u.ID.String(), ical.WithCN(u.Name))
		}
		if opts.BaseURL != "" {
			vev.SetURL(strings.TrimRight(opts.BaseURL, "/") + "/event/" + ev.ID.String())
		}
	}

	appLog.Debug("ics export completed", "events", len(events)-skipped, "skipped", skipped)
	return cal.Serialize()
}

// UID is the stable VEVENT UID for an event id.
func UID(id model.ID) string {
	return "event-" + id.String() + "@eventboard"
}

func nonEmpty(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
