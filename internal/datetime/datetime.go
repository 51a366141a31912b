// Package datetime renders event times for display in a fixed reference zone.
package datetime

import (
	"errors"
	"strings"
	"time"
	// Embedded zone database keeps output identical on hosts without tzdata.
	_ "time/tzdata"
)

const (
	// DefaultZone is the reference zone events are displayed in.
	DefaultZone = "Europe/Amsterdam"

	// Invalid is rendered for input that cannot be parsed.
	Invalid = "Invalid Date"

	displayLayout = "Monday, January 2, 2006 at 15:04:05"
)

// Zoned layouts carry their own offset; local layouts are read in the
// formatter's zone. A bare date is midnight UTC, as in ECMAScript date parsing.
var (
	zonedLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04Z07:00"}
	localLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02T15:04:05.999999999"}
)

const dateOnlyLayout = "2006-01-02"

var ErrEmpty = errors.New("datetime: empty input")

// Formatter formats datetimes in a single display zone.
type Formatter struct {
	loc *time.Location
}

var defaultFormatter = mustNew(DefaultZone)

// New returns a Formatter for the named IANA zone.
func New(zone string) (*Formatter, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return &Formatter{loc: loc}, nil
}

func mustNew(zone string) *Formatter {
	f, err := New(zone)
	if err != nil {
		panic(err)
	}
	return f
}

// Default returns the Amsterdam formatter.
func Default() *Formatter { return defaultFormatter }

// Location returns the display zone.
func (f *Formatter) Location() *time.Location { return f.loc }

// Parse reads the input as a calendar date-time.
func (f *Formatter) Parse(input string) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, ErrEmpty
	}
	var lastErr error
	for _, layout := range zonedLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	for _, layout := range localLayouts {
		t, err := time.ParseInLocation(layout, s, f.loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, lastErr
}

// Format renders input like "Sunday, March 10, 2024 at 15:30:00" in the
// formatter's zone. Unparseable input yields Invalid.
func (f *Formatter) Format(input string) string {
	t, err := f.Parse(input)
	if err != nil {
		return Invalid
	}
	return f.FormatTime(t)
}

// FormatTime renders an already parsed time.
func (f *Formatter) FormatTime(t time.Time) string {
	if t.IsZero() {
		return Invalid
	}
	return t.In(f.loc).Format(displayLayout)
}

// Format uses the default formatter.
func Format(input string) string { return defaultFormatter.Format(input) }

// Parse uses the default formatter.
func Parse(input string) (time.Time, error) { return defaultFormatter.Parse(input) }
