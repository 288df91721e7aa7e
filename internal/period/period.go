// Package period converts human-granularity period expressions into
// unambiguous half-open time intervals.
//
// Every stored sale timestamp carries a time-of-day component, so naive
// inclusive date-string ranges (BETWEEN '2025-02-01' AND '2025-02-28')
// silently drop rows timestamped after midnight on the end day. Resolving
// to [start, end) with end computed as the start of the next calendar unit
// eliminates that class of bug.
package period

import (
	"fmt"
	"time"

	"github.com/oraculo-ai/oraculo/internal/model"
)

// Granularity is the calendar unit of a period expression.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

// Granularities lists all supported granularities in stable order.
var Granularities = []Granularity{Day, Week, Month, Year}

// Valid reports whether g is a supported granularity.
func (g Granularity) Valid() bool {
	switch g {
	case Day, Week, Month, Year:
		return true
	}
	return false
}

// anchorLayout maps each granularity to the calendar-literal layout its
// anchor token must match. Week anchors are full dates: any day inside
// the week identifies it.
var anchorLayout = map[Granularity]string{
	Day:   "2006-01-02",
	Week:  "2006-01-02",
	Month: "2006-01",
	Year:  "2006",
}

// Spec is a validated-on-resolve period expression: a granularity plus a
// calendar-literal anchor token ("2025-02" for month, "2025-02-24" for
// day or week, "2025" for year).
type Spec struct {
	Granularity Granularity `json:"granularity"`
	Anchor      string      `json:"anchor"`
}

// Interval is a half-open time range [Start, End). Start is inclusive and
// End exclusive; Resolve guarantees Start < End.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Resolve converts a period spec into its half-open interval in UTC.
// It fails with model.ErrInvalidPeriodSpec when the anchor token does not
// match the expected literal shape for its granularity or denotes an
// impossible calendar date (e.g. day 31 in April).
//
// Week starts are Mondays: the interval covers the Monday at or before
// the anchor date through the following Monday.
func Resolve(spec Spec) (Interval, error) {
	if !spec.Granularity.Valid() {
		return Interval{}, fmt.Errorf("%w: unknown granularity %q", model.ErrInvalidPeriodSpec, spec.Granularity)
	}

	layout := anchorLayout[spec.Granularity]
	anchor, err := time.ParseInLocation(layout, spec.Anchor, time.UTC)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: anchor %q does not match %s for granularity %s",
			model.ErrInvalidPeriodSpec, spec.Anchor, layout, spec.Granularity)
	}

	var start, end time.Time
	switch spec.Granularity {
	case Day:
		start = anchor
		end = start.AddDate(0, 0, 1)
	case Week:
		start = startOfWeek(anchor)
		end = start.AddDate(0, 0, 7)
	case Month:
		// anchor is already the first of the month at midnight; AddDate
		// handles month lengths and leap Februaries.
		start = anchor
		end = start.AddDate(0, 1, 0)
	case Year:
		start = anchor
		end = start.AddDate(1, 0, 0)
	}

	return Interval{Start: start, End: end}, nil
}

// startOfWeek returns the most recent Monday at or before t, at midnight.
func startOfWeek(t time.Time) time.Time {
	// time.Weekday counts Sunday as 0; shift so Monday is 0.
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
