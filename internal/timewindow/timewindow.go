// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package timewindow turns a 12-hour departure time into an acceptance
// window and into the set of textual renderings a results page may use for
// that same instant.
package timewindow

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrUnparseable is returned for times that are not 12-hour clock strings
// with an AM/PM marker.
var ErrUnparseable = errors.New("unparseable target time")

// Spread is the distance on either side of the target covered by a window.
const Spread = 2 * 60

const lastMinute = 23*60 + 59

var clockRe = regexp.MustCompile(`(?i)^\s*(\d{1,2}):(\d{2})\s*([ap])\.?\s*m\.?\s*$`)

// Clock is a time of day in minutes after midnight.
type Clock int

// Hour returns the 24-hour hour.
func (c Clock) Hour() int { return int(c) / 60 }

// Minute returns the minute within the hour.
func (c Clock) Minute() int { return int(c) % 60 }

// String renders the clock as HH:MM.
func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute()) }

// Kitchen renders the clock as "3:04 PM".
func (c Clock) Kitchen() string {
	h, marker := twelveHour(c.Hour())
	return fmt.Sprintf("%d:%02d %s", h, c.Minute(), strings.ToUpper(marker))
}

// Window is an acceptance range around a target time.
type Window struct {
	Target Clock
	Lower  Clock
	Upper  Clock
}

// Contains reports whether c falls within the window, bounds included.
func (w Window) Contains(c Clock) bool {
	return c >= w.Lower && c <= w.Upper
}

// String renders the window for logs.
func (w Window) String() string {
	return w.Lower.Kitchen() + " - " + w.Upper.Kitchen()
}

// Parse reads a 12-hour time such as "1:30 PM", "1:30pm" or "12:05 a.m.".
func Parse(target string) (Clock, error) {
	m := clockRe.FindStringSubmatch(target)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseable, target)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrUnparseable, target)
	}
	pm := strings.EqualFold(m[3], "p")
	switch {
	case pm && hour != 12:
		hour += 12
	case !pm && hour == 12:
		hour = 0
	}
	return Clock(hour*60 + minute), nil
}

// Build returns the window of target ± Spread, clamped to the day.
func Build(target string) (Window, error) {
	c, err := Parse(target)
	if err != nil {
		return Window{}, err
	}
	lower := int(c) - Spread
	if lower < 0 {
		lower = 0
	}
	upper := int(c) + Spread
	if upper > lastMinute {
		upper = lastMinute
	}
	return Window{Target: c, Lower: Clock(lower), Upper: Clock(upper)}, nil
}

// Variants returns the deduplicated, sorted renderings of target. It
// returns nil when target cannot be parsed.
func Variants(target string) []string {
	c, err := Parse(target)
	if err != nil {
		return nil
	}
	return ClockVariants(c)
}

// ClockVariants returns the renderings of c: 12-hour with and without a
// space before the marker, with and without a leading zero, 24-hour, hour-only
// shorthand, in lower and upper case.
func ClockVariants(c Clock) []string {
	h12, marker := twelveHour(c.Hour())
	mm := c.Minute()

	lower := []string{
		fmt.Sprintf("%d:%02d %s", h12, mm, marker),
		fmt.Sprintf("%d:%02d%s", h12, mm, marker),
		fmt.Sprintf("%02d:%02d %s", h12, mm, marker),
		fmt.Sprintf("%02d:%02d%s", h12, mm, marker),
		fmt.Sprintf("%d:%02d", c.Hour(), mm),
		fmt.Sprintf("%02d:%02d", c.Hour(), mm),
		fmt.Sprintf("%d %s", h12, marker),
		fmt.Sprintf("%d%s", h12, marker),
	}

	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range lower {
		add(v)
		add(strings.ToUpper(v))
	}
	sort.Strings(out)
	return out
}

// HasMarker reports whether a rendering carries an am/pm marker.
func HasMarker(v string) bool {
	v = strings.ToLower(v)
	return strings.HasSuffix(v, "am") || strings.HasSuffix(v, "pm")
}

func twelveHour(h24 int) (int, string) {
	marker := "am"
	if h24 >= 12 {
		marker = "pm"
	}
	h := h24 % 12
	if h == 0 {
		h = 12
	}
	return h, marker
}
