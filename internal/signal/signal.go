// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package signal decides which itinerary clues (airline, flight numbers,
// departure times) appear in a piece of page text. Scoring depends only on
// the Matcher interface, so the literal text heuristics here can be replaced
// by a structured source later.
package signal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/fare-scout/internal/timewindow"
	"github.com/pdiddy/fare-scout/pkg/types"
)

// TextVersion identifies the literal substring matcher.
const TextVersion = "text/v1"

// Shape describes which itinerary fields a query effectively supplies.
type Shape struct {
	FlightNumbers int
	OutboundTime  bool
	ReturnTime    bool
}

// TwoLeg reports whether both an outbound and a return time are supplied.
func (s Shape) TwoLeg() bool { return s.OutboundTime && s.ReturnTime }

// Matcher finds itinerary signals in text.
type Matcher interface {
	// Version identifies the matching heuristic.
	Version() string

	// Match returns the signals present in text.
	Match(text string) types.SignalSet

	// Shape reports the fields the matcher can look for.
	Shape() Shape
}

// timeTarget holds the renderings of one leg's departure time.
type timeTarget struct {
	variants []string
	opposite string // marker of the other half of the day
	window   timewindow.Window
}

// TextMatcher is the literal substring Matcher compiled from a query.
type TextMatcher struct {
	carrier  Carrier
	codeRe   *regexp.Regexp
	flights  [][]string
	outbound *timeTarget
	ret      *timeTarget
	disabled []error
}

var flightNumberRe = regexp.MustCompile(`^([A-Z][A-Z0-9]|[0-9][A-Z])\s*-?\s*(\d{1,4})$`)

// Compile builds a TextMatcher for q. Times that cannot be parsed disable
// their leg; the reasons are available from Disabled.
func Compile(q types.ItineraryQuery) *TextMatcher {
	q = q.Normalize()
	m := &TextMatcher{}

	code := q.Airline
	if code == "" && len(q.FlightNumbers) > 0 {
		if sm := flightNumberRe.FindStringSubmatch(q.FlightNumbers[0]); sm != nil {
			code = sm[1]
		}
	}
	if code != "" {
		m.carrier, _ = LookupCarrier(code)
		m.codeRe = regexp.MustCompile(`(^|[^a-z0-9])` + regexp.QuoteMeta(strings.ToLower(code)) + `([ ,\-]|\d)`)
	}

	for _, fn := range q.FlightNumbers {
		m.flights = append(m.flights, flightRenderings(fn, m.carrier))
	}

	if q.OutboundTime != "" {
		t, err := compileTime(q.OutboundTime)
		if err != nil {
			m.disabled = append(m.disabled, fmt.Errorf("outbound leg: %w", err))
		} else {
			m.outbound = t
		}
	}
	if q.ReturnTime != "" {
		t, err := compileTime(q.ReturnTime)
		if err != nil {
			m.disabled = append(m.disabled, fmt.Errorf("return leg: %w", err))
		} else {
			m.ret = t
		}
	}
	return m
}

func compileTime(target string) (*timeTarget, error) {
	w, err := timewindow.Build(target)
	if err != nil {
		return nil, err
	}
	opposite := "pm"
	if w.Target.Hour() >= 12 {
		opposite = "am"
	}
	var variants []string
	for _, v := range timewindow.ClockVariants(w.Target) {
		variants = append(variants, strings.ToLower(v))
	}
	return &timeTarget{variants: dedupe(variants), opposite: opposite, window: w}, nil
}

// flightRenderings lists the lower-case ways a page may print fn: bare
// number, code+number with and without separators, and carrier name + number.
func flightRenderings(fn string, fallback Carrier) []string {
	fn = strings.ToUpper(strings.TrimSpace(fn))
	code, num := fallback.Code, fn
	if sm := flightNumberRe.FindStringSubmatch(fn); sm != nil {
		code, num = sm[1], sm[2]
	}
	num = strings.TrimLeft(num, "0")
	if num == "" {
		num = "0"
	}

	out := []string{num}
	if code != "" {
		lc := strings.ToLower(code)
		out = append(out, lc+num, lc+" "+num, lc+"-"+num)
		if c, ok := LookupCarrier(code); ok {
			out = append(out, c.Short+" "+num)
		}
	}
	return dedupe(out)
}

// Version implements Matcher.
func (m *TextMatcher) Version() string { return TextVersion }

// Shape implements Matcher.
func (m *TextMatcher) Shape() Shape {
	return Shape{
		FlightNumbers: len(m.flights),
		OutboundTime:  m.outbound != nil,
		ReturnTime:    m.ret != nil,
	}
}

// Disabled lists the legs whose time could not be parsed.
func (m *TextMatcher) Disabled() []error { return m.disabled }

// Carrier returns the carrier the matcher looks for.
func (m *TextMatcher) Carrier() Carrier { return m.carrier }

// Windows returns the acceptance windows of the legs that have one.
func (m *TextMatcher) Windows() (outbound, ret *timewindow.Window) {
	if m.outbound != nil {
		w := m.outbound.window
		outbound = &w
	}
	if m.ret != nil {
		w := m.ret.window
		ret = &w
	}
	return outbound, ret
}

// Match implements Matcher.
func (m *TextMatcher) Match(text string) types.SignalSet {
	t := Normalize(text)
	var set types.SignalSet

	if m.matchAirline(t) {
		set = set.With(types.SignalAirline)
	}
	flightSignals := []types.Signal{types.SignalFlightNumber1, types.SignalFlightNumber2}
	for i, renderings := range m.flights {
		if i >= len(flightSignals) {
			break
		}
		for _, r := range renderings {
			if containsToken(t, r, "") {
				set = set.With(flightSignals[i])
				break
			}
		}
	}
	if m.outbound != nil && m.outbound.matches(t) {
		set = set.With(types.SignalOutboundTime)
	}
	if m.ret != nil && m.ret.matches(t) {
		set = set.With(types.SignalReturnTime)
	}
	return set
}

func (m *TextMatcher) matchAirline(t string) bool {
	if m.carrier.Code == "" {
		return false
	}
	if m.carrier.Short != "" && strings.Contains(t, m.carrier.Short) {
		return true
	}
	return m.codeRe.MatchString(t)
}

func (tt *timeTarget) matches(t string) bool {
	for _, v := range tt.variants {
		opposite := ""
		if !timewindow.HasMarker(v) {
			opposite = tt.opposite
		}
		if containsToken(t, v, opposite) {
			return true
		}
	}
	return false
}

// Normalize lower-cases text and collapses every run of whitespace,
// including the narrow no-break spaces pages put before AM/PM, into one space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Truncate shortens text to at most max runes for logs and details, marking
// the cut with "...".
func Truncate(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// containsToken reports whether v occurs in t as a whole token: not preceded
// by a digit or colon, not followed by a digit, and, when opposite is set,
// not followed by that am/pm marker.
func containsToken(t, v, opposite string) bool {
	if v == "" {
		return false
	}
	for from := 0; from < len(t); {
		i := strings.Index(t[from:], v)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(v)
		from = start + 1

		if start > 0 {
			if p := t[start-1]; isDigit(p) || p == ':' {
				continue
			}
		}
		if end < len(t) && isDigit(t[end]) {
			continue
		}
		if opposite != "" && followedByMarker(t[end:], opposite) {
			continue
		}
		return true
	}
	return false
}

func followedByMarker(rest, marker string) bool {
	rest = strings.TrimLeft(rest, " ")
	rest = strings.ReplaceAll(rest, ".", "")
	return strings.HasPrefix(rest, marker)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
