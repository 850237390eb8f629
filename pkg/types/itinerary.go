// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the fare-scout engine:
// the itinerary query handed in by callers, the price records produced while
// a page is examined, and the discovery result handed back.
package types

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the ISO date layout used for itinerary dates.
const DateLayout = "2006-01-02"

// MaxFlightNumbers is the number of flight numbers an itinerary may name
// (one per leg).
const MaxFlightNumbers = 2

var iataRe = regexp.MustCompile(`^[A-Z]{3}$`)

// ItineraryQuery identifies the itinerary whose fare should be discovered.
// A query is immutable for the duration of one discovery attempt.
type ItineraryQuery struct {
	// ID is an optional caller-assigned key used by the history store.
	// When empty, Key derives one from the itinerary fields.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Origin and Destination are IATA airport codes (e.g. "SLC", "DEN").
	Origin      string `json:"origin" yaml:"origin"`
	Destination string `json:"destination" yaml:"destination"`

	// OutboundDate and ReturnDate are ISO dates. ReturnDate is empty for
	// one-way itineraries.
	OutboundDate string `json:"outbound_date" yaml:"outbound_date"`
	ReturnDate   string `json:"return_date,omitempty" yaml:"return_date,omitempty"`

	// OutboundTime and ReturnTime are optional 12-hour departure times
	// such as "1:30 PM".
	OutboundTime string `json:"outbound_time,omitempty" yaml:"outbound_time,omitempty"`
	ReturnTime   string `json:"return_time,omitempty" yaml:"return_time,omitempty"`

	// FlightNumbers lists up to two flight numbers such as "DL1623".
	FlightNumbers []string `json:"flight_numbers,omitempty" yaml:"flight_numbers,omitempty"`

	// Airline is the carrier code (e.g. "DL"). FilterAirline discards
	// candidates that do not mention the carrier.
	Airline       string `json:"airline,omitempty" yaml:"airline,omitempty"`
	FilterAirline bool   `json:"filter_airline" yaml:"filter_airline"`

	// Cabin names the cabin class to narrow to (e.g. "main").
	Cabin       string `json:"cabin,omitempty" yaml:"cabin,omitempty"`
	FilterCabin bool   `json:"filter_cabin" yaml:"filter_cabin"`
}

// RoundTrip reports whether the query has a return leg.
func (q ItineraryQuery) RoundTrip() bool {
	return q.ReturnDate != ""
}

// Key returns the identifier used to group observations of this itinerary.
func (q ItineraryQuery) Key() string {
	if q.ID != "" {
		return q.ID
	}
	parts := []string{q.Origin, q.Destination, q.OutboundDate}
	if q.ReturnDate != "" {
		parts = append(parts, q.ReturnDate)
	}
	for _, fn := range q.FlightNumbers {
		parts = append(parts, strings.ToUpper(strings.ReplaceAll(fn, " ", "")))
	}
	return strings.Join(parts, "-")
}

// Validate checks the fields the engine relies on.
func (q ItineraryQuery) Validate() error {
	if !iataRe.MatchString(q.Origin) {
		return fmt.Errorf("origin %q is not a three-letter airport code", q.Origin)
	}
	if !iataRe.MatchString(q.Destination) {
		return fmt.Errorf("destination %q is not a three-letter airport code", q.Destination)
	}
	if q.Origin == q.Destination {
		return fmt.Errorf("origin and destination are both %s", q.Origin)
	}
	out, err := time.Parse(DateLayout, q.OutboundDate)
	if err != nil {
		return fmt.Errorf("invalid outbound_date %q: %w", q.OutboundDate, err)
	}
	if q.ReturnDate != "" {
		ret, err := time.Parse(DateLayout, q.ReturnDate)
		if err != nil {
			return fmt.Errorf("invalid return_date %q: %w", q.ReturnDate, err)
		}
		if ret.Before(out) {
			return fmt.Errorf("return_date %s is before outbound_date %s", q.ReturnDate, q.OutboundDate)
		}
	}
	if q.ReturnTime != "" && q.ReturnDate == "" {
		return fmt.Errorf("return_time given without return_date")
	}
	if len(q.FlightNumbers) > MaxFlightNumbers {
		return fmt.Errorf("at most %d flight numbers allowed, got %d", MaxFlightNumbers, len(q.FlightNumbers))
	}
	for _, fn := range q.FlightNumbers {
		if strings.TrimSpace(fn) == "" {
			return fmt.Errorf("empty flight number")
		}
	}
	if q.FilterAirline && q.Airline == "" {
		return fmt.Errorf("filter_airline requires an airline code")
	}
	return nil
}

// Normalize returns a copy with codes upper-cased and whitespace trimmed.
func (q ItineraryQuery) Normalize() ItineraryQuery {
	q.Origin = strings.ToUpper(strings.TrimSpace(q.Origin))
	q.Destination = strings.ToUpper(strings.TrimSpace(q.Destination))
	q.OutboundDate = strings.TrimSpace(q.OutboundDate)
	q.ReturnDate = strings.TrimSpace(q.ReturnDate)
	q.OutboundTime = strings.TrimSpace(q.OutboundTime)
	q.ReturnTime = strings.TrimSpace(q.ReturnTime)
	q.Airline = strings.ToUpper(strings.TrimSpace(q.Airline))
	q.Cabin = strings.ToLower(strings.TrimSpace(q.Cabin))
	if len(q.FlightNumbers) > 0 {
		fns := make([]string, 0, len(q.FlightNumbers))
		for _, fn := range q.FlightNumbers {
			fns = append(fns, strings.ToUpper(strings.TrimSpace(fn)))
		}
		q.FlightNumbers = fns
	}
	return q
}
