// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// Signal is one itinerary-identifying clue found in a candidate's text.
type Signal uint8

const (
	SignalAirline Signal = 1 << iota
	SignalFlightNumber1
	SignalFlightNumber2
	SignalOutboundTime
	SignalReturnTime
)

var signalNames = []struct {
	sig  Signal
	name string
}{
	{SignalAirline, "airline"},
	{SignalFlightNumber1, "flight_number_1"},
	{SignalFlightNumber2, "flight_number_2"},
	{SignalOutboundTime, "outbound_time"},
	{SignalReturnTime, "return_time"},
}

// String returns the signal's name.
func (s Signal) String() string {
	for _, sn := range signalNames {
		if sn.sig == s {
			return sn.name
		}
	}
	return "unknown"
}

// SignalSet is a set of matched signals.
type SignalSet uint8

// Has reports whether s contains sig.
func (s SignalSet) Has(sig Signal) bool { return s&SignalSet(sig) != 0 }

// With returns s with sig added.
func (s SignalSet) With(sig Signal) SignalSet { return s | SignalSet(sig) }

// FlightNumbers returns how many target flight numbers matched (0, 1 or 2).
func (s SignalSet) FlightNumbers() int {
	n := 0
	if s.Has(SignalFlightNumber1) {
		n++
	}
	if s.Has(SignalFlightNumber2) {
		n++
	}
	return n
}

// Itinerary reports whether the set holds any signal that identifies a
// specific itinerary (a flight number or a time). The airline alone does not.
func (s SignalSet) Itinerary() bool {
	return s.FlightNumbers() > 0 || s.Has(SignalOutboundTime) || s.Has(SignalReturnTime)
}

// Names lists the signal names in a fixed order.
func (s SignalSet) Names() []string {
	names := []string{}
	for _, sn := range signalNames {
		if s.Has(sn.sig) {
			names = append(names, sn.name)
		}
	}
	return names
}

// String joins the names with commas.
func (s SignalSet) String() string { return strings.Join(s.Names(), ",") }

// MarshalJSON encodes the set as a list of names.
func (s SignalSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Names()) }

// MarshalYAML encodes the set as a list of names.
func (s SignalSet) MarshalYAML() (interface{}, error) { return s.Names(), nil }

// UnmarshalJSON decodes a list of names.
func (s *SignalSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = ParseSignalSet(strings.Join(names, ","))
	return nil
}

// UnmarshalYAML decodes a list of names.
func (s *SignalSet) UnmarshalYAML(value *yaml.Node) error {
	var names []string
	if err := value.Decode(&names); err != nil {
		return err
	}
	*s = ParseSignalSet(strings.Join(names, ","))
	return nil
}

// ParseSignalSet is the inverse of String.
func ParseSignalSet(s string) SignalSet {
	var set SignalSet
	for _, name := range strings.Split(s, ",") {
		for _, sn := range signalNames {
			if sn.name == strings.TrimSpace(name) {
				set = set.With(sn.sig)
			}
		}
	}
	return set
}

// PriceRecord is a candidate fare recovered from a page, with its provenance.
type PriceRecord struct {
	// Amount is the currency-less fare, always within the plausibility bound.
	Amount float64 `json:"amount" yaml:"amount"`

	// SourceText is the raw text the amount was recovered from.
	SourceText string `json:"source_text" yaml:"source_text"`

	// Strategy names the extraction rule that produced the record.
	Strategy string `json:"strategy" yaml:"strategy"`

	// Signals holds the itinerary signals found in SourceText.
	Signals SignalSet `json:"matched_signals" yaml:"matched_signals"`

	// Score is derived from Signals and the query shape.
	Score int `json:"priority_score" yaml:"priority_score"`
}

// Tier is a named priority bracket.
type Tier string

const (
	TierNone       Tier = "none"
	TierAcceptable Tier = "acceptable"
	TierGood       Tier = "good"
	TierExcellent  Tier = "excellent"
	TierPerfect    Tier = "perfect"
)

// Rank orders tiers; higher is better.
func (t Tier) Rank() int {
	switch t {
	case TierPerfect:
		return 4
	case TierExcellent:
		return 3
	case TierGood:
		return 2
	case TierAcceptable:
		return 1
	default:
		return 0
	}
}

// NotFoundReason explains why no price was reported.
type NotFoundReason string

const (
	ReasonNone              NotFoundReason = ""
	ReasonNoCandidates      NotFoundReason = "no_candidates"
	ReasonNoAcceptableTier  NotFoundReason = "no_acceptable_tier"
	ReasonOutboundUnmatched NotFoundReason = "outbound_unmatched"
	ReasonAirlineMismatch   NotFoundReason = "airline_mismatch"
	ReasonNavigationTimeout NotFoundReason = "navigation_timeout"
	ReasonBelowSiteTier     NotFoundReason = "below_site_tier"
)

// SiteAttempt summarizes what happened on one source site.
type SiteAttempt struct {
	Site       string         `json:"site" yaml:"site"`
	URL        string         `json:"url" yaml:"url"`
	Found      bool           `json:"found" yaml:"found"`
	Reason     NotFoundReason `json:"reason,omitempty" yaml:"reason,omitempty"`
	Strategy   string         `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Candidates int            `json:"candidates" yaml:"candidates"`
	BestScore  int            `json:"best_score" yaml:"best_score"`
	BestTier   Tier           `json:"best_tier" yaml:"best_tier"`
}

// DiscoveryResult is the engine's answer for one query: either a price or
// NotFound with a reason.
type DiscoveryResult struct {
	Query ItineraryQuery `json:"query" yaml:"query"`

	Found  bool         `json:"found" yaml:"found"`
	Amount float64      `json:"amount,omitempty" yaml:"amount,omitempty"`
	Tier   Tier         `json:"tier" yaml:"tier"`
	Site   string       `json:"site,omitempty" yaml:"site,omitempty"`
	Record *PriceRecord `json:"record,omitempty" yaml:"record,omitempty"`

	// Reason and Detail are set when Found is false. Detail names the best
	// tier reached and the nearest candidate to aid tuning.
	Reason NotFoundReason `json:"reason,omitempty" yaml:"reason,omitempty"`
	Detail string         `json:"detail,omitempty" yaml:"detail,omitempty"`

	// VerificationURLs lets a human cross-check the fare by hand.
	VerificationURLs []string `json:"verification_urls" yaml:"verification_urls"`

	Attempts  []SiteAttempt `json:"attempts" yaml:"attempts"`
	CheckedAt time.Time     `json:"checked_at" yaml:"checked_at"`
}
