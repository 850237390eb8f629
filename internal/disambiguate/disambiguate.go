// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package disambiguate scores extracted fare candidates against the
// requested itinerary and selects at most one of them.
//
// Scoring is a pure function of the matched signals and the query shape:
//
//	flight numbers  +20 both, +8 exactly one
//	times           +10 both, +5 one on a single-leg query,
//	                +1 one on a two-leg query with the other leg unmatched
//
// Tiers bracket the score (perfect >= 20, excellent >= 10, good >= 5,
// acceptable >= 1) and the highest non-empty tier wins.
package disambiguate

import (
	"fmt"
	"sort"

	"github.com/pdiddy/fare-scout/internal/signal"
	"github.com/pdiddy/fare-scout/pkg/types"
)

// Score weights.
const (
	bothFlightNumbers = 20
	oneFlightNumber   = 8
	bothTimes         = 10
	singleLegTime     = 5
	partialTwoLegTime = 1
)

// Score returns the priority score of sig for a query of the given shape.
func Score(sig types.SignalSet, shape signal.Shape) int {
	score := 0
	switch sig.FlightNumbers() {
	case 2:
		score += bothFlightNumbers
	case 1:
		score += oneFlightNumber
	}

	out := sig.Has(types.SignalOutboundTime)
	ret := sig.Has(types.SignalReturnTime)
	switch {
	case out && ret:
		score += bothTimes
	case out || ret:
		if shape.TwoLeg() {
			score += partialTwoLegTime
		} else {
			score += singleLegTime
		}
	}
	return score
}

// TierFor maps a score to its tier.
func TierFor(score int) types.Tier {
	switch {
	case score >= 20:
		return types.TierPerfect
	case score >= 10:
		return types.TierExcellent
	case score >= 5:
		return types.TierGood
	case score >= 1:
		return types.TierAcceptable
	default:
		return types.TierNone
	}
}

// Outcome is the result of one selection.
type Outcome struct {
	Found  bool
	Winner types.PriceRecord
	Tier   types.Tier

	// Reason and Detail explain a NotFound outcome.
	Reason types.NotFoundReason
	Detail string

	// Scored holds every candidate with signals and score filled in, in
	// extraction order, including discarded ones.
	Scored []types.PriceRecord

	BestScore int
	BestTier  types.Tier
}

// Selector picks the winning candidate for one query.
type Selector struct {
	matcher       signal.Matcher
	filterAirline bool
	policy        types.TieBreak
}

// NewSelector returns a Selector for q. An empty policy means PreferHigher.
func NewSelector(m signal.Matcher, q types.ItineraryQuery, policy types.TieBreak) *Selector {
	if policy == "" {
		policy = types.PreferHigher
	}
	return &Selector{
		matcher:       m,
		filterAirline: q.FilterAirline && q.Airline != "",
		policy:        policy,
	}
}

// Select scores records and returns the winner or a NotFound outcome.
// The same records always produce the same outcome.
func (s *Selector) Select(records []types.PriceRecord) Outcome {
	out := Outcome{Tier: types.TierNone, BestTier: types.TierNone}
	if len(records) == 0 {
		out.Reason = types.ReasonNoCandidates
		out.Detail = "no priced candidates extracted"
		return out
	}

	shape := s.matcher.Shape()
	out.Scored = make([]types.PriceRecord, len(records))
	for i, r := range records {
		r.Signals = s.matcher.Match(r.SourceText)
		r.Score = Score(r.Signals, shape)
		out.Scored[i] = r
	}

	pool := out.Scored
	if s.filterAirline {
		pool = filter(pool, func(r types.PriceRecord) bool { return r.Signals.Has(types.SignalAirline) })
		if len(pool) == 0 {
			out.Reason = types.ReasonAirlineMismatch
			out.Detail = fmt.Sprintf("none of %d candidates names the requested airline", len(records))
			return out
		}
	}

	nearest := best(pool)
	out.BestScore = nearest.Score
	out.BestTier = TierFor(nearest.Score)

	if shape.TwoLeg() {
		pool = filter(pool, func(r types.PriceRecord) bool {
			return r.Signals.Has(types.SignalOutboundTime) || r.Signals.FlightNumbers() == 2
		})
		if len(pool) == 0 {
			out.Reason = types.ReasonOutboundUnmatched
			out.Detail = fmt.Sprintf("no candidate matches the outbound time; best tier %s (score %d), nearest %q",
				out.BestTier, out.BestScore, signal.Truncate(nearest.SourceText, 120))
			return out
		}
	}

	top := best(pool)
	tier := TierFor(top.Score)
	if tier == types.TierNone {
		out.Reason = types.ReasonNoAcceptableTier
		out.Detail = fmt.Sprintf("best tier %s (score %d), nearest %q",
			out.BestTier, out.BestScore, signal.Truncate(nearest.SourceText, 120))
		return out
	}

	winners := filter(pool, func(r types.PriceRecord) bool { return TierFor(r.Score) == tier })
	s.order(winners)

	out.Found = true
	out.Winner = winners[0]
	out.Tier = tier
	return out
}

// order sorts candidates by score, then by amount under the tie-break
// policy. The sort is stable so a full tie keeps extraction order.
func (s *Selector) order(records []types.PriceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if s.policy == types.PreferLower {
			return a.Amount < b.Amount
		}
		return a.Amount > b.Amount
	})
}

// best returns the first highest-scoring record.
func best(records []types.PriceRecord) types.PriceRecord {
	var top types.PriceRecord
	for i, r := range records {
		if i == 0 || r.Score > top.Score {
			top = r
		}
	}
	return top
}

func filter(records []types.PriceRecord, keep func(types.PriceRecord) bool) []types.PriceRecord {
	var out []types.PriceRecord
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
