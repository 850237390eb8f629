// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package disambiguate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fare-scout/internal/signal"
	"github.com/pdiddy/fare-scout/pkg/types"
)

func twoLeg() types.ItineraryQuery {
	return types.ItineraryQuery{
		Origin:        "SLC",
		Destination:   "DEN",
		OutboundDate:  "2024-08-04",
		ReturnDate:    "2024-08-05",
		OutboundTime:  "1:30 PM",
		ReturnTime:    "6:25 PM",
		FlightNumbers: []string{"DL1623", "DL2663"},
		Airline:       "DL",
	}
}

func singleLeg() types.ItineraryQuery {
	return types.ItineraryQuery{
		Origin:        "SLC",
		Destination:   "DEN",
		OutboundDate:  "2024-08-04",
		OutboundTime:  "1:30 PM",
		FlightNumbers: []string{"DL1623"},
		Airline:       "DL",
	}
}

func selector(q types.ItineraryQuery, policy types.TieBreak) *Selector {
	return NewSelector(signal.Compile(q), q, policy)
}

func rec(amount float64, text string) types.PriceRecord {
	return types.PriceRecord{Amount: amount, SourceText: text, Strategy: "container"}
}

func set(sigs ...types.Signal) types.SignalSet {
	var s types.SignalSet
	for _, sig := range sigs {
		s = s.With(sig)
	}
	return s
}

func TestScore(t *testing.T) {
	two := signal.Shape{FlightNumbers: 2, OutboundTime: true, ReturnTime: true}
	one := signal.Shape{FlightNumbers: 1, OutboundTime: true}

	tests := []struct {
		name  string
		sig   types.SignalSet
		shape signal.Shape
		want  int
	}{
		{"nothing", set(), two, 0},
		{"airline only", set(types.SignalAirline), two, 0},
		{"both flight numbers", set(types.SignalFlightNumber1, types.SignalFlightNumber2), two, 20},
		{"one flight number", set(types.SignalFlightNumber2), two, 8},
		{"both times", set(types.SignalOutboundTime, types.SignalReturnTime), two, 10},
		{"return only on two-leg", set(types.SignalReturnTime), two, 1},
		{"outbound only on two-leg", set(types.SignalOutboundTime), two, 1},
		{"outbound on single-leg", set(types.SignalOutboundTime), one, 5},
		{"everything", set(types.SignalAirline, types.SignalFlightNumber1, types.SignalFlightNumber2,
			types.SignalOutboundTime, types.SignalReturnTime), two, 30},
		{"one number and one time single-leg", set(types.SignalFlightNumber1, types.SignalOutboundTime), one, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.sig, tt.shape))
		})
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score int
		want  types.Tier
	}{
		{0, types.TierNone},
		{1, types.TierAcceptable},
		{4, types.TierAcceptable},
		{5, types.TierGood},
		{9, types.TierGood},
		{10, types.TierExcellent},
		{19, types.TierExcellent},
		{20, types.TierPerfect},
		{30, types.TierPerfect},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.score), "score %d", tt.score)
	}
}

func TestSelectFlightNumbersBeatReturnTime(t *testing.T) {
	tests := []struct {
		name       string
		flights    float64
		returnOnly float64
	}{
		{"flights cheaper", 120, 1900},
		{"flights dearer", 1900, 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := selector(twoLeg(), "").Select([]types.PriceRecord{
				rec(tt.returnOnly, "returns 6:25 PM"),
				rec(tt.flights, "Delta DL 1623 / DL 2663"),
			})
			require.True(t, out.Found)
			assert.Equal(t, tt.flights, out.Winner.Amount)
			assert.Equal(t, 20, out.Winner.Score)
			assert.Equal(t, types.TierPerfect, out.Tier)
		})
	}
}

func TestSelectOutboundUnmatched(t *testing.T) {
	out := selector(twoLeg(), "").Select([]types.PriceRecord{
		rec(240, "Delta returns 6:25 PM"),
		rec(260, "returns at 6:25pm nonstop"),
	})
	assert.False(t, out.Found)
	assert.Equal(t, types.ReasonOutboundUnmatched, out.Reason)
	assert.Equal(t, 1, out.BestScore)
	assert.Equal(t, types.TierAcceptable, out.BestTier)
	assert.Contains(t, out.Detail, "Delta returns 6:25 PM")
}

func TestSelectDeterministic(t *testing.T) {
	records := []types.PriceRecord{
		rec(300, "Delta 1:30 PM"),
		rec(280, "Delta 1:30 PM 6:25 PM"),
		rec(310, "Delta 1:30 PM 6:25 PM"),
		rec(199, "DL 1623 departs 1:30 PM"),
	}
	s := selector(twoLeg(), "")
	first := s.Select(records)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Select(records))
	}
	require.True(t, first.Found)
	assert.Equal(t, 310.0, first.Winner.Amount)
	assert.Equal(t, types.TierExcellent, first.Tier)
}

func TestSelectEndToEndRecord(t *testing.T) {
	out := selector(twoLeg(), "").Select([]types.PriceRecord{
		rec(215, "Delta DL 1623 departs 1:30 PM · DL 2663 departs 6:25 PM · $215"),
	})
	require.True(t, out.Found)
	assert.Equal(t, 215.0, out.Winner.Amount)
	assert.Equal(t, 30, out.Winner.Score)
	assert.Equal(t, types.TierPerfect, out.Tier)
	assert.Equal(t, []string{"airline", "flight_number_1", "flight_number_2", "outbound_time", "return_time"},
		out.Winner.Signals.Names())
}

func TestSelectTieBreak(t *testing.T) {
	records := []types.PriceRecord{
		rec(250, "Delta 1:30 PM"),
		rec(300, "departs 1:30 PM"),
		rec(300, "leaves 1:30 PM"),
	}

	higher := selector(singleLeg(), types.PreferHigher).Select(records)
	require.True(t, higher.Found)
	assert.Equal(t, 300.0, higher.Winner.Amount)
	assert.Equal(t, "departs 1:30 PM", higher.Winner.SourceText, "full tie keeps extraction order")

	lower := selector(singleLeg(), types.PreferLower).Select(records)
	require.True(t, lower.Found)
	assert.Equal(t, 250.0, lower.Winner.Amount)

	assert.Equal(t, higher.Winner, selector(singleLeg(), "").Select(records).Winner)
}

func TestSelectHighestTierWins(t *testing.T) {
	out := selector(singleLeg(), "").Select([]types.PriceRecord{
		rec(900, "Delta 1:30 PM"),
		rec(150, "DL 1623 at 1:30 PM"),
		rec(100, "DL1623"),
	})
	require.True(t, out.Found)
	assert.Equal(t, 150.0, out.Winner.Amount)
	assert.Equal(t, 13, out.Winner.Score)
	assert.Equal(t, types.TierExcellent, out.Tier)
	assert.Len(t, out.Scored, 3)
}

func TestSelectNotFound(t *testing.T) {
	filtered := singleLeg()
	filtered.FilterAirline = true

	tests := []struct {
		name    string
		q       types.ItineraryQuery
		records []types.PriceRecord
		reason  types.NotFoundReason
	}{
		{
			name:   "no candidates",
			q:      singleLeg(),
			reason: types.ReasonNoCandidates,
		},
		{
			name:    "no acceptable tier",
			q:       singleLeg(),
			records: []types.PriceRecord{rec(180, "Delta 7:00 AM"), rec(200, "Delta 9:45 PM")},
			reason:  types.ReasonNoAcceptableTier,
		},
		{
			name:    "airline mismatch",
			q:       filtered,
			records: []types.PriceRecord{rec(180, "United 512 at 1:30 PM")},
			reason:  types.ReasonAirlineMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := selector(tt.q, "").Select(tt.records)
			assert.False(t, out.Found)
			assert.Equal(t, tt.reason, out.Reason)
			assert.NotEmpty(t, out.Detail)
			assert.Equal(t, types.TierNone, out.Tier)
		})
	}
}

func TestSelectAirlineFilterDiscards(t *testing.T) {
	q := singleLeg()
	q.FilterAirline = true

	out := selector(q, "").Select([]types.PriceRecord{
		rec(120, "United 1:30 PM"),
		rec(340, "Delta 1:30 PM"),
	})
	require.True(t, out.Found)
	assert.Equal(t, 340.0, out.Winner.Amount)
}
