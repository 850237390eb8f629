// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fare-scout/internal/browser"
	"github.com/pdiddy/fare-scout/pkg/types"
)

const (
	carrierBase       = "https://carrier.test/search"
	aggregatorTestURL = "https://aggregator.test/flights"
)

// fakeSession serves canned pages by URL prefix. After ApplyFilters with a
// time window it serves refined instead.
type fakeSession struct {
	pages   map[string]string
	errs    map[string]error
	refined string

	current  string
	visited  []string
	filters  []browser.Filters
	expanded int
	closed   int
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.visited = append(s.visited, url)
	for prefix, err := range s.errs {
		if strings.HasPrefix(url, prefix) {
			return err
		}
	}
	for prefix, page := range s.pages {
		if strings.HasPrefix(url, prefix) {
			s.current = page
			return nil
		}
	}
	return fmt.Errorf("%w: no page for %s", browser.ErrNavigationTimeout, url)
}

func (s *fakeSession) ExpandResults(context.Context) { s.expanded++ }

func (s *fakeSession) ApplyFilters(_ context.Context, f browser.Filters) {
	s.filters = append(s.filters, f)
	if (f.Outbound != nil || f.Return != nil) && s.refined != "" {
		s.current = s.refined
	}
}

func (s *fakeSession) Snapshot(context.Context) (string, error) { return s.current, nil }

func (s *fakeSession) Runtime() types.Runtime { return types.RuntimeStatic }

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

func launcherFor(s *fakeSession) browser.Launcher {
	return browser.LauncherFunc(func(context.Context) (browser.Session, error) { return s, nil })
}

func testConfig() types.DiscoveryConfig {
	return types.DiscoveryConfig{
		TieBreak:      types.PreferHigher,
		CarrierSites:  map[string]string{"DL": carrierBase},
		AggregatorURL: aggregatorTestURL,
	}
}

func fullQuery() types.ItineraryQuery {
	return types.ItineraryQuery{
		Origin:        "SLC",
		Destination:   "DEN",
		OutboundDate:  "2024-08-04",
		ReturnDate:    "2024-08-05",
		OutboundTime:  "1:30 PM",
		ReturnTime:    "6:25 PM",
		FlightNumbers: []string{"DL1623", "DL2663"},
		Airline:       "DL",
		FilterAirline: true,
	}
}

func page(items ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, it := range items {
		b.WriteString(`<li role="listitem">` + it + `</li>`)
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

const perfectItem = `<span>Delta</span><span>DL 1623</span><span>1:30 PM</span>` +
	`<span>DL 2663</span><span>6:25 PM</span><span>$215</span>`

func TestDiscoverCarrierShortCircuit(t *testing.T) {
	sess := &fakeSession{pages: map[string]string{
		carrierBase:       page(perfectItem, `<span>United</span><span>7:00 AM</span><span>$189</span>`),
		aggregatorTestURL: page(`<span>Delta DL 1623 DL 2663</span><span>$999</span>`),
	}}

	res, err := New(launcherFor(sess), testConfig(), nil).Discover(context.Background(), fullQuery())
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, 215.0, res.Amount)
	assert.Equal(t, types.TierPerfect, res.Tier)
	assert.Equal(t, SiteCarrier, res.Site)
	require.NotNil(t, res.Record)
	assert.Equal(t, 30, res.Record.Score)
	assert.Equal(t, []string{"airline", "flight_number_1", "flight_number_2", "outbound_time", "return_time"},
		res.Record.Signals.Names())

	require.Len(t, res.Attempts, 1, "aggregator is skipped after a perfect carrier match")
	assert.True(t, res.Attempts[0].Found)
	assert.Len(t, sess.visited, 1)
	assert.Equal(t, 1, sess.closed)
	assert.Len(t, res.VerificationURLs, 2)
}

func TestDiscoverFallsBackToAggregator(t *testing.T) {
	sess := &fakeSession{
		errs:  map[string]error{carrierBase: fmt.Errorf("%w: blocked", browser.ErrNavigationTimeout)},
		pages: map[string]string{aggregatorTestURL: page(`<span>Delta DL 1623 and DL 2663</span><span>$240</span>`)},
	}

	res, err := New(launcherFor(sess), testConfig(), nil).Discover(context.Background(), fullQuery())
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, 240.0, res.Amount)
	assert.Equal(t, SiteAggregator, res.Site)
	assert.Equal(t, types.TierPerfect, res.Tier)

	require.Len(t, res.Attempts, 2)
	assert.Equal(t, types.ReasonNavigationTimeout, res.Attempts[0].Reason)
	assert.True(t, res.Attempts[1].Found)
	assert.Equal(t, 1, res.Attempts[1].Candidates)

	require.NotEmpty(t, sess.filters)
	assert.Equal(t, "DL", sess.filters[0].Airline)
	assert.Equal(t, "Delta", sess.filters[0].AirlineName)
	assert.Nil(t, sess.filters[0].Outbound, "first pass holds back time windows")
	assert.Equal(t, 1, sess.closed)
}

func TestDiscoverIgnoresResultsWrapper(t *testing.T) {
	results := `<html><body><div data-testid="search-results">` +
		`<div>United UA 500 7:00 AM $389</div>` +
		`<div data-testid="flight-card">Delta DL 1623 1:30 PM DL 2663 6:25 PM $215</div>` +
		`</div></body></html>`
	sess := &fakeSession{
		errs:  map[string]error{carrierBase: fmt.Errorf("%w: blocked", browser.ErrNavigationTimeout)},
		pages: map[string]string{aggregatorTestURL: results},
	}

	res, err := New(launcherFor(sess), testConfig(), nil).Discover(context.Background(), fullQuery())
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, 215.0, res.Amount)
	assert.Equal(t, types.TierPerfect, res.Tier)
	require.NotNil(t, res.Record)
	assert.NotContains(t, res.Record.SourceText, "United")
}

func TestDiscoverOutboundUnmatched(t *testing.T) {
	q := fullQuery()
	q.FlightNumbers = nil
	q.FilterAirline = false
	sess := &fakeSession{pages: map[string]string{
		aggregatorTestURL: page(`<span>Delta</span><span>6:25 PM</span><span>$199</span>`),
	}}
	cfg := testConfig()
	cfg.RefineWithTimes = false

	res, err := New(launcherFor(sess), cfg, nil).Discover(context.Background(), q)
	require.NoError(t, err, "NotFound is a typed outcome")

	assert.False(t, res.Found)
	assert.Zero(t, res.Amount)
	assert.Nil(t, res.Record)
	assert.Equal(t, types.TierNone, res.Tier)
	assert.Equal(t, types.ReasonOutboundUnmatched, res.Reason)
	assert.Contains(t, res.Detail, "outbound")
	require.Len(t, res.Attempts, 1, "carrier site needs flight numbers")
	assert.Equal(t, types.SiteAttempt{
		Site:       SiteAggregator,
		URL:        sess.visited[0],
		Reason:     types.ReasonOutboundUnmatched,
		Strategy:   "container",
		Candidates: 1,
		BestScore:  1,
		BestTier:   types.TierAcceptable,
	}, res.Attempts[0])
}

func TestDiscoverRefinePass(t *testing.T) {
	q := fullQuery()
	q.FlightNumbers = nil
	q.FilterAirline = false
	sess := &fakeSession{
		pages:   map[string]string{aggregatorTestURL: page(`<span>Delta</span><span>1:30 PM</span><span>$300</span>`)},
		refined: page(`<span>Delta</span><span>1:30 PM</span><span>6:25 PM</span><span>$280</span>`),
	}
	cfg := testConfig()
	cfg.RefineWithTimes = true

	res, err := New(launcherFor(sess), cfg, nil).Discover(context.Background(), q)
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, 280.0, res.Amount)
	assert.Equal(t, types.TierExcellent, res.Tier)

	require.Len(t, sess.filters, 1)
	assert.NotNil(t, sess.filters[0].Outbound)
	assert.NotNil(t, sess.filters[0].Return)
	assert.Empty(t, sess.filters[0].Airline)
	assert.Equal(t, 2, sess.expanded)
}

func TestDiscoverRefineKeepsBetterFirstPass(t *testing.T) {
	q := fullQuery()
	q.FlightNumbers = nil
	q.FilterAirline = false
	sess := &fakeSession{
		pages:   map[string]string{aggregatorTestURL: page(`<span>Delta</span><span>1:30 PM</span><span>$300</span>`)},
		refined: page(`<p>No matching flights</p>`),
	}
	cfg := testConfig()
	cfg.RefineWithTimes = true

	res, err := New(launcherFor(sess), cfg, nil).Discover(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, 300.0, res.Amount)
	assert.Equal(t, types.TierAcceptable, res.Tier)
}

func TestDiscoverCarrierBelowSiteTier(t *testing.T) {
	q := fullQuery()
	q.OutboundTime, q.ReturnTime = "", ""
	sess := &fakeSession{pages: map[string]string{
		carrierBase:       page(`<span>DL 1623</span><span>$199</span>`),
		aggregatorTestURL: `<html><body><p>No results</p></body></html>`,
	}}

	res, err := New(launcherFor(sess), testConfig(), nil).Discover(context.Background(), q)
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, 199.0, res.Amount)
	assert.Equal(t, types.TierGood, res.Tier)
	assert.Equal(t, SiteCarrier, res.Site)

	require.Len(t, res.Attempts, 2)
	assert.Equal(t, types.ReasonBelowSiteTier, res.Attempts[0].Reason)
	assert.Equal(t, types.ReasonNoCandidates, res.Attempts[1].Reason)
}

func TestDiscoverSitesUnreachable(t *testing.T) {
	timeout := fmt.Errorf("%w: deadline", browser.ErrNavigationTimeout)
	sess := &fakeSession{errs: map[string]error{carrierBase: timeout, aggregatorTestURL: timeout}}

	res, err := New(launcherFor(sess), testConfig(), nil).Discover(context.Background(), fullQuery())
	require.ErrorIs(t, err, ErrSitesUnreachable)

	assert.False(t, res.Found)
	assert.Equal(t, types.ReasonNavigationTimeout, res.Reason)
	require.Len(t, res.Attempts, 2)
	for _, a := range res.Attempts {
		assert.Equal(t, types.ReasonNavigationTimeout, a.Reason)
	}
	assert.Equal(t, 1, sess.closed)
}

func TestDiscoverSessionLaunch(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"wrapped", fmt.Errorf("%w: no chrome", browser.ErrSessionLaunch)},
		{"bare", errors.New("exec failed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := browser.LauncherFunc(func(context.Context) (browser.Session, error) { return nil, tt.err })
			res, err := New(l, testConfig(), nil).Discover(context.Background(), fullQuery())
			require.ErrorIs(t, err, browser.ErrSessionLaunch)
			assert.False(t, res.Found)
			assert.Len(t, res.VerificationURLs, 2)
		})
	}
}

func TestDiscoverInvalidQuery(t *testing.T) {
	opened := false
	l := browser.LauncherFunc(func(context.Context) (browser.Session, error) {
		opened = true
		return &fakeSession{}, nil
	})

	_, err := New(l, testConfig(), nil).Discover(context.Background(), types.ItineraryQuery{Origin: "SLC"})
	require.ErrorIs(t, err, ErrInvalidQuery)
	assert.False(t, opened)
}

func TestDiscoverCanceled(t *testing.T) {
	q := fullQuery()
	q.FlightNumbers = nil
	sess := &fakeSession{pages: map[string]string{aggregatorTestURL: page(perfectItem)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(launcherFor(sess), testConfig(), nil).Discover(ctx, q)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sess.visited)
	assert.Equal(t, 1, sess.closed)
}

func TestDiscoverStaticEndToEnd(t *testing.T) {
	var carrierQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/delta", func(w http.ResponseWriter, r *http.Request) {
		carrierQuery = r.URL.RawQuery
		fmt.Fprint(w, page(perfectItem))
	})
	mux.HandleFunc("/blocked", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/travel/flights", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page(`<span>Delta DL 1623 · DL 2663</span><span>$231</span>`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	launcher := browser.LauncherFunc(func(context.Context) (browser.Session, error) {
		return browser.NewStaticSession(types.SessionConfig{NavigationTimeout: 5 * time.Second}, ts.Client(), nil), nil
	})

	tests := []struct {
		name    string
		carrier string
		site    string
		amount  float64
		tier    types.Tier
	}{
		{"carrier perfect", "/delta", SiteCarrier, 215, types.TierPerfect},
		{"carrier blocked", "/blocked", SiteAggregator, 231, types.TierPerfect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.DiscoveryConfig{
				CarrierSites:  map[string]string{"DL": ts.URL + tt.carrier},
				AggregatorURL: ts.URL + "/travel/flights",
			}
			res, err := New(launcher, cfg, nil).Discover(context.Background(), fullQuery())
			require.NoError(t, err)
			assert.True(t, res.Found)
			assert.Equal(t, tt.site, res.Site)
			assert.Equal(t, tt.amount, res.Amount)
			assert.Equal(t, tt.tier, res.Tier)
		})
	}
	assert.Contains(t, carrierQuery, "origin=SLC")
	assert.Contains(t, carrierQuery, "tripType=roundTrip")
}
