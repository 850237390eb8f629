// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover runs one price-discovery attempt for an itinerary. It
// tries the carrier's own site when flight numbers make that worthwhile,
// falls back to the aggregator, and reports either a single fare with its
// provenance or a typed NotFound.
//
//	INIT -> TRY_CARRIER -> TRY_AGGREGATOR -> SELECT -> DONE
package discover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/fare-scout/internal/browser"
	"github.com/pdiddy/fare-scout/internal/candidate"
	"github.com/pdiddy/fare-scout/internal/disambiguate"
	"github.com/pdiddy/fare-scout/internal/signal"
	"github.com/pdiddy/fare-scout/pkg/types"
)

var (
	// ErrInvalidQuery means the itinerary query failed validation.
	ErrInvalidQuery = errors.New("invalid itinerary query")

	// ErrSitesUnreachable means every attempted site failed to load.
	ErrSitesUnreachable = errors.New("all sites unreachable")
)

// Site names used in results and attempts.
const (
	SiteCarrier    = "carrier"
	SiteAggregator = "aggregator"
)

// Engine is the price-discovery orchestrator. It holds no per-query state,
// so one Engine serves many sequential calls.
type Engine struct {
	launcher browser.Launcher
	cfg      types.DiscoveryConfig
	logger   *log.Logger
	now      func() time.Time
}

// New returns an Engine that opens one session per Discover call through
// launcher. A nil logger discards output.
func New(launcher browser.Launcher, cfg types.DiscoveryConfig, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.TieBreak == "" {
		cfg.TieBreak = types.PreferHigher
	}
	if cfg.AggregatorURL == "" {
		cfg.AggregatorURL = DefaultAggregatorURL
	}
	if cfg.CarrierSites == nil {
		cfg.CarrierSites = DefaultCarrierSites()
	}
	return &Engine{launcher: launcher, cfg: cfg, logger: logger.WithPrefix("discover"), now: time.Now}
}

// DefaultConfig returns the discovery defaults.
func DefaultConfig() types.DiscoveryConfig {
	return types.DiscoveryConfig{
		TieBreak:        types.PreferHigher,
		CarrierSites:    DefaultCarrierSites(),
		AggregatorURL:   DefaultAggregatorURL,
		RefineWithTimes: true,
	}
}

// siteOutcome is what one site produced.
type siteOutcome struct {
	site     string
	url      string
	navErr   error
	strategy string
	records  int
	outcome  disambiguate.Outcome
}

func (o siteOutcome) reachable() bool { return o.navErr == nil }

func (o siteOutcome) attempt() types.SiteAttempt {
	a := types.SiteAttempt{
		Site:       o.site,
		URL:        o.url,
		Found:      o.outcome.Found,
		Reason:     o.outcome.Reason,
		Strategy:   o.strategy,
		Candidates: o.records,
		BestScore:  o.outcome.BestScore,
		BestTier:   o.outcome.BestTier,
	}
	if a.BestTier == "" {
		a.BestTier = types.TierNone
	}
	if o.navErr != nil {
		a.Reason = types.ReasonNavigationTimeout
	}
	return a
}

// run carries the per-call collaborators through the state machine.
type run struct {
	sess     browser.Session
	matcher  *signal.TextMatcher
	pipeline *candidate.Pipeline
	selector *disambiguate.Selector
	logger   *log.Logger
}

// Discover prices q. NotFound is reported in the result, not as an error.
// The error is non-nil only when the query is invalid, the session cannot
// be launched, every site fails to load, or ctx ends.
func (e *Engine) Discover(ctx context.Context, q types.ItineraryQuery) (types.DiscoveryResult, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return types.DiscoveryResult{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	res := types.DiscoveryResult{
		Query:            q,
		Tier:             types.TierNone,
		VerificationURLs: VerificationURLs(q, e.cfg),
		CheckedAt:        e.now().UTC(),
	}

	// INIT
	m := signal.Compile(q)
	for _, err := range m.Disabled() {
		e.logger.Warn("time leg disabled", "itinerary", q.Key(), "err", err)
	}
	shape := m.Shape()
	e.logger.Info("discovering fare", "itinerary", q.Key(), "flight_numbers", shape.FlightNumbers,
		"outbound_time", shape.OutboundTime, "return_time", shape.ReturnTime, "matcher", m.Version())

	sess, err := e.launcher.Open(ctx)
	if err != nil {
		if !errors.Is(err, browser.ErrSessionLaunch) {
			err = fmt.Errorf("%w: %v", browser.ErrSessionLaunch, err)
		}
		return res, err
	}
	defer sess.Close()

	r := &run{
		sess:     sess,
		matcher:  m,
		pipeline: candidate.NewPipeline(m, e.logger),
		selector: disambiguate.NewSelector(m, q, e.cfg.TieBreak),
		logger:   e.logger.With("itinerary", q.Key(), "runtime", sess.Runtime()),
	}

	var outcomes []siteOutcome

	// TRY_CARRIER
	if site, ok := carrierSite(e.cfg, m.Carrier()); ok && shape.FlightNumbers > 0 {
		o := r.visit(ctx, SiteCarrier, CarrierURL(site, q), browser.Filters{})
		outcomes = append(outcomes, o)
		if o.outcome.Found && o.outcome.Tier.Rank() >= types.TierExcellent.Rank() {
			r.logger.Info("carrier match short-circuits", "tier", o.outcome.Tier, "amount", o.outcome.Winner.Amount)
			return e.done(res, outcomes, 0), nil
		}
		if o.outcome.Found {
			r.logger.Info("carrier match below site tier", "tier", o.outcome.Tier)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// TRY_AGGREGATOR
	filters := e.filters(q, m)
	agg := r.visit(ctx, SiteAggregator, AggregatorURL(e.cfg.AggregatorURL, q, DisplayName(m.Carrier())), filters)
	if agg.reachable() && e.cfg.RefineWithTimes && agg.outcome.Tier.Rank() < types.TierExcellent.Rank() {
		outbound, ret := m.Windows()
		if outbound != nil || ret != nil {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			refined := r.refine(ctx, agg, browser.Filters{Outbound: outbound, Return: ret})
			if better(refined.outcome, agg.outcome) {
				agg = refined
			}
		}
	}
	outcomes = append(outcomes, agg)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// SELECT
	unreachable := 0
	for _, o := range outcomes {
		if !o.reachable() {
			unreachable++
		}
	}
	if unreachable == len(outcomes) {
		res = e.done(res, outcomes, -1)
		res.Reason = types.ReasonNavigationTimeout
		res.Detail = fmt.Sprintf("%d site(s) failed to load", unreachable)
		return res, ErrSitesUnreachable
	}

	pick := len(outcomes) - 1
	for i, o := range outcomes[:len(outcomes)-1] {
		if better(o.outcome, outcomes[pick].outcome) {
			pick = i
		}
	}
	if !outcomes[pick].outcome.Found && !outcomes[pick].reachable() {
		pick = 0
	}
	return e.done(res, outcomes, pick), nil
}

// done fills res from the chosen outcome; a negative pick leaves it NotFound.
func (e *Engine) done(res types.DiscoveryResult, outcomes []siteOutcome, pick int) types.DiscoveryResult {
	for _, o := range outcomes {
		a := o.attempt()
		if o.site == SiteCarrier && o.outcome.Found && o.outcome.Tier.Rank() < types.TierExcellent.Rank() {
			a.Reason = types.ReasonBelowSiteTier
		}
		res.Attempts = append(res.Attempts, a)
	}
	if pick < 0 {
		return res
	}

	o := outcomes[pick]
	if !o.outcome.Found {
		res.Reason = o.outcome.Reason
		res.Detail = o.outcome.Detail
		if res.Reason == types.ReasonNone {
			res.Reason = types.ReasonNoCandidates
		}
		e.logger.Info("no fare selected", "itinerary", res.Query.Key(), "reason", res.Reason,
			"best_tier", o.outcome.BestTier, "best_score", o.outcome.BestScore)
		return res
	}

	winner := o.outcome.Winner
	res.Found = true
	res.Amount = winner.Amount
	res.Tier = o.outcome.Tier
	res.Site = o.site
	res.Record = &winner
	e.logger.Info("fare selected", "itinerary", res.Query.Key(), "site", o.site, "amount", winner.Amount,
		"tier", res.Tier, "score", winner.Score, "signals", winner.Signals.String())
	return res
}

// filters builds the first-pass aggregator filters. Time windows are held
// back for the refine pass.
func (e *Engine) filters(q types.ItineraryQuery, m *signal.TextMatcher) browser.Filters {
	var f browser.Filters
	if q.FilterAirline && q.Airline != "" {
		f.Airline = q.Airline
		f.AirlineName = DisplayName(m.Carrier())
	}
	if q.FilterCabin && q.Cabin != "" {
		f.Cabin = q.Cabin
	}
	return f
}

// visit navigates to url, applies f, expands the results and scans them.
func (r *run) visit(ctx context.Context, site, url string, f browser.Filters) siteOutcome {
	o := siteOutcome{site: site, url: url}
	logger := r.logger.With("site", site)

	logger.Debug("navigating", "url", url)
	if err := r.sess.Navigate(ctx, url); err != nil {
		logger.Warn("site unreachable", "err", err)
		o.navErr = err
		o.outcome = disambiguate.Outcome{Tier: types.TierNone, BestTier: types.TierNone, Reason: types.ReasonNavigationTimeout}
		return o
	}
	if !f.Empty() {
		r.sess.ApplyFilters(ctx, f)
	}
	r.sess.ExpandResults(ctx)
	return r.scan(ctx, o, logger)
}

// refine re-applies the time window filters on the current page and scans
// again.
func (r *run) refine(ctx context.Context, prev siteOutcome, f browser.Filters) siteOutcome {
	logger := r.logger.With("site", prev.site, "pass", "refine")
	logger.Debug("re-applying filters with time windows")
	r.sess.ApplyFilters(ctx, f)
	r.sess.ExpandResults(ctx)
	return r.scan(ctx, siteOutcome{site: prev.site, url: prev.url}, logger)
}

func (r *run) scan(ctx context.Context, o siteOutcome, logger *log.Logger) siteOutcome {
	none := disambiguate.Outcome{Tier: types.TierNone, BestTier: types.TierNone, Reason: types.ReasonNoCandidates}

	page, err := r.sess.Snapshot(ctx)
	if err != nil {
		logger.Debug("snapshot failed", "err", err)
		o.outcome = none
		return o
	}
	ext, err := r.pipeline.Extract(page)
	if err != nil {
		logger.Debug("extraction failed", "err", err)
		o.outcome = none
		return o
	}

	o.strategy = ext.Strategy
	o.records = len(ext.Records)
	o.outcome = r.selector.Select(ext.Records)
	logger.Info("site scanned", "phase", ext.Phase, "strategy", ext.Strategy, "candidates", len(ext.Records),
		"found", o.outcome.Found, "tier", o.outcome.Tier, "best_score", o.outcome.BestScore, "best_tier", o.outcome.BestTier)
	return o
}

// better reports whether a beats b: a found outcome beats a NotFound one,
// then the higher tier wins. Ties keep b.
func better(a, b disambiguate.Outcome) bool {
	if a.Found != b.Found {
		return a.Found
	}
	if a.Found {
		return a.Tier.Rank() > b.Tier.Rank()
	}
	return a.BestScore > b.BestScore
}
