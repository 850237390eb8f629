// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch prices a list of itineraries repeatedly. Calls to the
// discovery engine are serialized and spaced by an inter-call delay, and an
// itinerary observed within its recheck interval is skipped.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/pdiddy/fare-scout/internal/history"
	"github.com/pdiddy/fare-scout/internal/itinerary"
	"github.com/pdiddy/fare-scout/pkg/types"
)

const (
	defaultInterCallDelay  = 2 * time.Second
	defaultRecheckInterval = 6 * time.Hour
)

// Discoverer prices one itinerary.
type Discoverer interface {
	Discover(ctx context.Context, q types.ItineraryQuery) (types.DiscoveryResult, error)
}

// Recorder stores outcomes and reports when an itinerary is due again.
type Recorder interface {
	Record(ctx context.Context, res types.DiscoveryResult) (history.Observation, history.Change, error)
	DueForRecheck(ctx context.Context, key string, interval time.Duration, now time.Time) (bool, error)
}

// Source returns the itineraries to price. It is called once per cycle so
// edits to an itinerary file are picked up without a restart.
type Source func() ([]itinerary.Entry, error)

// FileSource loads the active entries of the itinerary file at path.
func FileSource(path string) Source {
	return func() ([]itinerary.Entry, error) {
		f, err := itinerary.Load(path)
		if err != nil {
			return nil, err
		}
		return f.Active(), nil
	}
}

// Outcome is what happened to one itinerary in a cycle.
type Outcome struct {
	Key     string
	Skipped bool
	Result  types.DiscoveryResult
	Change  history.Change
	Err     error
}

// Report summarizes one cycle.
type Report struct {
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome
}

// Counts returns how many itineraries were priced, not found, skipped and
// failed.
func (r Report) Counts() (priced, notFound, skipped, failed int) {
	for _, o := range r.Outcomes {
		switch {
		case o.Skipped:
			skipped++
		case o.Err != nil:
			failed++
		case o.Result.Found:
			priced++
		default:
			notFound++
		}
	}
	return priced, notFound, skipped, failed
}

// Runner runs watch cycles.
type Runner struct {
	discoverer Discoverer
	recorder   Recorder
	source     Source
	recheck    time.Duration
	limiter    *rate.Limiter
	logger     *log.Logger
	now        func() time.Time

	// OnOutcome, when set, is called after each itinerary is handled.
	OnOutcome func(Outcome)

	mu sync.Mutex
}

// New returns a Runner. A nil recorder disables history and recheck
// skipping.
func New(d Discoverer, rec Recorder, src Source, cfg types.WatchConfig, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	delay := cfg.InterCallDelay
	if delay <= 0 {
		delay = defaultInterCallDelay
	}
	recheck := cfg.RecheckInterval
	if recheck < 0 {
		recheck = 0
	} else if recheck == 0 {
		recheck = defaultRecheckInterval
	}
	return &Runner{
		discoverer: d,
		recorder:   rec,
		source:     src,
		recheck:    recheck,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		logger:     logger.WithPrefix("watch"),
		now:        time.Now,
	}
}

// RunOnce prices every due itinerary once. Per-itinerary failures are
// reported in the Report; the error is non-nil only when the source cannot
// be read or ctx ends.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := Report{Started: r.now()}
	entries, err := r.source()
	if err != nil {
		return rep, fmt.Errorf("loading itineraries: %w", err)
	}
	r.logger.Info("watch cycle started", "itineraries", len(entries))

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		o := r.handle(ctx, e)
		if errors.Is(o.Err, context.Canceled) || errors.Is(o.Err, context.DeadlineExceeded) {
			return rep, o.Err
		}
		rep.Outcomes = append(rep.Outcomes, o)
		if r.OnOutcome != nil {
			r.OnOutcome(o)
		}
	}

	rep.Finished = r.now()
	priced, notFound, skipped, failed := rep.Counts()
	r.logger.Info("watch cycle finished", "priced", priced, "not_found", notFound,
		"skipped", skipped, "failed", failed, "took", rep.Finished.Sub(rep.Started))
	return rep, nil
}

func (r *Runner) handle(ctx context.Context, e itinerary.Entry) Outcome {
	key := e.Key()
	o := Outcome{Key: key}
	logger := r.logger.With("itinerary", key)

	if r.recorder != nil {
		due, err := r.recorder.DueForRecheck(ctx, key, e.RecheckInterval(r.recheck), r.now())
		if err != nil {
			logger.Warn("checking recheck interval", "err", err)
		} else if !due {
			logger.Debug("recently checked, skipping")
			o.Skipped = true
			return o
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		o.Err = err
		return o
	}

	res, err := r.discoverer.Discover(ctx, e.ItineraryQuery)
	o.Result = res
	if err != nil {
		logger.Error("discovery failed", "err", err)
		o.Err = err
		return o
	}

	if r.recorder != nil {
		_, change, err := r.recorder.Record(ctx, res)
		if err != nil {
			logger.Error("recording observation", "err", err)
			o.Err = err
			return o
		}
		o.Change = change
		if change.Movement != history.MovementNone {
			logger.Info("price movement", "change", change.String())
		}
	}
	return o
}

// Schedule runs a cycle on every tick of the cron spec until ctx ends. A
// tick that arrives while a cycle is still running is skipped.
func (r *Runner) Schedule(ctx context.Context, spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("watch cycle failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	r.logger.Info("watch scheduled", "schedule", spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
