// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browser owns the rendering session that loads fare search pages.
// A Session navigates, waits for results, expands lazily loaded content,
// applies best-effort filters and hands back the rendered HTML. Two runtimes
// exist: chrome drives a real browser through the DevTools protocol; static
// fetches server-rendered HTML over plain HTTP.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/fare-scout/internal/timewindow"
	"github.com/pdiddy/fare-scout/pkg/types"
)

var (
	// ErrSessionLaunch means the rendering runtime could not be started.
	ErrSessionLaunch = errors.New("session launch failed")

	// ErrNavigationTimeout means a page did not load or show results in time.
	ErrNavigationTimeout = errors.New("navigation timed out")
)

// DefaultUserAgent is sent when none is configured.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ReadinessSelectors mark a results page as populated, tried in order.
var ReadinessSelectors = []string{
	`[data-testid="flight-card"]`,
	`[role="button"][aria-label*="$"]`,
	`.pIav2d`,
	`[jsname="gGwBYd"]`,
}

// resultKeywords is the fallback readiness check on the page text.
var resultKeywords = []string{"flight", "price", "$", "departure", "arrival"}

// HasResultKeywords reports whether lower-cased page text looks like a
// results page.
func HasResultKeywords(text string) bool {
	for _, k := range resultKeywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Filters narrows a results page. Every field is optional.
type Filters struct {
	Airline     string // carrier code, e.g. "DL"
	AirlineName string // display name, e.g. "Delta"
	Cabin       string
	Outbound    *timewindow.Window
	Return      *timewindow.Window
}

// Empty reports whether no filter is requested.
func (f Filters) Empty() bool {
	return f.Airline == "" && f.Cabin == "" && f.Outbound == nil && f.Return == nil
}

// Session is one rendering session. It is not safe for concurrent use.
type Session interface {
	// Navigate loads url and blocks until results appear or the navigation
	// timeout passes, in which case it returns ErrNavigationTimeout.
	Navigate(ctx context.Context, url string) error

	// ExpandResults scrolls and clicks "show more" controls. Failures are
	// ignored.
	ExpandResults(ctx context.Context)

	// ApplyFilters clicks filter controls. Failures are ignored.
	ApplyFilters(ctx context.Context, f Filters)

	// Snapshot returns the rendered HTML of the current page.
	Snapshot(ctx context.Context) (string, error)

	// Runtime names the runtime backing the session.
	Runtime() types.Runtime

	// Close releases the session. It is safe to call more than once.
	Close() error
}

// Launcher opens sessions.
type Launcher interface {
	Open(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Session, error)

// Open calls f.
func (f LauncherFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

// DefaultLauncher opens sessions of the configured runtime. With
// RuntimeAuto it uses Chrome when a binary is found, else static.
type DefaultLauncher struct {
	cfg    types.SessionConfig
	logger *log.Logger
	detect func() (Detection, error)
}

// NewLauncher returns a DefaultLauncher. A nil logger discards output.
func NewLauncher(cfg types.SessionConfig, logger *log.Logger) *DefaultLauncher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &DefaultLauncher{cfg: WithDefaults(cfg), logger: logger.WithPrefix("browser"), detect: DetectRuntime}
}

// Open implements Launcher.
func (l *DefaultLauncher) Open(ctx context.Context) (Session, error) {
	rt, err := l.Resolve()
	if err != nil {
		return nil, err
	}
	l.logger.Debug("opening session", "runtime", rt, "headless", l.cfg.Headless)
	switch rt {
	case types.RuntimeChrome:
		s, err := openChrome(ctx, l.cfg, l.logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case types.RuntimeStatic:
		return newStatic(l.cfg, nil, l.logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown runtime %q", ErrSessionLaunch, rt)
	}
}

// Resolve picks the concrete runtime for the configured one.
func (l *DefaultLauncher) Resolve() (types.Runtime, error) {
	switch l.cfg.Runtime {
	case types.RuntimeStatic:
		return types.RuntimeStatic, nil
	case types.RuntimeChrome:
		if l.cfg.ChromePath != "" {
			return types.RuntimeChrome, nil
		}
		if _, err := l.detect(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrSessionLaunch, err)
		}
		return types.RuntimeChrome, nil
	case types.RuntimeAuto:
		if l.cfg.ChromePath != "" {
			return types.RuntimeChrome, nil
		}
		if d, err := l.detect(); err == nil {
			l.logger.Debug("chrome detected", "binary", d.Binary, "version", d.Version)
			return types.RuntimeChrome, nil
		}
		l.logger.Warn("no chrome binary found, falling back to static runtime")
		return types.RuntimeStatic, nil
	default:
		return "", fmt.Errorf("%w: unknown runtime %q", ErrSessionLaunch, l.cfg.Runtime)
	}
}

// WithDefaults fills zero-valued session settings.
func WithDefaults(c types.SessionConfig) types.SessionConfig {
	if c.Runtime == "" {
		c.Runtime = types.RuntimeAuto
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.SelectorWait <= 0 {
		c.SelectorWait = 5 * time.Second
	}
	if c.ScrollIterations <= 0 {
		c.ScrollIterations = 5
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
	return c
}
