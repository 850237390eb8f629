// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/pdiddy/fare-scout/internal/httputil"
	"github.com/pdiddy/fare-scout/pkg/types"
)

var errNoPage = errors.New("no page loaded")

// staticSession fetches pages without running scripts. Expansion and
// filters are no-ops.
type staticSession struct {
	cfg    types.SessionConfig
	client *http.Client
	logger *log.Logger

	mu        sync.Mutex
	page      string
	closed    bool
	closeOnce sync.Once
}

// NewStaticSession returns a static session using client. A nil client
// uses one with the configured navigation timeout.
func NewStaticSession(cfg types.SessionConfig, client *http.Client, logger *log.Logger) Session {
	return newStatic(WithDefaults(cfg), client, logger)
}

func newStatic(cfg types.SessionConfig, client *http.Client, logger *log.Logger) *staticSession {
	if client == nil {
		client = &http.Client{Timeout: cfg.NavigationTimeout}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &staticSession{cfg: cfg, client: client, logger: logger}
}

func (s *staticSession) Runtime() types.Runtime { return types.RuntimeStatic }

func (s *staticSession) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	body, err := httputil.FetchPage(navCtx, s.client, url, s.cfg.UserAgent, s.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrNavigationTimeout, url, err)
	}
	if !ready(doc) {
		return fmt.Errorf("%w: no results on %s", ErrNavigationTimeout, url)
	}

	s.mu.Lock()
	s.page = body
	s.mu.Unlock()
	return nil
}

// ready applies the readiness selectors, then the keyword fallback.
func ready(doc *goquery.Document) bool {
	for _, sel := range ReadinessSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	doc.Find("script, style, noscript").Remove()
	return HasResultKeywords(strings.ToLower(doc.Text()))
}

func (s *staticSession) ExpandResults(context.Context) {
	s.logger.Debug("static runtime cannot expand results")
}

func (s *staticSession) ApplyFilters(_ context.Context, f Filters) {
	if !f.Empty() {
		s.logger.Debug("static runtime cannot apply filters", "steps", len(filterPlan(f)))
	}
}

func (s *staticSession) Snapshot(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("capturing page snapshot: session closed")
	}
	if s.page == "" {
		return "", fmt.Errorf("capturing page snapshot: %w", errNoPage)
	}
	return s.page, nil
}

func (s *staticSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.page = ""
		s.mu.Unlock()
		s.client.CloseIdleConnections()
	})
	return nil
}
