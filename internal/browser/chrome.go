// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"

	"github.com/pdiddy/fare-scout/pkg/types"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080

	keywordPollInterval = 500 * time.Millisecond
)

const scrollScript = `window.scrollTo(0, document.body ? document.body.scrollHeight : 0)`

const bodyTextScript = `document.body ? document.body.innerText.toLowerCase() : ""`

// showMorePhrases are the expander labels clicked to reveal further results.
// Multi-word phrases only: "All filters" and "View details" must not match.
var showMorePhrases = []string{"more flights", "show more", "view more", "see more", "load more", "more options"}

// showMoreScript takes a JSON array of lower-case phrases.
const showMoreScript = `((phrases) => {
  for (const el of document.querySelectorAll('button, [role="button"], a')) {
    const label = ((el.getAttribute("aria-label") || "") + " " + (el.innerText || "")).toLowerCase().replace(/\s+/g, " ");
    if (!phrases.some(p => label.includes(p))) continue;
    const r = el.getBoundingClientRect();
    if (r.width === 0 || r.height === 0) continue;
    el.click();
    return true;
  }
  return false;
})(%s)`

// clickFirstScript takes a JSON array of selectors.
const clickFirstScript = `((sels) => {
  for (const sel of sels) {
    for (const el of document.querySelectorAll(sel)) {
      const r = el.getBoundingClientRect();
      if (r.width === 0 || r.height === 0) continue;
      el.click();
      return true;
    }
  }
  return false;
})(%s)`

// rangeScript moves the first two range inputs to the given hours.
const rangeScript = `((lo, hi) => {
  const inputs = document.querySelectorAll('input[type="range"]');
  if (inputs.length < 2) return false;
  const set = (el, v) => {
    el.value = v;
    el.dispatchEvent(new Event("input", {bubbles: true}));
    el.dispatchEvent(new Event("change", {bubbles: true}));
  };
  set(inputs[0], lo);
  set(inputs[1], hi);
  return true;
})(%d, %d)`

// chromeSession drives one Chrome tab.
type chromeSession struct {
	cfg    types.SessionConfig
	logger *log.Logger

	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	closeOnce     sync.Once
}

func openChrome(ctx context.Context, cfg types.SessionConfig, logger *log.Logger) (*chromeSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(viewportWidth, viewportHeight),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}

	// The browser outlives the caller's context; Close tears it down.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Debugf),
		chromedp.WithErrorf(logger.Debugf),
	)

	stop := context.AfterFunc(ctx, cancelBrowser)
	err := chromedp.Run(browserCtx)
	stop()
	if err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("%w: starting chrome: %v", ErrSessionLaunch, err)
	}

	return &chromeSession{
		cfg:           cfg,
		logger:        logger,
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

// scoped derives a context from the browser context that ends after d or
// when ctx ends, whichever is first.
func (s *chromeSession) scoped(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(s.ctx, d)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) Runtime() types.Runtime { return types.RuntimeChrome }

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := s.scoped(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	start := time.Now()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: loading %s: %v", ErrNavigationTimeout, url, err)
	}

	for _, sel := range ReadinessSelectors {
		selCtx, selCancel := context.WithTimeout(navCtx, s.cfg.SelectorWait)
		err := chromedp.Run(selCtx, chromedp.WaitReady(sel, chromedp.ByQuery))
		selCancel()
		if err == nil {
			s.logger.Debug("results ready", "selector", sel, "elapsed", time.Since(start).Round(time.Millisecond))
			return nil
		}
		if navCtx.Err() != nil {
			break
		}
	}

	for {
		var text string
		if err := chromedp.Run(navCtx, chromedp.Evaluate(bodyTextScript, &text)); err == nil && HasResultKeywords(text) {
			s.logger.Debug("results ready by keyword", "elapsed", time.Since(start).Round(time.Millisecond))
			return nil
		}
		select {
		case <-navCtx.Done():
			return fmt.Errorf("%w: no results on %s after %s", ErrNavigationTimeout, url, s.cfg.NavigationTimeout)
		case <-time.After(keywordPollInterval):
		}
	}
}

func (s *chromeSession) ExpandResults(ctx context.Context) {
	budget := time.Duration(s.cfg.ScrollIterations+2) * (s.cfg.SettleDelay + 5*time.Second)
	runCtx, cancel := s.scoped(ctx, budget)
	defer cancel()

	for i := 0; i < s.cfg.ScrollIterations; i++ {
		if err := chromedp.Run(runCtx, chromedp.Evaluate(scrollScript, nil), chromedp.Sleep(s.cfg.SettleDelay)); err != nil {
			s.logger.Debug("scroll failed", "iteration", i+1, "err", err)
			return
		}
	}

	var clicked bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(showMoreExpression(), &clicked)); err != nil {
		s.logger.Debug("show-more click failed", "err", err)
		return
	}
	if clicked {
		s.logger.Debug("clicked show-more control")
		_ = chromedp.Run(runCtx, chromedp.Sleep(s.cfg.SettleDelay))
	}
}

func (s *chromeSession) ApplyFilters(ctx context.Context, f Filters) {
	steps := filterPlan(f)
	if len(steps) == 0 {
		return
	}
	runCtx, cancel := s.scoped(ctx, time.Duration(len(steps))*(3*s.cfg.SettleDelay+5*time.Second))
	defer cancel()

	for _, step := range steps {
		clicked, err := s.clickFirst(runCtx, step.Selectors)
		if err != nil || !clicked {
			s.logger.Debug("filter control not found", "filter", step.Name, "err", err)
			continue
		}
		_ = chromedp.Run(runCtx, chromedp.Sleep(s.cfg.SettleDelay))

		if step.Range != nil {
			var moved bool
			lo, hi := step.Range.Lower.Hour(), step.Range.Upper.Hour()
			if err := chromedp.Run(runCtx, chromedp.Evaluate(fmt.Sprintf(rangeScript, lo, hi), &moved)); err != nil || !moved {
				s.logger.Debug("time range controls not found", "filter", step.Name, "err", err)
			}
			if ok, _ := s.clickFirst(runCtx, closeSelectors); ok {
				_ = chromedp.Run(runCtx, chromedp.Sleep(s.cfg.SettleDelay/2))
			}
		}
		s.logger.Debug("filter applied", "filter", step.Name)
	}
}

func showMoreExpression() string {
	arg, _ := json.Marshal(showMorePhrases)
	return fmt.Sprintf(showMoreScript, arg)
}

func (s *chromeSession) clickFirst(ctx context.Context, selectors []string) (bool, error) {
	arg, err := json.Marshal(selectors)
	if err != nil {
		return false, err
	}
	var clicked bool
	err = chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(clickFirstScript, arg), &clicked))
	return clicked, err
}

func (s *chromeSession) Snapshot(ctx context.Context) (string, error) {
	runCtx, cancel := s.scoped(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capturing page snapshot: %w", err)
	}
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("capturing page snapshot: empty document")
	}
	return html, nil
}

func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.ctx); err != nil {
			s.logger.Debug("closing browser", "err", err)
		}
		s.cancelBrowser()
		s.cancelAlloc()
	})
	return nil
}
