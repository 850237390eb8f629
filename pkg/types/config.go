// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Runtime selects how pages are rendered.
type Runtime string

const (
	// RuntimeAuto uses Chrome when a binary is found, else the static runtime.
	RuntimeAuto Runtime = "auto"

	// RuntimeChrome drives a Chrome/Chromium process through the DevTools protocol.
	RuntimeChrome Runtime = "chrome"

	// RuntimeStatic fetches pages over plain HTTP without running scripts.
	RuntimeStatic Runtime = "static"
)

// SessionConfig holds settings for the rendering session.
type SessionConfig struct {
	// Runtime selects chrome, static, or auto.
	Runtime Runtime `json:"runtime" yaml:"runtime" mapstructure:"runtime"`

	// Headless runs Chrome without a window (default true).
	Headless bool `json:"headless" yaml:"headless" mapstructure:"headless"`

	// ChromePath overrides Chrome binary discovery.
	ChromePath string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty" mapstructure:"chrome_path"`

	// UserAgent is the identifying string sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// NavigationTimeout bounds each page load and readiness wait (default 30s).
	NavigationTimeout time.Duration `json:"navigation_timeout" yaml:"navigation_timeout" mapstructure:"navigation_timeout"`

	// SelectorWait bounds the wait for each known readiness selector (default 5s).
	SelectorWait time.Duration `json:"selector_wait" yaml:"selector_wait" mapstructure:"selector_wait"`

	// ScrollIterations is the number of scroll-to-end passes when expanding
	// results (default 5).
	ScrollIterations int `json:"scroll_iterations" yaml:"scroll_iterations" mapstructure:"scroll_iterations"`

	// SettleDelay is the pause after a scroll or click so the page can
	// render asynchronously loaded content (default 2s).
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay" mapstructure:"settle_delay"`
}

// TieBreak orders equally scored candidates by amount.
type TieBreak string

const (
	// PreferHigher picks the larger fare, understating rather than
	// overstating any saving.
	PreferHigher TieBreak = "higher"

	// PreferLower picks the smaller fare.
	PreferLower TieBreak = "lower"
)

// DiscoveryConfig holds settings for the orchestrator.
type DiscoveryConfig struct {
	// TieBreak selects among equally scored candidates (default higher).
	TieBreak TieBreak `json:"tie_break" yaml:"tie_break" mapstructure:"tie_break"`

	// CarrierSites maps a carrier code to its direct booking search URL.
	// Carriers without an entry skip the carrier-direct site.
	CarrierSites map[string]string `json:"carrier_sites,omitempty" yaml:"carrier_sites,omitempty" mapstructure:"carrier_sites"`

	// AggregatorURL is the base URL of the aggregator search page.
	AggregatorURL string `json:"aggregator_url" yaml:"aggregator_url" mapstructure:"aggregator_url"`

	// RefineWithTimes re-applies filters with time windows when the first
	// aggregator pass does not reach the excellent tier (default true).
	RefineWithTimes bool `json:"refine_with_times" yaml:"refine_with_times" mapstructure:"refine_with_times"`
}

// HistoryConfig holds settings for the price history store.
type HistoryConfig struct {
	// DataDir holds the SQLite database (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// KeepPerItinerary caps stored observations per itinerary (default 100).
	KeepPerItinerary int `json:"keep_per_itinerary" yaml:"keep_per_itinerary" mapstructure:"keep_per_itinerary"`
}

// WatchConfig holds settings for the monitoring loop.
type WatchConfig struct {
	// Schedule is a cron spec for repeated cycles (e.g. "@every 1h").
	Schedule string `json:"schedule" yaml:"schedule" mapstructure:"schedule"`

	// InterCallDelay is the minimum spacing between two discovery calls
	// (default 2s).
	InterCallDelay time.Duration `json:"inter_call_delay" yaml:"inter_call_delay" mapstructure:"inter_call_delay"`

	// RecheckInterval skips itineraries observed more recently (default 6h).
	RecheckInterval time.Duration `json:"recheck_interval" yaml:"recheck_interval" mapstructure:"recheck_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// File redirects logs to a file instead of stderr.
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// Config groups all settings.
type Config struct {
	Session   SessionConfig   `json:"session" yaml:"session" mapstructure:"session"`
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery" mapstructure:"discovery"`
	History   HistoryConfig   `json:"history" yaml:"history" mapstructure:"history"`
	Watch     WatchConfig     `json:"watch" yaml:"watch" mapstructure:"watch"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}
