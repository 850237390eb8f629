// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the fare-scout CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fare-scout/internal/discover"
	"github.com/pdiddy/fare-scout/internal/logging"
	"github.com/pdiddy/fare-scout/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// logger is built from the log config before any subcommand runs.
	logger    = logging.Discard()
	logCloser io.Closer
)

// rootCmd is the base command for the fare-scout CLI.
var rootCmd = &cobra.Command{
	Use:   "fare-scout",
	Short: "Discover the current fare of a specific flight itinerary",
	Long: `fare-scout loads flight search pages, extracts candidate fares and reports
the one that matches a given itinerary (airports, dates, flight numbers and
departure times), or a typed NotFound when no candidate is confident enough.

Use discover for a single lookup, watch to price a list of itineraries on a
schedule, and history to review recorded prices.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		l, closer, err := logging.Open(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}
		logger, logCloser = l, closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fare-scout.yaml or ~/.config/fare-scout/fare-scout.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("runtime", "", "rendering runtime: auto, chrome, static")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the history database")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("session.runtime", rootCmd.PersistentFlags().Lookup("runtime"))
	viper.BindPFlag("history.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))

	setDefaults()
}

func setDefaults() {
	d := discover.DefaultConfig()

	viper.SetDefault("session.runtime", string(types.RuntimeAuto))
	viper.SetDefault("session.headless", true)
	viper.SetDefault("session.navigation_timeout", "30s")
	viper.SetDefault("session.selector_wait", "5s")
	viper.SetDefault("session.scroll_iterations", 5)
	viper.SetDefault("session.settle_delay", "2s")

	viper.SetDefault("discovery.tie_break", string(d.TieBreak))
	viper.SetDefault("discovery.carrier_sites", d.CarrierSites)
	viper.SetDefault("discovery.aggregator_url", d.AggregatorURL)
	viper.SetDefault("discovery.refine_with_times", d.RefineWithTimes)

	viper.SetDefault("history.data_dir", "data")
	viper.SetDefault("history.keep_per_itinerary", 100)

	viper.SetDefault("watch.schedule", "@every 6h")
	viper.SetDefault("watch.inter_call_delay", "2s")
	viper.SetDefault("watch.recheck_interval", "6h")

	viper.SetDefault("log.level", "info")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fare-scout")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "fare-scout"))
		}
	}

	viper.SetEnvPrefix("FARE_SCOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged viper settings.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	switch cfg.Session.Runtime {
	case types.RuntimeAuto, types.RuntimeChrome, types.RuntimeStatic:
	default:
		return types.Config{}, fmt.Errorf("unsupported runtime %q: use auto, chrome or static", cfg.Session.Runtime)
	}
	switch cfg.Discovery.TieBreak {
	case types.PreferHigher, types.PreferLower:
	default:
		return types.Config{}, fmt.Errorf("unsupported tie_break %q: use higher or lower", cfg.Discovery.TieBreak)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
