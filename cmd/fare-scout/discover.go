// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fare-scout/internal/browser"
	"github.com/pdiddy/fare-scout/internal/discover"
	"github.com/pdiddy/fare-scout/internal/history"
	"github.com/pdiddy/fare-scout/internal/itinerary"
	"github.com/pdiddy/fare-scout/pkg/types"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover the fare of one itinerary",
	Long: `Discover prices a single itinerary. The itinerary comes from flags or,
with --file, from an itinerary file (every active entry, or the one named
by --key).

The carrier's own site is tried first when flight numbers are given; the
aggregator is the fallback. The result is either a fare with the site,
strategy, signals and tier that produced it, or NotFound with a reason.
Outcomes are recorded in the history database unless --no-history is set.`,
	RunE: runDiscover,
}

func init() {
	addQueryFlags(discoverCmd)
	discoverCmd.Flags().String("file", "", "itinerary file to read queries from")
	discoverCmd.Flags().String("key", "", "with --file, price only the itinerary with this key")
	discoverCmd.Flags().String("out", "", "write the result artifact (YAML) to this path")
	discoverCmd.Flags().String("links-file", "", "write verification links to this path")
	discoverCmd.Flags().String("format", "text", "output format: text, yaml or json")
	discoverCmd.Flags().Bool("no-history", false, "do not record the outcome")
	discoverCmd.Flags().Duration("timeout", 0, "overall deadline per itinerary (0 = none)")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "yaml" && format != "json" {
		return fmt.Errorf("unsupported format %q: use text, yaml or json", format)
	}

	queries, err := discoverQueries(cmd)
	if err != nil {
		return err
	}

	var store *history.Store
	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		store, err = history.NewStore(cfg.History)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	engine := newEngine(cfg)
	outPath, _ := cmd.Flags().GetString("out")
	linksPath, _ := cmd.Flags().GetString("links-file")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	var results []types.DiscoveryResult
	failed := 0
	for _, q := range queries {
		ctx, cancel := withOptionalTimeout(cmd.Context(), timeout)
		res, err := engine.Discover(ctx, q)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", q.Key(), err)
			failed++
			if len(res.Attempts) == 0 {
				continue
			}
		}
		if store != nil && err == nil {
			if _, change, err := store.Record(context.Background(), res); err != nil {
				logger.Error("recording observation", "itinerary", q.Key(), "err", err)
			} else if change.Movement != history.MovementNone {
				fmt.Fprintf(os.Stdout, "%s: %s\n", q.Key(), change)
			}
		}
		results = append(results, res)
	}

	if err := writeResults(os.Stdout, results, format); err != nil {
		return err
	}

	if outPath != "" && len(results) > 0 {
		if err := discover.WriteArtifact(outPath, results[len(results)-1]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Result written to %s\n", outPath)
	}
	if linksPath != "" && len(results) > 0 {
		var urls []string
		for _, r := range results {
			urls = append(urls, r.VerificationURLs...)
		}
		if err := discover.WriteVerificationLinks(linksPath, urls, time.Now()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Verification links written to %s\n", linksPath)
	}

	if failed > 0 {
		return fmt.Errorf("%d itinerary(ies) failed discovery", failed)
	}
	return nil
}

// discoverQueries returns the itineraries named by --file/--key or flags.
func discoverQueries(cmd *cobra.Command) ([]types.ItineraryQuery, error) {
	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		q, err := queryFromFlags(cmd)
		if err != nil {
			return nil, err
		}
		return []types.ItineraryQuery{q}, nil
	}

	f, err := itinerary.Load(file)
	if err != nil {
		return nil, err
	}
	key, _ := cmd.Flags().GetString("key")
	var out []types.ItineraryQuery
	for _, e := range f.Itineraries {
		if key != "" && e.Key() == key {
			return []types.ItineraryQuery{e.ItineraryQuery}, nil
		}
		if key == "" && e.Active() {
			out = append(out, e.ItineraryQuery)
		}
	}
	if key != "" {
		return nil, fmt.Errorf("no itinerary with key %q in %s", key, file)
	}
	return out, nil
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("id", "", "itinerary key used in history (default: derived)")
	cmd.Flags().String("origin", "", "origin airport code, e.g. SLC")
	cmd.Flags().String("destination", "", "destination airport code, e.g. DEN")
	cmd.Flags().String("outbound-date", "", "outbound date (YYYY-MM-DD)")
	cmd.Flags().String("return-date", "", "return date (YYYY-MM-DD); empty for one-way")
	cmd.Flags().String("outbound-time", "", "outbound departure time, e.g. \"1:30 PM\"")
	cmd.Flags().String("return-time", "", "return departure time, e.g. \"6:25 PM\"")
	cmd.Flags().StringSlice("flight", nil, "flight numbers, outbound first (e.g. DL1623,DL2663)")
	cmd.Flags().String("airline", "", "carrier code, e.g. DL")
	cmd.Flags().Bool("filter-airline", false, "discard candidates that do not name the airline")
	cmd.Flags().String("cabin", "", "cabin class to filter for, e.g. main")
}

func queryFromFlags(cmd *cobra.Command) (types.ItineraryQuery, error) {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	flights, _ := cmd.Flags().GetStringSlice("flight")
	filterAirline, _ := cmd.Flags().GetBool("filter-airline")

	q := types.ItineraryQuery{
		ID:            get("id"),
		Origin:        get("origin"),
		Destination:   get("destination"),
		OutboundDate:  get("outbound-date"),
		ReturnDate:    get("return-date"),
		OutboundTime:  get("outbound-time"),
		ReturnTime:    get("return-time"),
		FlightNumbers: flights,
		Airline:       get("airline"),
		FilterAirline: filterAirline,
		Cabin:         get("cabin"),
		FilterCabin:   get("cabin") != "",
	}.Normalize()
	if err := q.Validate(); err != nil {
		return types.ItineraryQuery{}, fmt.Errorf("invalid itinerary: %w", err)
	}
	return q, nil
}

func newEngine(cfg types.Config) *discover.Engine {
	return discover.New(browser.NewLauncher(cfg.Session, logger), cfg.Discovery, logger)
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func writeResults(w io.Writer, results []types.DiscoveryResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}

	for _, r := range results {
		writeSummary(w, r)
	}
	return nil
}

func writeSummary(w io.Writer, r types.DiscoveryResult) {
	fmt.Fprintf(w, "%s  %s -> %s  %s", r.Query.Key(), r.Query.Origin, r.Query.Destination, r.Query.OutboundDate)
	if r.Query.RoundTrip() {
		fmt.Fprintf(w, " / %s", r.Query.ReturnDate)
	}
	fmt.Fprintln(w)

	if r.Found {
		fmt.Fprintf(w, "  Fare:      $%.2f (%s, %s)\n", r.Amount, r.Tier, r.Site)
		if r.Record != nil {
			fmt.Fprintf(w, "  Strategy:  %s, score %d\n", r.Record.Strategy, r.Record.Score)
			fmt.Fprintf(w, "  Signals:   %s\n", strings.Join(r.Record.Signals.Names(), ", "))
		}
	} else {
		fmt.Fprintf(w, "  NotFound:  %s\n", r.Reason)
		if r.Detail != "" {
			fmt.Fprintf(w, "  Detail:    %s\n", r.Detail)
		}
	}

	fmt.Fprintf(w, "  %-10s  %-5s  %-20s  %-10s  %-10s  %s\n", "Site", "Found", "Reason", "Strategy", "Best tier", "Candidates")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 76))
	for _, a := range r.Attempts {
		fmt.Fprintf(w, "  %-10s  %-5t  %-20s  %-10s  %-10s  %d\n",
			a.Site, a.Found, a.Reason, a.Strategy, a.BestTier, a.Candidates)
	}
	for i, u := range r.VerificationURLs {
		fmt.Fprintf(w, "  Verify %d:  %s\n", i+1, u)
	}
	fmt.Fprintln(w)
}
