// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fare-scout/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Review recorded prices (list, export)",
	Long: `History reads the SQLite database of discovery outcomes. Each itinerary
keeps its most recent observations; price movement is classified between
consecutive priced observations.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list [itinerary-key]",
	Short: "List observations, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryList,
}

var historyExportCmd = &cobra.Command{
	Use:   "export [itinerary-key]",
	Short: "Export the history to YAML or JSON",
	Long: `Export writes the history (or one itinerary's) to <data dir>/export.yaml
or export.json, or to --out. Each itinerary carries its latest price change.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistoryExport,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.NewStore(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	obs, err := store.List(context.Background(), historyOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(obs)
	}

	if len(obs) == 0 {
		fmt.Println("No observations found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-25s  %-20s  %-10s  %-10s  %-10s  %s\n",
		"Checked", "Itinerary", "Amount", "Tier", "Site", "Reason")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, o := range obs {
		key := o.Key
		if len(key) > 20 {
			key = key[:17] + "..."
		}
		amount := "-"
		if o.Found {
			amount = fmt.Sprintf("$%.2f", o.Amount)
		}
		fmt.Fprintf(os.Stdout, "%-25s  %-20s  %-10s  %-10s  %-10s  %s\n",
			o.CheckedAt.Local().Format(time.DateTime), key, amount, o.Tier, o.Site, o.Reason)
	}
	fmt.Fprintf(os.Stdout, "\n%d observations\n", len(obs))
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.NewStore(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := historyOptsFromFlags(cmd, args)

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(context.Background(), out, opts)
	case "json":
		path, err = store.ExportJSON(context.Background(), out, opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

func historyOptsFromFlags(cmd *cobra.Command, args []string) history.QueryOptions {
	var opts history.QueryOptions
	if len(args) > 0 {
		opts.Key = args[0]
	}
	opts.FoundOnly, _ = cmd.Flags().GetBool("found")
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		opts.Since = time.Now().Add(-since)
	}
	return opts
}

func init() {
	historyCmd.PersistentFlags().Bool("found", false, "only observations that carried a price")
	historyCmd.PersistentFlags().Duration("since", 0, "only observations newer than this (e.g. 72h)")
	historyCmd.PersistentFlags().Int("limit", 0, "maximum observations (0 = all)")

	historyListCmd.Flags().Bool("json", false, "output observations as JSON")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("out", "", "output path (default: <data dir>/export.<format>)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
