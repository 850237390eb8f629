// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fare-scout/internal/history"
	"github.com/pdiddy/fare-scout/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Price every itinerary in a file on a schedule",
	Long: `Watch reads an itinerary file and prices each active entry, one at a
time with a delay between calls. Entries checked more recently than their
recheck interval are skipped. Every outcome is recorded in the history
database and price movements are printed.

With --once a single cycle runs; otherwise cycles follow the cron
schedule (--every, e.g. "@every 1h" or "0 */6 * * *") until interrupted.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("file", "itineraries.yaml", "itinerary file")
	watchCmd.Flags().String("every", "", "cron schedule for cycles (default from watch.schedule)")
	watchCmd.Flags().Bool("once", false, "run one cycle and exit")
	watchCmd.Flags().Duration("delay", 0, "minimum delay between discovery calls")
	watchCmd.Flags().Duration("recheck", 0, "skip itineraries checked within this interval")

	viper.BindPFlag("watch.schedule", watchCmd.Flags().Lookup("every"))
	viper.BindPFlag("watch.inter_call_delay", watchCmd.Flags().Lookup("delay"))
	viper.BindPFlag("watch.recheck_interval", watchCmd.Flags().Lookup("recheck"))

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	file, _ := cmd.Flags().GetString("file")
	once, _ := cmd.Flags().GetBool("once")

	store, err := history.NewStore(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	runner := watch.New(newEngine(cfg), store, watch.FileSource(file), cfg.Watch, logger)
	runner.OnOutcome = func(o watch.Outcome) {
		switch {
		case o.Skipped:
			return
		case o.Err != nil:
			fmt.Fprintf(os.Stdout, "%-30s  error: %v\n", o.Key, o.Err)
		case o.Result.Found:
			fmt.Fprintf(os.Stdout, "%-30s  $%.2f  %-10s  %s\n", o.Key, o.Result.Amount, o.Result.Tier, o.Change.Movement)
		default:
			fmt.Fprintf(os.Stdout, "%-30s  not found (%s)\n", o.Key, o.Result.Reason)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		rep, err := runner.RunOnce(ctx)
		if err != nil {
			return err
		}
		priced, notFound, skipped, failed := rep.Counts()
		fmt.Fprintf(os.Stdout, "\n%d priced, %d not found, %d skipped, %d failed\n", priced, notFound, skipped, failed)
		return nil
	}

	if _, err := runner.RunOnce(ctx); err != nil {
		return err
	}
	return runner.Schedule(ctx, cfg.Watch.Schedule)
}
