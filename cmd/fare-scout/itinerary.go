// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fare-scout/internal/itinerary"
)

var itineraryCmd = &cobra.Command{
	Use:   "itinerary",
	Short: "Manage the itinerary file used by watch",
}

var itineraryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or replace an itinerary in the file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		description, _ := cmd.Flags().GetString("description")

		q, err := queryFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := itinerary.Add(file, q, description); err != nil {
			return err
		}
		fmt.Printf("Saved %s to %s\n", q.Key(), file)
		return nil
	},
}

var itineraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the itineraries in the file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		f, err := itinerary.Load(file)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "%-25s  %-9s  %-23s  %-17s  %-7s  %s\n",
			"Key", "Route", "Dates", "Flights", "Active", "Description")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
		for _, e := range f.Itineraries {
			dates := e.OutboundDate
			if e.RoundTrip() {
				dates += " / " + e.ReturnDate
			}
			fmt.Fprintf(os.Stdout, "%-25s  %-9s  %-23s  %-17s  %-7t  %s\n",
				e.Key(), e.Origin+"-"+e.Destination, dates, strings.Join(e.FlightNumbers, ","), e.Active(), e.Description)
		}
		return nil
	},
}

func init() {
	itineraryCmd.PersistentFlags().String("file", "itineraries.yaml", "itinerary file")

	addQueryFlags(itineraryAddCmd)
	itineraryAddCmd.Flags().String("description", "", "free-form note stored with the itinerary")

	itineraryCmd.AddCommand(itineraryAddCmd)
	itineraryCmd.AddCommand(itineraryListCmd)

	rootCmd.AddCommand(itineraryCmd)
}
