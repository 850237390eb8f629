// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fare-scout/internal/browser"
)

var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Show which rendering runtime discover would use",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		d, derr := browser.DetectRuntime()
		if derr != nil {
			fmt.Printf("Chrome:    not found (%v)\n", derr)
		} else {
			fmt.Printf("Chrome:    %s (%s)\n", d.Path, d.Version)
		}

		rt, err := browser.NewLauncher(cfg.Session, logger).Resolve()
		if err != nil {
			return err
		}
		fmt.Printf("Configured: %s\n", cfg.Session.Runtime)
		fmt.Printf("Resolved:   %s\n", rt)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runtimeCmd)
}
