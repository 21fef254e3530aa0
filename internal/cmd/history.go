// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dotandev/dexmerge/internal/config"
	"github.com/dotandev/dexmerge/internal/history"
)

var historyLimitFlag int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent merge runs recorded with --record",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path := cfg.HistoryPath
	if path == "" {
		path, err = history.DefaultPath()
		if err != nil {
			return err
		}
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No merge runs recorded yet. Run 'dexmerge merge --record' first.")
		return nil
	}

	fmt.Printf("%-20s %-24s %7s %7s %7s %10s %8s\n",
		"when", "out", "a_defs", "b_defs", "defs", "bytes", "ms")
	for _, run := range runs {
		fmt.Printf("%-20s %-24s %7d %7d %7d %10d %8d\n",
			run.Timestamp.Format("2006-01-02 15:04:05"), truncatePath(run.OutPath, 24),
			run.ADefs, run.BDefs, run.OutDefs, run.OutBytes, run.DurationMS)
	}
	return nil
}

func truncatePath(p string, max int) string {
	if len(p) <= max {
		return p
	}
	return "..." + p[len(p)-max+3:]
}

func init() {
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 10, "maximum runs to list")
	rootCmd.AddCommand(historyCmd)
}
