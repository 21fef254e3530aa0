// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dotandev/dexmerge/internal/config"
	"github.com/dotandev/dexmerge/internal/dex"
	"github.com/dotandev/dexmerge/internal/errors"
	"github.com/dotandev/dexmerge/internal/history"
	"github.com/dotandev/dexmerge/internal/logger"
	"github.com/dotandev/dexmerge/internal/merge"
)

var (
	mergeCollisionPolicyFlag  string
	mergeRemoveFlag           []string
	mergeCompactThresholdFlag int
	mergeNoCompactFlag        bool
	mergeRecordFlag           bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge <out.dex> <a.dex> <b.dex>",
	Short: "Merge two dex files into one",
	Long: `Merge combines a.dex and b.dex into out.dex.

If both inputs define the same class, a's copy is used under the default
keep-first policy; --collision-policy fail aborts instead. Classes named
by --remove (fully-qualified type descriptors such as "Ltest/Type1;") are
excluded from the output.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 3 {
			cmd.Println(cmd.UsageString())
			return fmt.Errorf("accepts 3 args: <out.dex> <a.dex> <b.dex>, received %d", len(args))
		}
		return nil
	},
	RunE: runMerge,
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	policyName := cfg.CollisionPolicy
	if cmd.Flags().Changed("collision-policy") {
		policyName = mergeCollisionPolicyFlag
	}
	var policy merge.CollisionPolicy
	switch policyName {
	case config.PolicyKeepFirst:
		policy = merge.KeepFirst
	case config.PolicyFail:
		policy = merge.FailOnCollision
	default:
		return errors.WrapValidationError(fmt.Sprintf(
			"unknown collision policy %q (want %q or %q)",
			policyName, config.PolicyKeepFirst, config.PolicyFail))
	}

	removeClasses := cfg.Remove
	if cmd.Flags().Changed("remove") {
		removeClasses = mergeRemoveFlag
	}
	threshold := cfg.CompactWasteThreshold
	if cmd.Flags().Changed("compact-threshold") {
		threshold = mergeCompactThresholdFlag
	}

	outPath, aPath, bPath := args[0], args[1], args[2]

	dexA, err := dex.ReadFile(aPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", aPath, err)
	}
	dexB, err := dex.ReadFile(bPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", bPath, err)
	}

	start := time.Now()
	merger := merge.New(dexA, dexB, merge.Options{
		Policy:                policy,
		RemoveClasses:         removeClasses,
		CompactWasteThreshold: threshold,
		NoCompact:             mergeNoCompactFlag,
	})
	merged, err := merger.Merge()
	if err != nil {
		return err
	}

	if err := merged.WriteFile(outPath); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	elapsed := time.Since(start)
	compacted := merged.Length() < dexA.Length()+dexB.Length()

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	bold.Printf("%s: ", outPath)
	fmt.Printf("%d class defs, %.1f KiB ", merged.TOC().ClassDefs.Size,
		float64(merged.Length())/1024)
	green.Printf("ok")
	fmt.Printf(" (%.2fs)\n", elapsed.Seconds())

	if mergeRecordFlag {
		recordRun(cfg, &history.Run{
			OutPath:    outPath,
			APath:      aPath,
			BPath:      bPath,
			ADefs:      int(dexA.TOC().ClassDefs.Size),
			BDefs:      int(dexB.TOC().ClassDefs.Size),
			OutDefs:    int(merged.TOC().ClassDefs.Size),
			OutBytes:   int64(merged.Length()),
			Compacted:  compacted,
			DurationMS: elapsed.Milliseconds(),
		})
	}

	return nil
}

// recordRun writes to the history store on a best-effort basis; a failed
// insert never fails the merge.
func recordRun(cfg *config.Config, run *history.Run) {
	path := cfg.HistoryPath
	if path == "" {
		var err error
		path, err = history.DefaultPath()
		if err != nil {
			logger.Logger.Warn("history disabled", "error", err)
			return
		}
	}
	store, err := history.Open(path)
	if err != nil {
		logger.Logger.Warn("failed to open history store", "path", path, "error", err)
		return
	}
	defer store.Close()
	if err := store.Record(run); err != nil {
		logger.Logger.Warn("failed to record merge run", "error", err)
	}
}

func init() {
	mergeCmd.Flags().StringVar(&mergeCollisionPolicyFlag, "collision-policy",
		config.PolicyKeepFirst, "duplicate class handling: keep-first or fail")
	mergeCmd.Flags().StringArrayVar(&mergeRemoveFlag, "remove", nil,
		"type descriptor to exclude from the output (repeatable)")
	mergeCmd.Flags().IntVar(&mergeCompactThresholdFlag, "compact-threshold",
		merge.DefaultCompactWasteThreshold, "wasted bytes before the result is compacted")
	mergeCmd.Flags().BoolVar(&mergeNoCompactFlag, "no-compact", false,
		"never run the compaction pass")
	mergeCmd.Flags().BoolVar(&mergeRecordFlag, "record", false,
		"record this run in the merge history")
	rootCmd.AddCommand(mergeCmd)
}
