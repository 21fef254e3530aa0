// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dotandev/dexmerge/internal/config"
	"github.com/dotandev/dexmerge/internal/logger"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dexmerge",
	Short: "Combine two dex files into one",
	Long: `Dexmerge combines two Dalvik Executable (.dex) files into a single
equivalent file.

The inputs are independently indexed; dexmerge streams each pair of ID
sections into one sorted, deduplicated output section, remaps every
embedded index and offset — bytecode included — and emits class
definitions so that supertypes and interfaces precede their subclasses.

Examples:
  dexmerge merge out.dex a.dex b.dex            Merge two dex files
  dexmerge merge --collision-policy fail ...    Abort on duplicate classes
  dexmerge inspect classes.dex                  Show header and sections
  dexmerge history --limit 5                    Show recent merge runs`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}
