// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

// Global flag values.
var (
	flagConfigFile string
)

// cfg holds the configuration loaded by PersistentPreRunE so all
// subcommands can use it.
var cfg *Config

var rootCmd = &cobra.Command{
	Use:   "dataqe-server",
	Short: "DataQE Suite validates data between sources and targets",
	Long: `DataQE Suite is a data-validation service. Teams define test cases that
compare a source dataset (SQL query, Excel workbook or delimited file)
against a target dataset and track mismatches, reports and schedules.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(flagConfigFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "config file (default: ./dataqe.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(createUserCmd)
	rootCmd.AddCommand(tokenCmd)
}
