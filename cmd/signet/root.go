// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Signet CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signet",
		Short: "Signet - credential issuance and verification service",
		Long: `Signet registers accounts with argon2id password hashes, issues
signed bearer tokens on login, and verifies tokens on protected requests.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}
