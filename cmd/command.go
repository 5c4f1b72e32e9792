// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "fleetplan",
	Short: "Fleetplan - deterministic fleet layout planner",
	Long: `Fleetplan computes a deterministic placement of storage platform services
onto a described fleet of servers, striping instances across racks and
availability zones for fault tolerance. It runs offline against a fleet
description file and emits a per-AZ configuration ready to apply.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	viper.SetEnvPrefix("FLEETPLAN")
	viper.AutomaticEnv()
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
