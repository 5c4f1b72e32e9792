// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/LeeDigitalWorks/fleetplan/pkg/fleet"
	"github.com/LeeDigitalWorks/fleetplan/pkg/logger"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a fleet description without generating a layout",
	Long: `Load and validate a fleet description file, then print the derived
fleet shape: availability zones, racks, server counts, and total memory.`,
	Run: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().String("config", "", "Path to the fleet description file (JSON or YAML)")
	validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) {
	flags := NewFlagLoader(cmd)
	path := flags.String("config")

	f, err := fleet.Load(path)
	if err != nil {
		logger.Error().Err(err).Str("config", path).Msg("fleet config is invalid")
		os.Exit(1)
	}

	fmt.Printf("Fleet config %s is valid.\n\n", path)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AZ\tRACKS\tMETADATA\tSTORAGE")
	fmt.Fprintln(w, "--\t-----\t--------\t-------")
	for _, name := range f.AZNames {
		az := f.AZs[name]
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", az.Name, len(az.RackNames), az.MetadataCount, az.StorageCount)
	}
	w.Flush()

	fmt.Println()
	fmt.Printf("Shards:          %d\n", f.NumShards)
	fmt.Printf("Min metadata/az: %d\n", f.MinMetadataPerAZ)
	fmt.Printf("Min storage/az:  %d\n", f.MinStoragePerAZ)
	fmt.Printf("Metadata memory: %s\n", humanize.IBytes(uint64(f.TotalMemoryGB(fleet.ServerTypeMetadata))<<30))
	fmt.Printf("Storage memory:  %s\n", humanize.IBytes(uint64(f.TotalMemoryGB(fleet.ServerTypeStorage))<<30))
}
