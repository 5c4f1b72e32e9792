// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/LeeDigitalWorks/fleetplan/pkg/fleet"
	"github.com/LeeDigitalWorks/fleetplan/pkg/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type SampleOpts struct {
	AZs             int
	RacksPerAZ      int
	MetadataPerRack int
	StoragePerRack  int
	MemoryGB        int
	Shards          int
	Format          string
	OutPath         string
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Emit a sample fleet description",
	Long: `Generate a valid fleet description with freshly generated server UUIDs,
useful for bootstrapping a real config or demoing the planner.`,
	Run: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().Int("azs", 3, "Number of availability zones")
	sampleCmd.Flags().Int("racks-per-az", 2, "Racks per availability zone")
	sampleCmd.Flags().Int("metadata-per-rack", 2, "Metadata servers per rack")
	sampleCmd.Flags().Int("storage-per-rack", 2, "Storage servers per rack")
	sampleCmd.Flags().Int("memory", 64, "Usable memory per server in GiB")
	sampleCmd.Flags().Int("shards", 4, "Shard count")
	sampleCmd.Flags().String("format", "yaml", "Output format: json or yaml")
	sampleCmd.Flags().String("out", "", "Write to this path instead of stdout")
}

func runSample(cmd *cobra.Command, args []string) {
	flags := NewFlagLoader(cmd)
	opts := SampleOpts{
		AZs:             flags.Int("azs"),
		RacksPerAZ:      flags.Int("racks-per-az"),
		MetadataPerRack: flags.Int("metadata-per-rack"),
		StoragePerRack:  flags.Int("storage-per-rack"),
		MemoryGB:        flags.Int("memory"),
		Shards:          flags.Int("shards"),
		Format:          flags.String("format"),
		OutPath:         flags.String("out"),
	}

	cfg := SampleConfig(opts)

	var data []byte
	var err error
	switch opts.Format {
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(cfg)
	default:
		logger.Error().Str("format", opts.Format).Msg("format must be json or yaml")
		os.Exit(1)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode sample config")
		os.Exit(1)
	}

	if opts.OutPath == "" {
		fmt.Print(string(data))
		return
	}
	if err := os.WriteFile(opts.OutPath, data, 0o644); err != nil {
		logger.Error().Err(err).Str("path", opts.OutPath).Msg("failed to write sample config")
		os.Exit(1)
	}
}

// SampleConfig builds a uniform fleet description for the given shape.
func SampleConfig(opts SampleOpts) *fleet.Config {
	cfg := &fleet.Config{NumShards: opts.Shards}
	for a := 1; a <= opts.AZs; a++ {
		az := fmt.Sprintf("az-%d", a)
		for r := 1; r <= opts.RacksPerAZ; r++ {
			rack := fmt.Sprintf("%s-rack-%d", az, r)
			for m := 0; m < opts.MetadataPerRack; m++ {
				cfg.Servers = append(cfg.Servers, fleet.ServerConfig{
					Type:   string(fleet.ServerTypeMetadata),
					UUID:   uuid.NewString(),
					Memory: opts.MemoryGB,
					Rack:   rack,
					AZ:     az,
				})
			}
			for s := 0; s < opts.StoragePerRack; s++ {
				cfg.Servers = append(cfg.Servers, fleet.ServerConfig{
					Type:   string(fleet.ServerTypeStorage),
					UUID:   uuid.NewString(),
					Memory: opts.MemoryGB,
					Rack:   rack,
					AZ:     az,
				})
			}
		}
	}
	return cfg
}
