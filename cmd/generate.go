// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LeeDigitalWorks/fleetplan/pkg/fleet"
	"github.com/LeeDigitalWorks/fleetplan/pkg/layout"
	"github.com/LeeDigitalWorks/fleetplan/pkg/logger"

	"github.com/spf13/cobra"
)

type GenerateOpts struct {
	ConfigPath string
	OutputDir  string
	Images     []string
	Summary    bool
	Quiet      bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a service layout for a fleet",
	Long: `Load a fleet description, plan service placement across its servers,
and write one layout file per availability zone. Warnings and errors are
printed to stderr; the layout is only written when no fatal error occurred.`,
	Run: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("config", "", "Path to the fleet description file (JSON or YAML)")
	generateCmd.Flags().String("output-dir", "", "Directory to write per-AZ layout files into")
	generateCmd.Flags().StringSlice("image", nil, "Per-role image override as role=image (repeatable)")
	generateCmd.Flags().Bool("summary", true, "Print a placement summary table")
	generateCmd.Flags().Bool("quiet", false, "Suppress the summary table")

	generateCmd.MarkFlagRequired("config")
}

func runGenerate(cmd *cobra.Command, args []string) {
	flags := NewFlagLoader(cmd)
	opts := GenerateOpts{
		ConfigPath: flags.String("config"),
		OutputDir:  flags.String("output-dir"),
		Images:     flags.StringSlice("image"),
		Summary:    flags.Bool("summary"),
		Quiet:      flags.Bool("quiet"),
	}

	f, err := fleet.Load(opts.ConfigPath)
	if err != nil {
		logger.Error().Err(err).Str("config", opts.ConfigPath).Msg("failed to load fleet config")
		os.Exit(1)
	}

	images, err := resolveImageOverrides(opts.Images)
	if err != nil {
		logger.Error().Err(err).Msg("invalid image override")
		os.Exit(1)
	}

	l := layout.Generate(f, images)
	l.WriteIssues(os.Stderr)
	if l.NumErrors() > 0 {
		os.Exit(1)
	}

	if opts.Summary && !opts.Quiet {
		l.WriteSummary(os.Stdout)
	}

	if opts.OutputDir != "" {
		if err := writeLayouts(l, f, opts.OutputDir); err != nil {
			logger.Error().Err(err).Msg("failed to write layout files")
			os.Exit(1)
		}
	}
}

// resolveImageOverrides applies role=image flags on top of the built-in
// default image set.
func resolveImageOverrides(overrides []string) (map[string]string, error) {
	images := fleet.DefaultImages()
	for _, override := range overrides {
		role, image, ok := strings.Cut(override, "=")
		if !ok || role == "" || image == "" {
			return nil, fmt.Errorf("image override %q is not of the form role=image", override)
		}
		if !fleet.IsServiceRole(role) {
			return nil, fmt.Errorf("image override names unknown service role %q", role)
		}
		images[role] = image
	}
	return images, nil
}

func writeLayouts(l *layout.Layout, f *fleet.Fleet, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, az := range f.AZNames {
		data, err := l.Serialize(az)
		if err != nil {
			return fmt.Errorf("serialize az %s: %w", az, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("layout-%s.json", az))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		logger.Info().Str("az", az).Str("path", path).Msg("wrote az layout")
	}
	return nil
}
