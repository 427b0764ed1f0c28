package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxidecomputer/zonepkg/internal/blob"
	"github.com/oxidecomputer/zonepkg/internal/cache"
	"github.com/oxidecomputer/zonepkg/internal/config"
	"github.com/oxidecomputer/zonepkg/internal/plan"
	"github.com/oxidecomputer/zonepkg/internal/target"
	"github.com/oxidecomputer/zonepkg/pkg/build"
	"github.com/oxidecomputer/zonepkg/pkg/progress"
)

func newBuildCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build every package selected by the target",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.manifestPath)
			if err != nil {
				return err
			}

			t, err := target.Parse(flags.targetStr)
			if err != nil {
				return fmt.Errorf("invalid --target: %w", err)
			}

			c, err := cache.New(flags.outputDir)
			if err != nil {
				return err
			}
			c.Disabled = flags.noCache

			p := &plan.Planner{Packages: cfg.Packages}
			batches := p.Batches(t)

			b := &build.Builder{
				OutputDir:   flags.outputDir,
				DownloadDir: flags.downloadDir,
				Target:      t,
				Version:     flags.version,
				Cache:       c,
				Fetcher:     &blob.Fetcher{BaseS3URL: flags.s3URL, BuildomatURL: flags.buildomatURL},
				Progress:    progress.NewLogProgress(cmd.Context()),
			}

			return b.BuildAll(cmd.Context(), cfg.Packages, batches)
		},
	}
}
