package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxidecomputer/zonepkg/internal/config"
	"github.com/oxidecomputer/zonepkg/internal/plan"
	"github.com/oxidecomputer/zonepkg/internal/target"
)

func newPlanCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the dependency-ordered build batches without building anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.manifestPath)
			if err != nil {
				return err
			}

			t, err := target.Parse(flags.targetStr)
			if err != nil {
				return fmt.Errorf("invalid --target: %w", err)
			}

			p := &plan.Planner{Packages: cfg.Packages}
			for i, batch := range p.Batches(t) {
				fmt.Printf("batch %d:\n", i)
				for _, name := range batch {
					fmt.Printf("  %s\n", name)
				}
			}
			return nil
		},
	}
}
