package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"shutterbox/internal/watch"
	"shutterbox/internal/workflow"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Import removable media automatically as it appears",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Watch.Enabled {
				return errors.New("watch mode is disabled; set watch.enabled = true in the configuration")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			// Each detected card gets its own runner so the ledger and
			// run lock are held only for the duration of that import.
			importer := func(runCtx context.Context, sourceDir string) error {
				runner, err := workflow.New(cfg, logger)
				if err != nil {
					return err
				}
				defer runner.Close()
				_, err = runner.Run(runCtx, sourceDir)
				return err
			}

			return watch.New(cfg, logger, importer).Run(cmd.Context())
		},
	}
}
