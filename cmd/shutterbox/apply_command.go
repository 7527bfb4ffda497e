package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shutterbox/internal/workflow"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "File pending ready entries from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runner, err := workflow.New(cfg, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			report, err := runner.ApplyPending(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.Apply.Total() == 0 {
				fmt.Fprintln(out, "Nothing pending; the library is up to date")
				return nil
			}
			fmt.Fprintf(out, "Apply (%s): %d applied, %d failed, %d skipped\n",
				cfg.Apply.Mode, report.Apply.Applied, report.Apply.Failed, report.Apply.Skipped)
			fmt.Fprintf(out, "Completed in %s\n", report.Elapsed.Round(time.Millisecond))
			return nil
		},
	}
}
