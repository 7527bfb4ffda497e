package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shutterbox/internal/workflow"
)

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Erase the ledger's classification history",
		Long: `Clear removes every run, entry, and apply record from the ledger.

Photos already filed stay where they are; only the history backing duplicate
detection and pending-apply bookkeeping is erased. The next import treats
every file as new, including files the library already holds.`,
		Args: cobra.NoArgs,
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

			removed, err := runner.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear ledger: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d ledger entries\n", removed)
			return nil
		},
	}
}
