package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"shutterbox/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ledger totals and the most recent run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if err := printStatus(cmd.Context(), out, store); err != nil {
				return err
			}
			fmt.Fprintln(out)
			printEnvironment(out, cfg, ctx.configPath, ctx.configExists, shouldStyle(out))
			return nil
		},
	}
}

func printStatus(ctx context.Context, out io.Writer, store *ledger.Store) error {
	styled := shouldStyle(out)

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read ledger stats: %w", err)
	}
	applied, failed, err := store.ApplyStats(ctx)
	if err != nil {
		return fmt.Errorf("read apply stats: %w", err)
	}

	total := 0
	rows := make([][]string, 0, len(ledger.AllStatuses())+1)
	for _, status := range ledger.AllStatuses() {
		rows = append(rows, []string{string(status), strconv.Itoa(stats[status])})
		total += stats[status]
	}
	rows = append(rows, []string{"total", strconv.Itoa(total)})

	fmt.Fprintf(out, "Ledger: %s\n", store.Path())
	fmt.Fprintln(out, renderTable([]string{"Status", "Entries"}, rows, []columnAlignment{alignLeft, alignRight}, styled))
	fmt.Fprintf(out, "Applies: %d succeeded, %d failed\n", applied, failed)
	if pending := stats[ledger.StatusReady] - applied; pending > 0 {
		fmt.Fprintf(out, "%d ready entries pending; run `shutterbox apply`\n", pending)
	}

	run, err := store.LastRun(ctx)
	if err != nil {
		return fmt.Errorf("read last run: %w", err)
	}
	fmt.Fprintln(out)
	if run == nil {
		fmt.Fprintln(out, "No runs recorded")
	} else {
		fmt.Fprintf(out, "Last run: %s (%s)\n", run.Label, run.ID)
		fmt.Fprintf(out, "  Source:   %s\n", run.SourceDir)
		fmt.Fprintf(out, "  Target:   %s\n", run.TargetDir)
		fmt.Fprintf(out, "  Started:  %s\n", formatTimestamp(run.StartedAt))
		if run.FinishedAt != nil {
			fmt.Fprintf(out, "  Finished: %s\n", formatTimestamp(*run.FinishedAt))
		} else {
			fmt.Fprintln(out, "  Finished: - (interrupted or still running)")
		}
		fmt.Fprintf(out, "  Applied:  %s\n", yesNo(run.Applied))
	}

	failures, err := store.ApplyFailures(ctx)
	if err != nil {
		return fmt.Errorf("read apply failures: %w", err)
	}
	if len(failures) > 0 {
		failureRows := make([][]string, 0, len(failures))
		for _, record := range failures {
			failureRows = append(failureRows, []string{
				record.SourcePath,
				formatTimestamp(record.AppliedAt),
				record.ErrorMessage,
			})
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Apply failures (%d):\n", len(failures))
		fmt.Fprintln(out, renderTable([]string{"File", "At", "Error"}, failureRows, []columnAlignment{alignLeft, alignLeft, alignLeft}, styled))
	}
	return nil
}
