package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shutterbox/internal/ledger"
	"shutterbox/internal/workflow"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var (
		depth          int
		followSymlinks bool
		target         string
	)

	cmd := &cobra.Command{
		Use:   "plan SOURCE",
		Short: "Classify a source tree without touching the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.runConfig()
			if err != nil {
				return err
			}
			if err := applyScanFlags(cmd, cfg, depth, followSymlinks); err != nil {
				return err
			}
			if err := applyTargetFlag(cfg, target); err != nil {
				return err
			}
			// A plan never mutates the source tree; duplicate deletion
			// waits for a real import run.
			cfg.Classify.DeleteDuplicates = false

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runner, err := workflow.New(cfg, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			report, err := runner.Plan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			entries, err := runner.Store().ListRun(cmd.Context(), report.RunID)
			if err != nil {
				return fmt.Errorf("list planned entries: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(entries) > 0 {
				headers := []string{"File", "Outcome", "Detail"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft}
				rows := planRows(report.SourceDir, report.TargetDir, entries)
				fmt.Fprintln(out, renderTable(headers, rows, aligns, shouldStyle(out)))
			}
			printRunReport(out, report, cfg.Apply.Mode)
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "Limit traversal depth (1 scans only the top level, 0 is unlimited)")
	cmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "Traverse symbolic links while scanning")
	cmd.Flags().StringVar(&target, "target", "", "Library directory override")

	return cmd
}

func planRows(sourceDir, targetDir string, entries []*ledger.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		detail := ""
		switch entry.Status {
		case ledger.StatusReady:
			detail = displayPath(targetDir, entry.DestinationPath)
		case ledger.StatusFailed:
			detail = entry.ErrorMessage
		}
		rows = append(rows, []string{
			displayPath(sourceDir, entry.SourcePath),
			string(entry.Status),
			detail,
		})
	}
	return rows
}
