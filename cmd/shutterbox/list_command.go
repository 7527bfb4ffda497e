package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shutterbox/internal/ledger"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := make([]ledger.Status, 0, len(statusFilters))
			for _, raw := range statusFilters {
				parsed, ok := ledger.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (choose from ready, duplicate, ignored, failed)", raw)
				}
				statuses = append(statuses, parsed)
			}

			store, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Ledger is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				detail := ""
				switch entry.Status {
				case ledger.StatusReady:
					detail = displayPath(cfg.Paths.LibraryDir, entry.DestinationPath)
				case ledger.StatusFailed:
					detail = entry.ErrorMessage
				}
				rows = append(rows, []string{
					strconv.FormatInt(entry.ID, 10),
					entry.SourcePath,
					string(entry.Status),
					formatTimestamp(entry.CapturedAt),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "File", "Status", "Captured", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				shouldStyle(out),
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&statusFilters, "status", "s", nil, "Filter by entry status (repeatable)")
	return cmd
}
