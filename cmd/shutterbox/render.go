package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shutterbox/internal/ledger"
	"shutterbox/internal/workflow"
)

// printRunReport writes the per-status outcome table and run summary lines
// shared by the import and plan commands.
func printRunReport(out io.Writer, report *workflow.Report, mode string) {
	styled := shouldStyle(out)

	fmt.Fprintf(out, "%s (run %s)\n", report.Label, report.RunID)
	fmt.Fprintf(out, "  Source: %s\n", report.SourceDir)
	fmt.Fprintf(out, "  Target: %s\n", report.TargetDir)
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(ledger.AllStatuses())+1)
	for _, status := range ledger.AllStatuses() {
		rows = append(rows, []string{string(status), strconv.Itoa(report.Counts[status])})
	}
	rows = append(rows, []string{"scanned", strconv.Itoa(report.Scanned)})
	fmt.Fprintln(out, renderTable([]string{"Outcome", "Files"}, rows, []columnAlignment{alignLeft, alignRight}, styled))

	if report.Undated > 0 {
		fmt.Fprintf(out, "%d without a capture time, filed under the undated prefix\n", report.Undated)
	}
	if report.ReclaimedBytes > 0 {
		fmt.Fprintf(out, "Reclaimed %s by deleting duplicate sources\n", formatBytes(report.ReclaimedBytes))
	}
	if report.Applied {
		fmt.Fprintf(out, "Apply (%s): %d applied, %d failed, %d skipped\n",
			mode, report.Apply.Applied, report.Apply.Failed, report.Apply.Skipped)
	} else if ready := report.Ready(); ready > 0 {
		fmt.Fprintf(out, "%d ready; run `shutterbox apply` to file them\n", ready)
	}
	if report.Elapsed > 0 {
		fmt.Fprintf(out, "Completed in %s\n", report.Elapsed.Round(time.Millisecond))
	}
}

// displayPath shortens an absolute entry path to its position under root when
// it sits inside root, keeping tables readable for deep source trees.
func displayPath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func formatBytes(value int64) string {
	const (
		kiB = 1024
		miB = kiB * 1024
		giB = miB * 1024
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
