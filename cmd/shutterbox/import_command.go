package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shutterbox/internal/config"
	"shutterbox/internal/workflow"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		move             bool
		link             bool
		deleteDuplicates bool
		depth            int
		followSymlinks   bool
		target           string
	)

	cmd := &cobra.Command{
		Use:   "import SOURCE",
		Short: "Classify a source tree and file the images into the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if move && link {
				return errors.New("--move and --link are mutually exclusive")
			}
			cfg, err := ctx.runConfig()
			if err != nil {
				return err
			}
			if move {
				cfg.Apply.Mode = config.ApplyModeMove
			}
			if link {
				cfg.Apply.Mode = config.ApplyModeLink
			}
			if deleteDuplicates {
				cfg.Classify.DeleteDuplicates = true
			}
			if err := applyScanFlags(cmd, cfg, depth, followSymlinks); err != nil {
				return err
			}
			if err := applyTargetFlag(cfg, target); err != nil {
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

			report, err := runner.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRunReport(cmd.OutOrStdout(), report, cfg.Apply.Mode)
			return nil
		},
	}

	cmd.Flags().BoolVar(&move, "move", false, "Move files into the library instead of copying")
	cmd.Flags().BoolVar(&link, "link", false, "Symlink library entries to the source instead of copying")
	cmd.Flags().BoolVar(&deleteDuplicates, "delete-duplicates", false, "Delete source files classified as duplicates")
	cmd.Flags().IntVar(&depth, "depth", 0, "Limit traversal depth (1 scans only the top level, 0 is unlimited)")
	cmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "Traverse symbolic links while scanning")
	cmd.Flags().StringVar(&target, "target", "", "Library directory override")

	return cmd
}

// applyScanFlags layers traversal flag overrides onto the scan configuration.
// Depth 1 disables recursion outright; any other explicit depth enables it.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config, depth int, followSymlinks bool) error {
	if cmd.Flags().Changed("depth") {
		if depth < 0 {
			return fmt.Errorf("depth must be 0 or greater, got %d", depth)
		}
		cfg.Scan.MaxDepth = depth
		cfg.Scan.Recursive = depth != 1
	}
	if followSymlinks {
		cfg.Scan.FollowSymlinks = true
	}
	return nil
}

func applyTargetFlag(cfg *config.Config, target string) error {
	if target == "" {
		return nil
	}
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return fmt.Errorf("resolve target: %w", err)
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return fmt.Errorf("create target %q: %w", expanded, err)
	}
	cfg.Paths.LibraryDir = expanded
	return nil
}
