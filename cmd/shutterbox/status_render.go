package main

import (
	"fmt"
	"io"

	"shutterbox/internal/config"
	"shutterbox/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusError
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

// printEnvironment renders per-check health lines for the paths and settings
// an import run depends on. The checks mirror the run preflight, so a failing
// line here is a run that would refuse to start.
func printEnvironment(out io.Writer, cfg *config.Config, configPath string, configExists bool, colorize bool) {
	fmt.Fprintln(out, "Environment:")
	fmt.Fprintln(out, configStatusLine(configPath, configExists, colorize))
	for _, result := range []preflight.Result{
		preflight.CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		preflight.CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir),
		preflight.CheckApplyMode(cfg.Apply.Mode),
	} {
		fmt.Fprintln(out, checkStatusLine(result, colorize))
	}
}

func configStatusLine(path string, exists bool, colorize bool) string {
	if !exists {
		return renderStatusLine("Config", statusInfo, fmt.Sprintf("%s (not found, defaults in effect)", path), colorize)
	}
	return renderStatusLine("Config", statusOK, path, colorize)
}

func checkStatusLine(result preflight.Result, colorize bool) string {
	kind := statusError
	if result.Passed {
		kind = statusOK
	}
	return renderStatusLine(result.Name, kind, result.Detail, colorize)
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText = fmt.Sprintf("%s %s", statusText, message)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}
