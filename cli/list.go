package cli

// This file contains the list command for displaying previous runs.

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tongsgo/tongs/history"
	"github.com/tongsgo/tongs/model"
)

func (a *App) list(ctx *cli.Context) error {
	source := model.RunSource(ctx.String("source"))
	limit := ctx.Int("limit")

	entries, err := history.LoadEntries(a.logger, a.cfg.HistoryDir)
	if errors.Is(err, history.ErrNoHistory) {
		fmt.Fprintln(a.stdout, "No runs recorded")
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	var filtered []history.Entry
	for _, entry := range entries {
		if source == "" || entry.Run.Source == source {
			filtered = append(filtered, entry)
		}
	}

	if len(filtered) == 0 {
		if source != "" {
			fmt.Fprintf(a.stdout, "No runs found with source: %s\n", source)
		} else {
			fmt.Fprintln(a.stdout, "No runs recorded")
		}
		return nil
	}

	display := filtered
	if limit > 0 && limit < len(display) {
		display = display[:limit]
	}

	fmt.Fprintf(a.stdout, "\n=== History (%d total) ===\n\n", len(filtered))

	for _, entry := range display {
		run := entry.Run
		status := "✓"
		if !run.Summary.Succeeded() {
			status = "✗"
		}

		fmt.Fprintf(a.stdout, "%s  %s  [%s]  %s  id=%s\n",
			status,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Duration.Round(time.Millisecond),
			run.Source,
			shortRunID(run.ID))
		if len(run.Args) > 1 {
			fmt.Fprintf(a.stdout, "   Args: %s\n", strings.Join(run.Args[1:], " "))
		}
		if run.Instrumentation != nil && run.Instrumentation.TestPackage != "" {
			fmt.Fprintf(a.stdout, "   Package: %s\n", run.Instrumentation.TestPackage)
		}
		if run.Git != nil && run.Git.Commit != "" {
			fmt.Fprintf(a.stdout, "   Commit: %s (%s)\n", shortRunID(run.Git.Commit), run.Git.Branch)
		}
		fmt.Fprintf(a.stdout, "   Tests: %s on %d devices\n", formatSummary(run.Summary), len(run.Devices))
		for _, artifact := range run.Artifacts {
			if artifact.Type == model.ArtifactTypeTimingProfile {
				fmt.Fprintf(a.stdout, "   %s: %s (%.1f KB)\n", artifact.Type, artifact.File, float64(artifact.Size)/1024)
			}
		}
		fmt.Fprintf(a.stdout, "   %s\n\n", entry.FullPath)
	}

	fmt.Fprintf(a.stdout, "View run: %s view <ID>\n", AppName)
	return nil
}

func formatSummary(s model.Summary) string {
	return fmt.Sprintf("total=%d passed=%d failed=%d errors=%d skipped=%d",
		s.Total, s.Passed, s.Failed, s.Errors, s.Skipped)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
