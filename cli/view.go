package cli

// This file contains the view command for displaying a run from history.

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tongsgo/tongs/history"
	"github.com/tongsgo/tongs/model"
)

func removeFirstDashDash(in []string) []string {
	if len(in) > 0 && in[0] == "--" {
		return in[1:]
	}
	return in
}

func parseViewArgs(in []string) (idArg string, pprofArgs []string) {
	if len(in) == 0 {
		return "0", nil
	}

	if in[0] == "--" {
		return "0", in[1:]
	}

	// A negative index is "-" followed by digits, anything else starting
	// with "-" is a pprof flag.
	if len(in[0]) > 1 && in[0][0] == '-' {
		if _, err := strconv.ParseInt(in[0], 10, 64); err != nil {
			return "0", in
		}
	}

	return in[0], removeFirstDashDash(in[1:])
}

// selectEntry picks an entry by index (0 newest, -1 the one before) or by
// ID prefix. entries must be sorted newest first.
func selectEntry(entries []history.Entry, arg string) (history.Entry, error) {
	if len(entries) == 0 {
		return history.Entry{}, fmt.Errorf("no runs recorded")
	}
	parsed, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return history.Find(entries, strings.ToLower(arg))
	}
	if parsed > 0 {
		return history.Entry{}, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, etc.)", arg)
	}
	index := int(-parsed)
	if index >= len(entries) {
		return history.Entry{}, fmt.Errorf("index %s out of range (only %d runs recorded)", arg, len(entries))
	}
	return entries[index], nil
}

func (a *App) view(ctx *cli.Context) error {
	arg, pprofArgs := parseViewArgs(ctx.Args().Slice())

	entries, err := history.LoadEntries(a.logger, a.cfg.HistoryDir)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	entry, err := selectEntry(entries, arg)
	if err != nil {
		return err
	}

	a.displayRun(entry)

	for _, artifact := range entry.Run.Artifacts {
		if artifact.Type == model.ArtifactTypeTimingProfile && len(pprofArgs) > 0 {
			return a.displayProfile(entry.FullPath, artifact, pprofArgs)
		}
	}
	return nil
}

func (a *App) displayRun(entry history.Entry) {
	run := entry.Run
	w := a.stdout

	fmt.Fprintf(w, "=== Run: %s ===\n", shortRunID(run.ID))
	fmt.Fprintf(w, "Time: %s\n", run.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration: %s\n", run.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Source: %s\n", run.Source)
	if run.Instrumentation != nil {
		fmt.Fprintf(w, "Instrumentation: %s/%s\n", run.Instrumentation.TestPackage, run.Instrumentation.TestRunner)
	}
	if run.Git != nil {
		fmt.Fprintf(w, "Git Commit: %s (%s)\n", run.Git.Commit, run.Git.Branch)
	}
	fmt.Fprintf(w, "Tests: %s\n\n", formatSummary(run.Summary))

	for _, dev := range run.Devices {
		fmt.Fprintf(w, "%s/%s  %s\n", dev.Pool.Name, dev.Device.Serial, formatSummary(dev.Summary))
	}
	if len(run.Devices) > 0 {
		fmt.Fprintln(w)
	}

	for _, artifact := range run.Artifacts {
		fmt.Fprintf(w, "%-8s %s (%.1f KB)\n", artifact.Type, filepath.Join(entry.FullPath, artifact.File), float64(artifact.Size)/1024)
	}
}

func (a *App) displayProfile(runDir string, artifact model.Artifact, pprofArgs []string) error {
	profilePath := filepath.Join(runDir, artifact.File)

	args := []string{"tool", "pprof"}
	args = append(args, pprofArgs...)
	args = append(args, profilePath)

	cmd := exec.Command("go", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = a.stdout
	cmd.Stderr = os.Stderr
	cmd.Dir = runDir

	return cmd.Run()
}
