package summary

// This file contains the per test instance status and the console summary
// printed at the end of a run.

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/tongsgo/tongs/model"
)

// Status is the outcome of a test instance as shown in summaries.
type Status string

const (
	StatusPass Status = "PASS"
	// StatusWarn marks a pass that needed retries.
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// InstanceStatus classifies a result for the summary.
func InstanceStatus(r *model.TestCaseRunResult) Status {
	if r.Status.IsFailure() {
		return StatusFail
	}
	if r.TotalFailureCount() > 0 {
		return StatusWarn
	}
	return StatusPass
}

// DeviceRuns summarizes results per pool and device, in first seen order.
func DeviceRuns(results []model.TestCaseRunResult) []model.DeviceRun {
	var runs []model.DeviceRun
	index := map[[2]string]int{}
	for i := range results {
		r := &results[i]
		key := [2]string{r.Pool.Name, r.Device.Serial}
		idx, ok := index[key]
		if !ok {
			idx = len(runs)
			index[key] = idx
			runs = append(runs, model.DeviceRun{Pool: r.Pool, Device: r.Device})
		}
		runs[idx].Summary.Add(r.Status)
	}
	return runs
}

// Total adds up the summaries of all device runs.
func Total(runs []model.DeviceRun) model.Summary {
	var total model.Summary
	for _, run := range runs {
		total.Merge(run.Summary)
	}
	return total
}

var (
	passColor = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

func statusColor(s Status) *color.Color {
	switch s {
	case StatusFail:
		return failColor
	case StatusWarn:
		return warnColor
	default:
		return passColor
	}
}

// Print writes a colored summary of results to w: one line per device, then
// the failed and flaky tests sorted by name.
func Print(w io.Writer, results []model.TestCaseRunResult) {
	runs := DeviceRuns(results)
	total := Total(runs)

	fmt.Fprintf(w, "\n=== Results (%d tests on %d devices) ===\n\n", total.Total, len(runs))
	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s  passed=%d failed=%d errors=%d skipped=%d\n",
			dimColor.Sprint(run.Pool.Name), run.Device.Serial,
			run.Summary.Passed, run.Summary.Failed, run.Summary.Errors, run.Summary.Skipped)
	}

	var notable []*model.TestCaseRunResult
	for i := range results {
		if InstanceStatus(&results[i]) != StatusPass {
			notable = append(notable, &results[i])
		}
	}
	sort.SliceStable(notable, func(i, j int) bool {
		return notable[i].TestCase.Identifier().String() < notable[j].TestCase.Identifier().String()
	})
	if len(notable) > 0 {
		fmt.Fprintln(w)
	}
	for _, r := range notable {
		s := InstanceStatus(r)
		fmt.Fprintf(w, "%s %s on %s (failures=%d)\n",
			statusColor(s).Sprintf("%-4s", s), r.TestCase.Identifier(), r.Device.Serial, r.TotalFailureCount())
		for _, st := range r.StackTraces {
			if st.ErrorType != "" {
				fmt.Fprintf(w, "     %s: %s\n", st.ErrorType, st.ErrorMessage)
			}
		}
	}

	fmt.Fprintln(w)
	if total.Succeeded() {
		passColor.Fprintln(w, "✓ All tests passed")
	} else {
		failColor.Fprintf(w, "✗ %d failed, %d errors\n", total.Failed, total.Errors)
	}
}
