package summary

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tongsgo/tongs/model"
	"github.com/tongsgo/tongs/report"
)

// LogAttacher writes the failure traces of a result as a raw log file and
// attaches it, together with a rendered failure description, to the result.
type LogAttacher struct {
	OutputDir string
}

func (a *LogAttacher) HandleResult(result *model.TestCaseRunResult) error {
	if len(result.StackTraces) == 0 {
		return nil
	}
	fm := report.NewFileManager(a.OutputDir, result.Pool.Name, result.Device.Serial,
		result.TestCase.TestClass, result.TestCase.TestMethod)
	w := report.NewRawLogWriter(fm.File(report.FileTypeRawLog, ""))

	var messages []report.LogMessage
	for _, st := range result.StackTraces {
		for _, line := range strings.Split(strings.TrimRight(st.FullTrace, "\n"), "\n") {
			messages = append(messages, report.LogMessage{
				Time:    result.EndTimestampUTC,
				Level:   "E",
				Tag:     "TestRunner",
				Message: strings.TrimRight(line, "\r"),
			})
		}
	}
	if err := w.WriteLogs(messages); err != nil {
		return err
	}
	result.Data = append(result.Data, w.ReportData("Log"))

	html, err := report.MarkdownHTML("Failure", failureMarkdown(result))
	if err != nil {
		return err
	}
	result.Data = append(result.Data, html)
	return nil
}

func failureMarkdown(r *model.TestCaseRunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", r.TestCase.Identifier())
	fmt.Fprintf(&b, "Status **%s** on `%s` (%s), %d failures in total.\n\n",
		r.Status, r.Device.Serial, r.Device.LongName(), r.TotalFailureCount())
	for _, st := range r.StackTraces {
		fmt.Fprintf(&b, "```\n%s\n```\n\n", strings.TrimRight(st.FullTrace, "\n"))
	}
	return b.String()
}

func newLogAttacher(outputDir string) (*LogAttacher, error) {
	if outputDir == "" {
		return nil, errors.New("raw logs need an output directory")
	}
	return &LogAttacher{OutputDir: outputDir}, nil
}
