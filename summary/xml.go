// Package summary writes per test JUnit XML files, timing profiles and the
// console summary of a run.
package summary

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tongsgo/tongs/model"
	"github.com/tongsgo/tongs/report"
)

// TimestampLayout is the layout of the testsuite timestamp attribute.
const TimestampLayout = "2006-01-02T15:04:05"

const lineSeparator = "\n"

// XMLWriter writes one JUnit testsuite file per test case.
type XMLWriter struct {
	OutputDir string
}

// HandleResult writes the result below OutputDir.
func (w *XMLWriter) HandleResult(result *model.TestCaseRunResult) error {
	fm := report.NewFileManager(w.OutputDir, result.Pool.Name, result.Device.Serial,
		result.TestCase.TestClass, result.TestCase.TestMethod)
	path, err := fm.Create(report.FileTypeTest, "")
	if err != nil {
		return err
	}
	return w.WriteXML(path, result)
}

// WriteXML writes result to path. The result must be finished.
func (w *XMLWriter) WriteXML(path string, result *model.TestCaseRunResult) error {
	total, err := result.TimeTakenSeconds()
	if err != nil {
		return fmt.Errorf("cannot write XML for %s: %w", result.TestCase.Identifier(), err)
	}

	props := model.Properties{
		{Key: "pool", Value: result.Pool.Name},
		{Key: "device", Value: result.Device.LongName()},
		{Key: "deviceId", Value: result.Device.Serial},
		{Key: "totalFailureCount", Value: strconv.Itoa(result.TotalFailureCount())},
	}.Merge(result.AdditionalProperties)

	traces := make([]string, 0, len(result.StackTraces))
	for _, st := range result.StackTraces {
		traces = append(traces, st.FullTrace)
	}

	doc := suite{
		status:    result.Status,
		host:      result.Device.Host,
		class:     result.TestCase.TestClass,
		method:    result.TestCase.TestMethod,
		props:     props,
		traces:    traces,
		timestamp: FormatTimestamp(result.StartTimestampUTC),
		totalTime: FormatSeconds(total),
		netTime:   FormatSeconds(result.TimeNetTakenSeconds()),
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create XML file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := bw.WriteString(doc.render()); err != nil {
		return fmt.Errorf("failed to write XML file: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write XML file: %w", err)
	}
	return f.Close()
}

type suite struct {
	status    model.ResultStatus
	host      string
	class     string
	method    string
	props     model.Properties
	traces    []string
	timestamp string
	totalTime string
	netTime   string
}

// counts returns the child element name and the errors, failures and
// skipped counters for the status.
func counts(status model.ResultStatus) (string, int, int, int) {
	switch status {
	case model.StatusFail:
		return "failure", 0, 1, 0
	case model.StatusError:
		return "error", 1, 0, 0
	case model.StatusIgnored, model.StatusAssumptionFailed:
		return "skipped", 0, 0, 1
	default:
		return "", 0, 0, 0
	}
}

func (s suite) render() string {
	element, errs, failures, skipped := counts(s.status)
	class := EscapeXML10(s.class)
	method := EscapeXML10(s.method)

	var b strings.Builder
	b.WriteString("<?xml version='1.0' encoding='UTF-8' ?>" + lineSeparator)
	fmt.Fprintf(&b, `<testsuite name="%s" tests="1" failures="%d" errors="%d" skipped="%d" time="%s" timestamp="%s" hostname="%s">`,
		class, failures, errs, skipped, EscapeXML10(s.totalTime), EscapeXML10(s.timestamp), EscapeXML10(s.host))
	b.WriteString(lineSeparator)

	if len(s.props) == 0 {
		b.WriteString("  <properties/>" + lineSeparator)
	} else {
		b.WriteString("  <properties>" + lineSeparator)
		for _, p := range s.props {
			fmt.Fprintf(&b, `    <property name="%s" value="%s" />`, EscapeXML10(p.Key), EscapeXML10(p.Value))
			b.WriteString(lineSeparator)
		}
		b.WriteString("  </properties>" + lineSeparator)
	}

	if element == "" {
		fmt.Fprintf(&b, `  <testcase name="%s" classname="%s" time="%s" />`, method, class, EscapeXML10(s.netTime))
		b.WriteString(lineSeparator)
	} else {
		fmt.Fprintf(&b, `  <testcase name="%s" classname="%s" time="%s">`, method, class, EscapeXML10(s.netTime))
		b.WriteString(lineSeparator)
		for _, trace := range s.traces {
			fmt.Fprintf(&b, "    <%s>%s</%s>", element, EscapeXML10(trace), element)
			b.WriteString(lineSeparator)
		}
		b.WriteString("</testcase>" + lineSeparator)
	}
	b.WriteString("</testsuite>")
	return b.String()
}

// EscapeXML10 escapes text for XML 1.0 attributes and content. The five
// predefined entities are used, characters XML 1.0 does not allow are
// dropped and the C1 control range is written as numeric references.
func EscapeXML10(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == utf8.RuneError && size == 1:
			// invalid UTF-8
		case r == '&':
			b.WriteString("&amp;")
		case r == '<':
			b.WriteString("&lt;")
		case r == '>':
			b.WriteString("&gt;")
		case r == '"':
			b.WriteString("&quot;")
		case r == '\'':
			b.WriteString("&apos;")
		case r < 0x20 && r != '\t' && r != '\n' && r != '\r':
		case r == 0xfffe || r == 0xffff:
		case r >= 0x7f && r <= 0x84, r >= 0x86 && r <= 0x9f:
			fmt.Fprintf(&b, "&#%d;", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatSeconds formats seconds with one to six fraction digits and no
// grouping.
func FormatSeconds(seconds float64) string {
	s := strconv.FormatFloat(seconds, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// FormatTimestamp formats t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses timestamps written by FormatTimestamp. Seconds are
// optional and the 'T' separator is case insensitive. Out of range fields are
// rejected.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.Replace(s, "t", "T", 1)
	layouts := []string{TimestampLayout, "2006-01-02T15:04"}
	var firstErr error
	for _, layout := range layouts {
		if len(s) != len(layout) {
			continue
		}
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("unexpected length %d", len(s))
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, firstErr)
}
