package summary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tongsgo/tongs/model"
)

func finishedResult(status model.ResultStatus, traces ...string) *model.TestCaseRunResult {
	start := time.Date(2024, 2, 29, 23, 59, 58, 0, time.UTC)
	r := &model.TestCaseRunResult{
		Pool:                  model.Pool{Name: "pool"},
		Device:                model.Device{Serial: "emulator-5554", ModelName: "Pixel", OSAPILevel: "22", Host: "host<1>"},
		TestCase:              model.TestCaseOf(model.TestIdentifier{ClassName: "com.example.FooTest", TestName: "test[a & b]"}),
		Status:                status,
		StartTimestampUTC:     start,
		EndTimestampUTC:       start.Add(1234500 * time.Microsecond),
		NetStartTimestampUTC:  start.Add(200 * time.Millisecond),
		NetEndTimestampUTC:    start.Add(1234500 * time.Microsecond),
		BaseTotalFailureCount: 1,
	}
	for _, trace := range traces {
		r.StackTraces = append(r.StackTraces, model.ParseStackTrace(trace))
	}
	return r
}

func writeXML(t *testing.T, r *model.TestCaseRunResult) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "result.xml")
	require.NoError(t, (&XMLWriter{}).WriteXML(path, r))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestWriteXMLPass(t *testing.T) {
	r := finishedResult(model.StatusPass)
	r.AdditionalProperties = model.Properties{{Key: "pool", Value: "override"}, {Key: "extra", Value: `"quoted"`}}

	want := `<?xml version='1.0' encoding='UTF-8' ?>
<testsuite name="com.example.FooTest" tests="1" failures="0" errors="0" skipped="0" time="1.234" timestamp="2024-02-29T23:59:58" hostname="host&lt;1&gt;">
  <properties>
    <property name="pool" value="override" />
    <property name="device" value="Pixel - 22" />
    <property name="deviceId" value="emulator-5554" />
    <property name="totalFailureCount" value="1" />
    <property name="extra" value="&quot;quoted&quot;" />
  </properties>
  <testcase name="test[a &amp; b]" classname="com.example.FooTest" time="1.034" />
</testsuite>`
	require.Equal(t, want, writeXML(t, r))
}

func TestWriteXMLFailureKinds(t *testing.T) {
	tests := []struct {
		status  model.ResultStatus
		element string
		counts  string
	}{
		{model.StatusFail, "failure", `failures="1" errors="0" skipped="0"`},
		{model.StatusError, "error", `failures="0" errors="1" skipped="0"`},
		{model.StatusIgnored, "skipped", `failures="0" errors="0" skipped="1"`},
		{model.StatusAssumptionFailed, "skipped", `failures="0" errors="0" skipped="1"`},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			xml := writeXML(t, finishedResult(tt.status, "java.lang.AssertionError: 1 < 2\n\tat Foo", "second"))
			require.Contains(t, xml, tt.counts)
			require.Contains(t, xml, `time="1.034">`+"\n"+
				"    <"+tt.element+">java.lang.AssertionError: 1 &lt; 2\n\tat Foo</"+tt.element+">\n"+
				"    <"+tt.element+">second</"+tt.element+">\n"+
				"</testcase>")
		})
	}
}

func TestWriteXMLUnfinished(t *testing.T) {
	r := finishedResult(model.StatusPass)
	r.EndTimestampUTC = time.Time{}
	err := (&XMLWriter{}).WriteXML(filepath.Join(t.TempDir(), "x.xml"), r)
	require.ErrorIs(t, err, model.ErrNotFinished)
}

func TestXMLWriterHandleResult(t *testing.T) {
	dir := t.TempDir()
	r := finishedResult(model.StatusPass)
	require.NoError(t, (&XMLWriter{OutputDir: dir}).HandleResult(r))

	matches, err := filepath.Glob(filepath.Join(dir, "tests", "pool", "emulator-5554", "*.xml"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.True(t, strings.HasPrefix(filepath.Base(matches[0]), "com.example.FooTest#test_a___b_"))
}

func TestEscapeXML10(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: `<a href="x">'&'</a>`, want: "&lt;a href=&quot;x&quot;&gt;&apos;&amp;&apos;&lt;/a&gt;"},
		{in: "tab\tnl\ncr\r", want: "tab\tnl\ncr\r"},
		{in: "nul\x00bell\x07vt\x0b", want: "nulbellvt"},
		{in: "del\u007fnel\u0085c1\u0086", want: "del&#127;nel\u0085c1&#134;"},
		{in: "\ufffe\uffff", want: ""},
		{in: "bad\xffutf8", want: "badutf8"},
		{in: "non-ASCII ° ѱ ∆ 😀", want: "non-ASCII ° ѱ ∆ 😀"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, EscapeXML10(tt.in))
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{1.5, "1.5"},
		{1234.5, "1234.5"},
		{0.1234567, "0.123457"},
		{2.345, "2.345"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FormatSeconds(tt.in))
	}
}

func TestParseTimestamp(t *testing.T) {
	valid := []struct {
		in   string
		want time.Time
	}{
		{"2024-02-29T23:59:58", time.Date(2024, 2, 29, 23, 59, 58, 0, time.UTC)},
		{"2024-02-29t23:59:58", time.Date(2024, 2, 29, 23, 59, 58, 0, time.UTC)},
		{"2024-02-29T23:59", time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)},
	}
	for _, tt := range valid {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		require.True(t, tt.want.Equal(got), tt.in)
	}

	for _, in := range []string{
		"2023-02-29T10:00:00",
		"2024-13-01T10:00:00",
		"2024-04-31T10:00:00",
		"2024-01-01T24:00:00",
		"2024-01-01T10:60:00",
		"2024-01-01T10:00:60",
		"2024-01-01T9:00:00",
		"2024-01-01 10:00:00",
		"",
	} {
		_, err := ParseTimestamp(in)
		require.Error(t, err, in)
	}

	ts := time.Date(2024, 2, 29, 23, 59, 58, 0, time.FixedZone("x", -3600))
	parsed, err := ParseTimestamp(FormatTimestamp(ts))
	require.NoError(t, err)
	require.True(t, ts.Equal(parsed))
}
