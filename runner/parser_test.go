package runner

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tongsgo/tongs/model"
)

const passAndFailOutput = `INSTRUMENTATION_STATUS: numtests=2
INSTRUMENTATION_STATUS: stream=
com.example.FooTest:
INSTRUMENTATION_STATUS: id=AndroidJUnitRunner
INSTRUMENTATION_STATUS: test=testOk
INSTRUMENTATION_STATUS: class=com.example.FooTest
INSTRUMENTATION_STATUS: current=1
INSTRUMENTATION_STATUS_CODE: 1
INSTRUMENTATION_STATUS: numtests=2
INSTRUMENTATION_STATUS: stream=.
INSTRUMENTATION_STATUS: id=AndroidJUnitRunner
INSTRUMENTATION_STATUS: test=testOk
INSTRUMENTATION_STATUS: class=com.example.FooTest
INSTRUMENTATION_STATUS: current=1
INSTRUMENTATION_STATUS: coverage=42
INSTRUMENTATION_STATUS_CODE: 0
INSTRUMENTATION_STATUS: numtests=2
INSTRUMENTATION_STATUS: stream=
INSTRUMENTATION_STATUS: id=AndroidJUnitRunner
INSTRUMENTATION_STATUS: test=testFail
INSTRUMENTATION_STATUS: class=com.example.FooTest
INSTRUMENTATION_STATUS: current=2
INSTRUMENTATION_STATUS_CODE: 1
INSTRUMENTATION_STATUS: numtests=2
INSTRUMENTATION_STATUS: stream=
Error in testFail(com.example.FooTest):
java.lang.AssertionError: expected:<1> but was:<2>
INSTRUMENTATION_STATUS: id=AndroidJUnitRunner
INSTRUMENTATION_STATUS: test=testFail
INSTRUMENTATION_STATUS: class=com.example.FooTest
INSTRUMENTATION_STATUS: stack=java.lang.AssertionError: expected:<1> but was:<2>
	at org.junit.Assert.fail(Assert.java:88)
	at com.example.FooTest.testFail(FooTest.java:12)

INSTRUMENTATION_STATUS: current=2
INSTRUMENTATION_STATUS_CODE: -2
INSTRUMENTATION_RESULT: stream=

Time: 1,001.5

FAILURES!!!
Tests run: 2,  Failures: 1

INSTRUMENTATION_CODE: -1
`

func parseOutput(t *testing.T, output string, listener RunListener) {
	t.Helper()
	p := NewOutputParser(zerolog.Nop(), "run", listener)
	require.NoError(t, p.Parse(strings.NewReader(output)))
}

func TestOutputParserPassAndFail(t *testing.T) {
	rec := &recorder{}
	parseOutput(t, passAndFailOutput, rec)

	require.Equal(t, []string{
		"runStarted run 2",
		"started com.example.FooTest#testOk",
		"ended com.example.FooTest#testOk map[coverage:42]",
		"started com.example.FooTest#testFail",
		"failed com.example.FooTest#testFail java.lang.AssertionError: expected:<1> but was:<2>\n" +
			"\tat org.junit.Assert.fail(Assert.java:88)\n" +
			"\tat com.example.FooTest.testFail(FooTest.java:12)\n",
		"ended com.example.FooTest#testFail",
		"runEnded 16m41.5s",
	}, rec.events)
}

func TestOutputParserStatusCodes(t *testing.T) {
	status := func(test, code string) string {
		return "INSTRUMENTATION_STATUS: class=com.example.FooTest\n" +
			"INSTRUMENTATION_STATUS: test=" + test + "\n" +
			"INSTRUMENTATION_STATUS: stack=org.junit.AssumptionViolatedException: no\n" +
			"INSTRUMENTATION_STATUS_CODE: " + code + "\n"
	}
	output := status("a", "1") + status("a", "-1") +
		status("b", "1") + status("b", "-3") +
		status("c", "1") + status("c", "2") + status("c", "-4") +
		"INSTRUMENTATION_CODE: -1\n"

	rec := &recorder{}
	parseOutput(t, output, rec)
	require.Equal(t, []string{
		"runStarted run 0",
		"started com.example.FooTest#a",
		"failed com.example.FooTest#a org.junit.AssumptionViolatedException: no",
		"ended com.example.FooTest#a",
		"started com.example.FooTest#b",
		"ignored com.example.FooTest#b",
		"ended com.example.FooTest#b",
		"started com.example.FooTest#c",
		"assumptionFailure com.example.FooTest#c org.junit.AssumptionViolatedException: no",
		"ended com.example.FooTest#c",
		"runEnded 0s",
	}, rec.events)
}

func TestOutputParserRunFailures(t *testing.T) {
	started := "INSTRUMENTATION_STATUS: numtests=3\n" +
		"INSTRUMENTATION_STATUS: class=com.example.FooTest\n" +
		"INSTRUMENTATION_STATUS: test=testBar\n" +
		"INSTRUMENTATION_STATUS_CODE: 1\n"

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "missing instrumentation code",
			output: started,
			want:   "runFailed Test run failed to complete. Expected 3 tests, received 0",
		},
		{
			name:   "short message",
			output: started + "INSTRUMENTATION_RESULT: shortMsg=Process crashed.\nINSTRUMENTATION_CODE: 0\n",
			want:   "runFailed Process crashed.",
		},
		{
			name:   "instrumentation failed",
			output: "INSTRUMENTATION_FAILED: com.example.test/Runner\n",
			want:   "runFailed com.example.test/Runner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			parseOutput(t, tt.output, rec)
			require.Contains(t, rec.events, tt.want)
			require.Equal(t, "runEnded 0s", rec.events[len(rec.events)-1])
		})
	}
}

func TestOutputParserFeedsAggregator(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	agg := newTestAggregator(clock)
	crashed := "INSTRUMENTATION_STATUS: numtests=1\n" +
		"INSTRUMENTATION_STATUS: class=com.example.FooTest\n" +
		"INSTRUMENTATION_STATUS: test=testBar\n" +
		"INSTRUMENTATION_STATUS_CODE: 1\n" +
		"INSTRUMENTATION_RESULT: shortMsg=Process crashed.\n" +
		"INSTRUMENTATION_CODE: 0\n"

	parseOutput(t, crashed, NewBroadcaster(nil, agg))

	results := agg.Results()
	require.Len(t, results, 1)
	require.Equal(t, model.StatusError, results[0].Status)
	require.Contains(t, results[0].StackTraces[0].FullTrace, "Reason: 'Process crashed.'")
}
