// Package runner turns instrumentation runs into test case results: the run
// listener protocol, the result aggregator, the device side command
// emulator and the raw instrumentation output parser.
package runner

import (
	"time"

	"github.com/tongsgo/tongs/model"
)

// RunListener receives the lifecycle events of one instrumentation run on
// one device. Events of a run are delivered sequentially:
//
//	TestRunStarted
//	  (TestStarted [TestFailed|TestAssumptionFailure|TestIgnored]* TestEnded)*
//	[TestRunFailed] [TestRunStopped] TestRunEnded
type RunListener interface {
	TestRunStarted(runName string, testCount int) error
	TestStarted(id model.TestIdentifier) error
	TestFailed(id model.TestIdentifier, trace string) error
	TestAssumptionFailure(id model.TestIdentifier, trace string) error
	TestIgnored(id model.TestIdentifier) error
	TestEnded(id model.TestIdentifier, metrics map[string]string) error
	TestRunFailed(message string) error
	TestRunStopped(elapsed time.Duration) error
	TestRunEnded(elapsed time.Duration, metrics map[string]string) error
}

// NopListener ignores all events. Embed it to implement only some of them.
type NopListener struct{}

func (NopListener) TestRunStarted(string, int) error { return nil }
func (NopListener) TestStarted(model.TestIdentifier) error { return nil }
func (NopListener) TestFailed(model.TestIdentifier, string) error { return nil }
func (NopListener) TestAssumptionFailure(model.TestIdentifier, string) error { return nil }
func (NopListener) TestIgnored(model.TestIdentifier) error { return nil }
func (NopListener) TestEnded(model.TestIdentifier, map[string]string) error { return nil }
func (NopListener) TestRunFailed(string) error { return nil }
func (NopListener) TestRunStopped(time.Duration) error { return nil }
func (NopListener) TestRunEnded(time.Duration, map[string]string) error { return nil }

var _ RunListener = NopListener{}
