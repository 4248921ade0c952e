package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/tongsgo/tongs/model"
)

// Broadcaster forwards every event to all listeners in registration order.
// Every listener is invoked even if an earlier one failed; the errors are
// joined and returned to the producer.
//
// The work finished hook runs once per run when TestRunEnded has been
// forwarded, also when a listener failed or panicked.
type Broadcaster struct {
	listeners      []RunListener
	onWorkFinished func() error
	finished       bool
}

var _ RunListener = (*Broadcaster)(nil)

// NewBroadcaster returns a broadcaster. onWorkFinished may be nil.
func NewBroadcaster(onWorkFinished func() error, listeners ...RunListener) *Broadcaster {
	return &Broadcaster{
		listeners:      listeners,
		onWorkFinished: onWorkFinished,
	}
}

func (b *Broadcaster) each(event string, fn func(RunListener) error) error {
	var errs []error
	for i, l := range b.listeners {
		if err := fn(l); err != nil {
			errs = append(errs, fmt.Errorf("listener %d (%T) failed on %s: %w", i, l, event, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Broadcaster) TestRunStarted(runName string, testCount int) error {
	b.finished = false
	return b.each("testRunStarted", func(l RunListener) error { return l.TestRunStarted(runName, testCount) })
}

func (b *Broadcaster) TestStarted(id model.TestIdentifier) error {
	return b.each("testStarted", func(l RunListener) error { return l.TestStarted(id) })
}

func (b *Broadcaster) TestFailed(id model.TestIdentifier, trace string) error {
	return b.each("testFailed", func(l RunListener) error { return l.TestFailed(id, trace) })
}

func (b *Broadcaster) TestAssumptionFailure(id model.TestIdentifier, trace string) error {
	return b.each("testAssumptionFailure", func(l RunListener) error { return l.TestAssumptionFailure(id, trace) })
}

func (b *Broadcaster) TestIgnored(id model.TestIdentifier) error {
	return b.each("testIgnored", func(l RunListener) error { return l.TestIgnored(id) })
}

func (b *Broadcaster) TestEnded(id model.TestIdentifier, metrics map[string]string) error {
	return b.each("testEnded", func(l RunListener) error { return l.TestEnded(id, metrics) })
}

func (b *Broadcaster) TestRunFailed(message string) error {
	return b.each("testRunFailed", func(l RunListener) error { return l.TestRunFailed(message) })
}

func (b *Broadcaster) TestRunStopped(elapsed time.Duration) error {
	return b.each("testRunStopped", func(l RunListener) error { return l.TestRunStopped(elapsed) })
}

func (b *Broadcaster) TestRunEnded(elapsed time.Duration, metrics map[string]string) (err error) {
	defer func() {
		if b.finished {
			return
		}
		b.finished = true
		if b.onWorkFinished == nil {
			return
		}
		if finishErr := b.onWorkFinished(); finishErr != nil {
			err = errors.Join(err, fmt.Errorf("work finished hook failed: %w", finishErr))
		}
	}()

	return b.each("testRunEnded", func(l RunListener) error { return l.TestRunEnded(elapsed, metrics) })
}
