package runner

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tongsgo/tongs/model"
)

const incompleteTestReason = "Test failed to run to completion. Reason: '%s'. Check device logcat for details"

// ResultHandler consumes finished results, e.g. to write report files.
type ResultHandler interface {
	HandleResult(result *model.TestCaseRunResult) error
}

// ResultHandlerFunc adapts a function to ResultHandler.
type ResultHandlerFunc func(result *model.TestCaseRunResult) error

func (f ResultHandlerFunc) HandleResult(result *model.TestCaseRunResult) error {
	return f(result)
}

type pendingTest struct {
	id       model.TestIdentifier
	start    time.Time
	netStart time.Time
	status   model.ResultStatus
	traces   []model.StackTrace
}

// Aggregator builds one TestCaseRunResult per test from the events of a
// single device. It must receive the events of one run at a time; run one
// Aggregator per device.
type Aggregator struct {
	logger   zerolog.Logger
	pool     model.Pool
	device   model.Device
	now      func() time.Time
	base     map[model.TestIdentifier]int
	handlers []ResultHandler

	boundary   time.Time
	pending    []*pendingTest
	runFailure string
	results    []model.TestCaseRunResult
}

var _ RunListener = (*Aggregator)(nil)

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithClock replaces time.Now, timestamps are converted to UTC.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

// WithBaseFailureCounts sets the failures of earlier attempts per test.
func WithBaseFailureCounts(counts map[model.TestIdentifier]int) AggregatorOption {
	return func(a *Aggregator) { a.base = counts }
}

// WithResultHandlers registers handlers called for every finished result.
func WithResultHandlers(handlers ...ResultHandler) AggregatorOption {
	return func(a *Aggregator) { a.handlers = append(a.handlers, handlers...) }
}

func NewAggregator(logger zerolog.Logger, pool model.Pool, device model.Device, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		logger: logger.With().Str("pool", pool.Name).Str("device", device.Serial).Logger(),
		pool:   pool,
		device: device,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Results returns the results finished so far in the order tests ended.
func (a *Aggregator) Results() []model.TestCaseRunResult {
	out := make([]model.TestCaseRunResult, len(a.results))
	copy(out, a.results)
	return out
}

func (a *Aggregator) timestamp() time.Time {
	return a.now().UTC()
}

func (a *Aggregator) find(id model.TestIdentifier) *pendingTest {
	for _, p := range a.pending {
		if p.id == id {
			return p
		}
	}
	return nil
}

// running returns the pending test, starting it if the start event was lost.
func (a *Aggregator) running(id model.TestIdentifier, event string) *pendingTest {
	if p := a.find(id); p != nil {
		return p
	}
	a.logger.Warn().Str("test", id.String()).Str("event", event).Msg("Event for a test that was not started")
	now := a.timestamp()
	p := &pendingTest{id: id, start: a.boundaryOr(now), netStart: now, status: model.StatusPass}
	a.pending = append(a.pending, p)
	return p
}

func (a *Aggregator) boundaryOr(t time.Time) time.Time {
	if a.boundary.IsZero() {
		return t
	}
	return a.boundary
}

func (a *Aggregator) TestRunStarted(runName string, testCount int) error {
	a.logger.Debug().Str("run", runName).Int("tests", testCount).Msg("Test run started")
	a.boundary = a.timestamp()
	a.runFailure = ""
	return nil
}

func (a *Aggregator) TestStarted(id model.TestIdentifier) error {
	now := a.timestamp()
	if p := a.find(id); p != nil {
		a.logger.Warn().Str("test", id.String()).Msg("Test started twice, restarting it")
		a.remove(p)
	}
	a.pending = append(a.pending, &pendingTest{
		id:       id,
		start:    a.boundaryOr(now),
		netStart: now,
		status:   model.StatusPass,
	})
	return nil
}

func (a *Aggregator) TestFailed(id model.TestIdentifier, trace string) error {
	p := a.running(id, "testFailed")
	p.traces = append(p.traces, model.ParseStackTrace(trace))
	if !p.status.IsFailure() {
		p.status = model.StatusFail
	}
	return nil
}

func (a *Aggregator) TestAssumptionFailure(id model.TestIdentifier, trace string) error {
	p := a.running(id, "testAssumptionFailure")
	p.traces = append(p.traces, model.ParseStackTrace(trace))
	if !p.status.IsFailure() {
		p.status = model.StatusAssumptionFailed
	}
	return nil
}

func (a *Aggregator) TestIgnored(id model.TestIdentifier) error {
	p := a.running(id, "testIgnored")
	if !p.status.IsFailure() {
		p.status = model.StatusIgnored
	}
	return nil
}

func (a *Aggregator) TestEnded(id model.TestIdentifier, metrics map[string]string) error {
	p := a.running(id, "testEnded")
	return a.finish(p, a.timestamp(), metrics)
}

// TestRunFailed finishes all running tests as errors.
func (a *Aggregator) TestRunFailed(message string) error {
	a.logger.Warn().Str("reason", message).Msg("Test run failed")
	a.runFailure = message
	return a.abortPending(message)
}

func (a *Aggregator) TestRunStopped(elapsed time.Duration) error {
	a.logger.Debug().Dur("elapsed", elapsed).Msg("Test run stopped")
	return nil
}

func (a *Aggregator) TestRunEnded(elapsed time.Duration, _ map[string]string) error {
	a.logger.Debug().Dur("elapsed", elapsed).Int("results", len(a.results)).Msg("Test run ended")
	reason := a.runFailure
	if reason == "" {
		reason = "Test run ended before the test finished"
	}
	return a.abortPending(reason)
}

func (a *Aggregator) abortPending(reason string) error {
	var errs []error
	for len(a.pending) > 0 {
		p := a.pending[0]
		trace := fmt.Sprintf(incompleteTestReason, reason)
		p.traces = append(p.traces, model.ParseStackTrace(trace))
		p.status = model.StatusError
		if err := a.finish(p, a.timestamp(), nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Aggregator) remove(p *pendingTest) {
	for i, q := range a.pending {
		if q == p {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			return
		}
	}
}

func (a *Aggregator) finish(p *pendingTest, end time.Time, metrics map[string]string) error {
	a.remove(p)
	a.boundary = end

	result := model.TestCaseRunResult{
		Pool:                  a.pool,
		Device:                a.device,
		TestCase:              model.TestCaseOf(p.id),
		Status:                p.status,
		StackTraces:           p.traces,
		StartTimestampUTC:     p.start,
		EndTimestampUTC:       end,
		NetStartTimestampUTC:  p.netStart,
		NetEndTimestampUTC:    end,
		BaseTotalFailureCount: a.base[p.id],
		AdditionalProperties:  metricProperties(metrics),
	}
	a.results = append(a.results, result)
	stored := &a.results[len(a.results)-1]

	a.logger.Debug().
		Str("test", p.id.String()).
		Str("status", string(result.Status)).
		Int("failures", result.TotalFailureCount()).
		Msg("Test finished")

	var errs []error
	for _, h := range a.handlers {
		if err := h.HandleResult(stored); err != nil {
			errs = append(errs, fmt.Errorf("failed to handle result of %s: %w", p.id, err))
		}
	}
	return errors.Join(errs...)
}

func metricProperties(metrics map[string]string) model.Properties {
	if len(metrics) == 0 {
		return nil
	}
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := make(model.Properties, 0, len(keys))
	for _, k := range keys {
		props = append(props, model.Property{Key: k, Value: metrics[k]})
	}
	return props
}
