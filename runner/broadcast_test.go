package runner

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tongsgo/tongs/model"
)

// recorder records events as strings.
type recorder struct {
	events []string
}

var _ RunListener = (*recorder)(nil)

func (r *recorder) add(format string, args ...any) error {
	r.events = append(r.events, fmt.Sprintf(format, args...))
	return nil
}

func (r *recorder) TestRunStarted(runName string, testCount int) error {
	return r.add("runStarted %s %d", runName, testCount)
}

func (r *recorder) TestStarted(id model.TestIdentifier) error {
	return r.add("started %s", id)
}

func (r *recorder) TestFailed(id model.TestIdentifier, trace string) error {
	return r.add("failed %s %s", id, trace)
}

func (r *recorder) TestAssumptionFailure(id model.TestIdentifier, trace string) error {
	return r.add("assumptionFailure %s %s", id, trace)
}

func (r *recorder) TestIgnored(id model.TestIdentifier) error {
	return r.add("ignored %s", id)
}

func (r *recorder) TestEnded(id model.TestIdentifier, metrics map[string]string) error {
	if len(metrics) == 0 {
		return r.add("ended %s", id)
	}
	return r.add("ended %s %v", id, metrics)
}

func (r *recorder) TestRunFailed(message string) error {
	return r.add("runFailed %s", message)
}

func (r *recorder) TestRunStopped(elapsed time.Duration) error {
	return r.add("runStopped %s", elapsed)
}

func (r *recorder) TestRunEnded(elapsed time.Duration, _ map[string]string) error {
	return r.add("runEnded %s", elapsed)
}

type failingListener struct {
	NopListener
	err error
}

func (l failingListener) TestStarted(model.TestIdentifier) error { return l.err }
func (l failingListener) TestRunEnded(time.Duration, map[string]string) error { return l.err }

type panickingListener struct {
	NopListener
}

func (panickingListener) TestRunEnded(time.Duration, map[string]string) error {
	panic("listener exploded")
}

var testID = model.TestIdentifier{ClassName: "com.example.FooTest", TestName: "testBar"}

func TestBroadcasterForwardsToAllListeners(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	boom := errors.New("boom")
	b := NewBroadcaster(nil, first, failingListener{err: boom}, second)

	require.NoError(t, b.TestRunStarted("run", 1))
	err := b.TestStarted(testID)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "listener 1")
	require.Contains(t, err.Error(), "testStarted")
	require.NoError(t, b.TestEnded(testID, nil))

	want := []string{"runStarted run 1", "started com.example.FooTest#testBar", "ended com.example.FooTest#testBar"}
	require.Equal(t, want, first.events)
	require.Equal(t, want, second.events)
}

func TestBroadcasterWorkFinishedHook(t *testing.T) {
	t.Run("once per run", func(t *testing.T) {
		calls := 0
		b := NewBroadcaster(func() error { calls++; return nil }, &recorder{})

		require.NoError(t, b.TestRunStarted("run", 0))
		require.NoError(t, b.TestRunEnded(time.Second, nil))
		require.NoError(t, b.TestRunEnded(time.Second, nil))
		require.Equal(t, 1, calls)

		require.NoError(t, b.TestRunStarted("run", 0))
		require.NoError(t, b.TestRunEnded(time.Second, nil))
		require.Equal(t, 2, calls)
	})

	t.Run("listener error", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		b := NewBroadcaster(func() error { calls++; return nil }, failingListener{err: boom})

		require.NoError(t, b.TestRunStarted("run", 0))
		require.ErrorIs(t, b.TestRunEnded(time.Second, nil), boom)
		require.Equal(t, 1, calls)
	})

	t.Run("listener panic", func(t *testing.T) {
		calls := 0
		b := NewBroadcaster(func() error { calls++; return nil }, panickingListener{})

		require.NoError(t, b.TestRunStarted("run", 0))
		require.Panics(t, func() { _ = b.TestRunEnded(time.Second, nil) })
		require.Equal(t, 1, calls)
	})

	t.Run("hook error", func(t *testing.T) {
		hookErr := errors.New("cannot release device")
		b := NewBroadcaster(func() error { return hookErr }, &recorder{})

		require.NoError(t, b.TestRunStarted("run", 0))
		err := b.TestRunEnded(time.Second, nil)
		require.ErrorIs(t, err, hookErr)
		require.Contains(t, err.Error(), "work finished hook failed")
	})
}
