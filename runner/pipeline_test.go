package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tongsgo/tongs/model"
)

func TestRunDevices(t *testing.T) {
	noSleep := WithSleep(func(time.Duration) {})
	first := model.TestIdentifier{ClassName: "com.github.tarcv.test.NormalTest", TestName: "test"}
	second := model.TestIdentifier{ClassName: "com.github.tarcv.test.ParameterizedTest", TestName: "test[1]"}

	finished := make([]int, 2)
	jobs := []DeviceJob{
		{
			Pool:           testPool,
			Device:         model.Device{Serial: "device-1", OSAPILevel: "22"},
			OnWorkFinished: func() error { finished[0]++; return nil },
			Run: EmulatedJob(NewEmulator(zerolog.Nop(), "22", noSleep),
				f1App.TestCommand(first), f1App.TestCommand(second)),
		},
		{
			Pool:              testPool,
			Device:            model.Device{Serial: "device-2", OSAPILevel: "28"},
			BaseFailureCounts: map[model.TestIdentifier]int{second: 1},
			OnWorkFinished:    func() error { finished[1]++; return nil },
			Run:               EmulatedJob(NewEmulator(zerolog.Nop(), "28", noSleep), f1App.TestCommand(second)),
		},
	}

	results, err := RunDevices(context.Background(), zerolog.Nop(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Len(t, results[0], 2)
	require.Equal(t, "device-1", results[0][0].Device.Serial)
	require.Equal(t, first, results[0][0].TestCase.Identifier())
	require.Equal(t, second, results[0][1].TestCase.Identifier())

	require.Len(t, results[1], 1)
	require.Equal(t, "device-2", results[1][0].Device.Serial)
	require.Equal(t, 1, results[1][0].TotalFailureCount())

	require.Equal(t, []int{2, 1}, finished)
}

func TestRunDevicesError(t *testing.T) {
	var handled int
	jobs := []DeviceJob{{
		Pool:     testPool,
		Device:   model.Device{Serial: "device-1"},
		Handlers: []ResultHandler{ResultHandlerFunc(func(*model.TestCaseRunResult) error { handled++; return nil })},
		Run: func(_ context.Context, l RunListener) error {
			return errors.Join(
				l.TestRunStarted("run", 1),
				l.TestStarted(testID),
				l.TestRunEnded(0, nil),
				errors.New("device disconnected"))
		},
	}}

	results, err := RunDevices(context.Background(), zerolog.Nop(), jobs)
	require.ErrorContains(t, err, "device device-1: device disconnected")
	require.Len(t, results[0], 1)
	require.Equal(t, model.StatusError, results[0][0].Status)
	require.Equal(t, 1, handled)
}

func TestEmulatedJobCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := EmulatedJob(NewEmulator(zerolog.Nop(), "22"), f1App.LogOnlyCommand())
	require.ErrorIs(t, run(ctx, &recorder{}), context.Canceled)
}
