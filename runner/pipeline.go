package runner

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tongsgo/tongs/model"
)

// DeviceJob is the work of one device: Run produces the events of one or
// more instrumentation runs into the listener it is given.
type DeviceJob struct {
	Pool              model.Pool
	Device            model.Device
	Listeners         []RunListener
	Handlers          []ResultHandler
	BaseFailureCounts map[model.TestIdentifier]int
	OnWorkFinished    func() error
	Run               func(ctx context.Context, listener RunListener) error
}

// RunDevices runs every job on its own goroutine with its own aggregator and
// broadcaster. It returns the results of all jobs in job order, together with
// the first error. Results of failed jobs are still included.
func RunDevices(ctx context.Context, logger zerolog.Logger, jobs []DeviceJob) ([][]model.TestCaseRunResult, error) {
	results := make([][]model.TestCaseRunResult, len(jobs))
	g, ctx := errgroup.WithContext(ctx)

	for i, job := range jobs {
		g.Go(func() error {
			agg := NewAggregator(logger, job.Pool, job.Device,
				WithBaseFailureCounts(job.BaseFailureCounts),
				WithResultHandlers(job.Handlers...))
			listeners := append([]RunListener{agg}, job.Listeners...)
			b := NewBroadcaster(job.OnWorkFinished, listeners...)

			err := job.Run(ctx, b)
			results[i] = agg.Results()
			if err != nil {
				return fmt.Errorf("device %s: %w", job.Device.Serial, err)
			}
			logger.Info().
				Str("pool", job.Pool.Name).
				Str("device", job.Device.Serial).
				Int("results", len(results[i])).
				Msg("Device finished")
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// EmulatedJob returns a Run function that sends each command to the emulator.
func EmulatedJob(e *Emulator, commands ...string) func(context.Context, RunListener) error {
	return func(ctx context.Context, listener RunListener) error {
		for _, cmd := range commands {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.Run(cmd, listener); err != nil {
				return err
			}
		}
		return nil
	}
}
