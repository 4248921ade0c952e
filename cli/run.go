package cli

// This file contains the parse and emulate commands, which feed device
// event streams through the result pipeline and record the run.

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tongsgo/tongs/config"
	"github.com/tongsgo/tongs/history"
	"github.com/tongsgo/tongs/model"
	"github.com/tongsgo/tongs/report"
	"github.com/tongsgo/tongs/runner"
	"github.com/tongsgo/tongs/summary"
)

// defaultTestPackage is the instrumentation package the emulator accepts.
const defaultTestPackage = "com.github.tarcv.tongstestapp.f1.test"

// flusher is implemented by handlers that write once all devices finished.
type flusher interface {
	Flush() error
}

func (a *App) parse(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return errors.New("expected at least one instrumentation output file")
	}
	files := ctx.Args().Slice()

	var instr *model.Instrumentation
	if a.cfg.Instrumentation.TestPackage != "" {
		instr = &model.Instrumentation{TestPackage: a.cfg.Instrumentation.TestPackage, TestRunner: a.cfg.Instrumentation.TestRunner}
	}

	return a.execute(ctx, model.RunSourceOutput, instr, func(handlers []runner.ResultHandler) []runner.DeviceJob {
		jobs := make([]runner.DeviceJob, 0, len(files))
		for i, file := range files {
			name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			dev := config.Device{Pool: "default", Device: model.Device{Serial: name}}
			if i < len(a.cfg.Devices) {
				dev = a.cfg.Devices[i]
			}
			jobs = append(jobs, runner.DeviceJob{
				Pool:     model.Pool{Name: dev.Pool},
				Device:   dev.Device,
				Handlers: handlers,
				Run: func(_ context.Context, listener runner.RunListener) error {
					f, err := os.Open(file)
					if err != nil {
						return fmt.Errorf("failed to open instrumentation output: %w", err)
					}
					defer f.Close()
					return runner.NewOutputParser(a.logger, name, listener).Parse(f)
				},
			})
		}
		return jobs
	})
}

// listedTests collects the tests reported by a log only run.
type listedTests struct {
	runner.NopListener
	ids []model.TestIdentifier
}

func (l *listedTests) TestStarted(id model.TestIdentifier) error {
	l.ids = append(l.ids, id)
	return nil
}

func (a *App) emulate(ctx *cli.Context) error {
	instr := a.cfg.Instrumentation.Runner()
	if instr.TestPackage == "" {
		instr.TestPackage = defaultTestPackage
	}
	if instr.EncodeNames {
		a.logger.Warn().Msg("Emulated devices do not decode test names, disabling name encoding")
		instr.EncodeNames = false
	}

	devices := a.cfg.Devices
	if len(devices) == 0 {
		devices = []config.Device{{
			Pool:   "default",
			Device: model.Device{Serial: "emulator-5554", ModelName: "Emulator", OSAPILevel: ctx.String("api-level")},
		}}
	}
	testDuration := ctx.Duration("test-duration")

	recorded := &model.Instrumentation{TestPackage: instr.TestPackage, TestRunner: instr.TestRunner}

	return a.execute(ctx, model.RunSourceEmulator, recorded, func(handlers []runner.ResultHandler) []runner.DeviceJob {
		jobs := make([]runner.DeviceJob, 0, len(devices))
		for _, dev := range devices {
			em := runner.NewEmulator(a.logger, dev.OSAPILevel, runner.WithSleep(func(time.Duration) {
				time.Sleep(testDuration)
			}))
			jobs = append(jobs, runner.DeviceJob{
				Pool:     model.Pool{Name: dev.Pool},
				Device:   dev.Device,
				Handlers: handlers,
				Run: func(ctx context.Context, listener runner.RunListener) error {
					listed := &listedTests{}
					if err := em.Run(instr.LogOnlyCommand(), listed); err != nil {
						return fmt.Errorf("failed to list tests: %w", err)
					}
					commands := make([]string, 0, len(listed.ids))
					for _, id := range listed.ids {
						commands = append(commands, instr.TestCommand(id))
					}
					a.logger.Info().Str("device", dev.Serial).Int("tests", len(commands)).Msg("Running emulated tests")
					return runner.EmulatedJob(em, commands...)(ctx, listener)
				},
			})
		}
		return jobs
	})
}

// execute runs the device jobs, prints the summary and records the run.
func (a *App) execute(ctx *cli.Context, source model.RunSource, instr *model.Instrumentation, build func([]runner.ResultHandler) []runner.DeviceJob) error {
	started := a.now()
	args := append([]string{ctx.App.Name, ctx.Command.Name}, ctx.Args().Slice()...)
	run := history.NewRun(source, args, started)
	runDir := history.RunDir(a.cfg.HistoryDir, run)

	outputDir := ctx.String("output")
	if outputDir == "" {
		outputDir = a.cfg.OutputDir
	}
	if outputDir == "" {
		outputDir = runDir
	}
	keys := ctx.StringSlice("handler")
	if len(keys) == 0 {
		keys = a.cfg.Handlers
	}

	handlers, err := a.registry.Handlers(runner.HandlerContext{Logger: a.logger, OutputDir: outputDir}, keys)
	if err != nil {
		return err
	}
	run.Instrumentation = instr
	if git, err := gitInfo(ctx.Context); err != nil {
		a.logger.Debug().Err(err).Msg("No git information")
	} else {
		run.Git = git
	}

	results, runErr := runner.RunDevices(ctx.Context, a.logger, build(handlers))
	var all []model.TestCaseRunResult
	for _, deviceResults := range results {
		all = append(all, deviceResults...)
	}
	for _, h := range handlers {
		if f, ok := h.(flusher); ok {
			if err := f.Flush(); err != nil {
				runErr = errors.Join(runErr, err)
			}
		}
	}

	summary.Print(a.stdout, all)

	run.Duration = a.now().Sub(started)
	run.Devices = summary.DeviceRuns(all)
	run.Summary = summary.Total(run.Devices)

	if !ctx.Bool("no-history") {
		if outputDir == runDir {
			run.Artifacts, err = collectArtifacts(runDir)
			if err != nil {
				a.logger.Warn().Err(err).Msg("Failed to collect artifacts")
			}
		}
		// Record the history (non-fatal if it fails)
		if _, err := history.Record(a.logger, a.cfg.HistoryDir, run); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to record history")
		} else {
			a.logger.Info().Str("id", run.ID).Str("path", runDir).Msg("Recorded run")
		}
	}

	if runErr != nil {
		return runErr
	}
	if !run.Summary.Succeeded() {
		return fmt.Errorf("%d tests failed, %d errors", run.Summary.Failed, run.Summary.Errors)
	}
	return nil
}

var artifactTypes = map[string]model.ArtifactType{
	report.FileTypeTest.Dir:    model.ArtifactTypeJUnitXML,
	report.FileTypeRawLog.Dir:  model.ArtifactTypeRawLog,
	report.FileTypeTable.Dir:   model.ArtifactTypeTable,
	report.FileTypeProfile.Dir: model.ArtifactTypeTimingProfile,
}

// collectArtifacts lists the report files below runDir.
func collectArtifacts(runDir string) ([]model.Artifact, error) {
	var artifacts []model.Artifact
	err := filepath.WalkDir(runDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(runDir, path)
		if err != nil {
			return err
		}
		top, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
		artifactType, ok := artifactTypes[top]
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		artifacts = append(artifacts, model.Artifact{Type: artifactType, Size: uint64(info.Size()), File: rel})
		return nil
	})
	return artifacts, err
}
