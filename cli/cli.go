package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/tongsgo/tongs/config"
	"github.com/tongsgo/tongs/runner"
	"github.com/tongsgo/tongs/summary"
)

const AppName = "tongs"

type App struct {
	logger   zerolog.Logger
	cli      *cli.App
	cfg      config.Config
	registry *runner.Registry
	stdout   io.Writer
	now      func() time.Time
}

func New() *App {
	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339Nano,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}).With().Timestamp().Logger()

	registry := runner.NewRegistry()
	summary.Register(registry)

	app := &App{
		logger:   logger,
		cfg:      config.Default(),
		registry: registry,
		stdout:   os.Stdout,
		now:      time.Now,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Aggregate Android instrumentation results into JUnit XML and reports",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
				&cli.StringFlag{
					Name:    "config",
					Aliases: []string{"c"},
					Usage:   "YAML configuration file",
					EnvVars: []string{"TONGS_CONFIG"},
				},
			},
		},
	}
	app.cli.Before = app.before
	app.cli.Commands = app.commands()
	return app
}

func (a *App) before(ctx *cli.Context) error {
	if ctx.Bool("verbose") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if path := ctx.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		a.cfg = cfg
		a.logger.Debug().Str("path", path).Msg("Loaded configuration")
	}
	return nil
}

func (a *App) commands() []*cli.Command {
	runFlags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "handler",
			Usage: fmt.Sprintf("Result handlers to run (known: %v)", a.registry.Keys()),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Directory for report artifacts (default: the history directory of the run)",
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Do not record the run in the history",
		},
	}

	return []*cli.Command{
		{
			Name:      "testinfo",
			Usage:     "Resolve test identifiers against a test APK and print their annotations",
			ArgsUsage: "<class#method>...",
			Action:    a.testInfo,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "apk",
					Usage: "Test APK or dex file (default: instrumentation.apk from the config)",
				},
			},
		},
		{
			Name:      "parse",
			Usage:     "Aggregate raw 'am instrument -r' output files, one file per device",
			ArgsUsage: "<output file>...",
			Action:    a.parse,
			Flags:     runFlags,
		},
		{
			Name:   "emulate",
			Usage:  "Run the test catalog on emulated devices",
			Action: a.emulate,
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:  "api-level",
					Usage: "API level of the emulated device when no devices are configured",
					Value: "22",
				},
				&cli.DurationFlag{
					Name:  "test-duration",
					Usage: "Simulated duration of a single test",
					Value: runner.SingleTestDuration,
				},
			}, runFlags...),
		},
		{
			Name:   "list",
			Usage:  "List previous runs",
			Action: a.list,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "source",
					Aliases: []string{"s"},
					Usage:   "Filter by source (output, emulator)",
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"n"},
					Usage:   "Limit number of results (default: 20)",
					Value:   20,
				},
			},
		},
		{
			Name:            "view",
			Usage:           "View a run from history",
			ArgsUsage:       "[ID|INDEX]",
			Action:          a.view,
			SkipFlagParsing: true,
			Description: `View a run from history.

Arguments:
  0           View last run (default)
  -1          View 2nd last run
  <hex-id>    View run matching the hex ID prefix

Further arguments are passed to 'go tool pprof' when the run has a timing
profile, e.g. 'tongs view -1 -top'.`,
		},
	}
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}
