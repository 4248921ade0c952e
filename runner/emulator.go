package runner

// This file contains the device side emulation of instrumentation commands
// used to exercise the result pipeline without devices.

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tongsgo/tongs/model"
)

const (
	// EmulatedRunName is the run name reported by emulated runs.
	EmulatedRunName = "emulators"
	// SingleTestDuration is the time an emulated single test run takes.
	SingleTestDuration = 2345 * time.Millisecond
	logOnlyRunDuration = 100 * time.Millisecond

	f2Filter = "com.github.tarcv.test.F2Filter"
)

const (
	expectedTestPackage = `com\.github\.tarcv\.tongstestapp\.f[12]\.test`
	expectedTestRunner  = `(?:android\.support\.test\.runner\.AndroidJUnitRunner|com\.github\.tarcv\.test\.f2\.TestRunner)`
)

var (
	logOnlyCommandRE = regexp.MustCompile(`^am\s+instrument\s+-w\s+-r` +
		`\s+-e\s+filter\s+((?:\S+,)?com\.github\.tarcv\.tongs\.ondevice\.AnnontationReadingFilter(?:,\S+)?)` +
		`\s+-e\s+log\s+true` +
		`\s+-e\s+test_argument\s+\S+` +
		`\s+` + expectedTestPackage + `/` + expectedTestRunner + `$`)

	singleTestCommandRE = regexp.MustCompile(`^am\s+instrument\s+-w\s+-r` +
		`\s+-e\s+filter\s+(.+?)` +
		`\s+-e\s+test_argument\s+\S+` +
		`\s+-e\s+tongs_filterClass\s+(.+?)` +
		`\s+-e\s+tongs_filterMethod\s+(.+?)` +
		`\s+` + expectedTestPackage + `/` + expectedTestRunner + `$`)

	argStartRE  = regexp.MustCompile(`\s+-e\s\S+\s`)
	argSplitRE  = regexp.MustCompile(`-e\s+`)
	valueStopRE = regexp.MustCompile(`\s+-e|\s+com`)
	nextArgRE   = regexp.MustCompile(`^\s+-e\s\S+\s`)
)

// UnexpectedCommandError is returned for commands the emulator does not know.
type UnexpectedCommandError struct {
	Command string
}

func (e *UnexpectedCommandError) Error() string {
	return fmt.Sprintf("unexpected command (sorted): %s", e.Command)
}

// Emulator replays the events a device produces for known instrumentation
// commands.
type Emulator struct {
	logger   zerolog.Logger
	apiLevel string
	catalog  []string
	sleep    func(time.Duration)
}

// EmulatorOption configures an Emulator.
type EmulatorOption func(*Emulator)

// WithSleep replaces time.Sleep for the simulated test duration.
func WithSleep(sleep func(time.Duration)) EmulatorOption {
	return func(e *Emulator) { e.sleep = sleep }
}

// WithCatalog replaces the tests reported by log only runs.
func WithCatalog(tests []string) EmulatorOption {
	return func(e *Emulator) { e.catalog = tests }
}

// NewEmulator returns an emulator for a device with the given API level
// ("ro.build.version.sdk").
func NewEmulator(logger zerolog.Logger, apiLevel string, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		logger:   logger.With().Str("component", "emulator").Logger(),
		apiLevel: apiLevel,
		catalog:  DefaultCatalog,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run canonicalizes command and replays its events to listener.
func (e *Emulator) Run(command string, listener RunListener) error {
	sorted, err := CanonicalizeCommand(command)
	if err != nil {
		return err
	}
	e.logger.Debug().Str("command", sorted).Msg("Emulating instrumentation command")

	if m := logOnlyCommandRE.FindStringSubmatch(sorted); m != nil {
		return e.runLogOnly(strings.Split(m[1], ","), listener)
	}
	if m := singleTestCommandRE.FindStringSubmatch(sorted); m != nil {
		values := make([]string, 0, 2)
		for _, group := range m[2:] {
			v, err := UnquoteArg(group)
			if err != nil {
				return fmt.Errorf("invalid argument %q: %w", group, err)
			}
			values = append(values, v)
		}
		return e.runSingle(model.TestIdentifier{ClassName: values[0], TestName: values[1]}, listener)
	}
	return &UnexpectedCommandError{Command: sorted}
}

func (e *Emulator) runLogOnly(filters []string, listener RunListener) error {
	withF2Filter := false
	for _, f := range filters {
		if f == f2Filter {
			withF2Filter = true
		}
	}

	var tests []model.TestIdentifier
	for _, name := range e.catalog {
		if e.apiLevel != "22" && strings.Contains(name, "#api22Only") {
			continue
		}
		if withF2Filter && strings.Contains(name, "#filteredByF2Filter") {
			continue
		}
		id, err := model.ParseTestIdentifier(name)
		if err != nil {
			return err
		}
		tests = append(tests, id)
	}

	if err := listener.TestRunStarted(EmulatedRunName, len(tests)); err != nil {
		return err
	}
	for _, id := range tests {
		if err := e.fireTest(id, 0, listener); err != nil {
			return err
		}
	}
	return listener.TestRunEnded(logOnlyRunDuration, map[string]string{})
}

func (e *Emulator) runSingle(id model.TestIdentifier, listener RunListener) error {
	if err := listener.TestRunStarted(EmulatedRunName, 1); err != nil {
		return err
	}
	if err := e.fireTest(id, SingleTestDuration, listener); err != nil {
		return err
	}
	return listener.TestRunEnded(SingleTestDuration, map[string]string{})
}

func (e *Emulator) fireTest(id model.TestIdentifier, delay time.Duration, listener RunListener) error {
	if err := listener.TestStarted(id); err != nil {
		return err
	}
	if delay > 0 {
		e.sleep(delay)
	}
	return listener.TestEnded(id, map[string]string{})
}

// CanonicalizeCommand sorts the contiguous block of "-e key value" arguments
// of an instrumentation command. A value ends where whitespace is followed
// by "-e" or by "com" (the test package). Commands with more than one such
// block are rejected.
func CanonicalizeCommand(command string) (string, error) {
	start, end, ok := findArgBlock(command, 0)
	if !ok {
		return command, nil
	}
	if _, _, again := findArgBlock(command, end); again {
		return "", &UnexpectedCommandError{Command: command}
	}

	var args []string
	for _, arg := range argSplitRE.Split(command[start:end], -1) {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	sort.Strings(args)

	var b strings.Builder
	b.WriteString(command[:start])
	for _, arg := range args {
		b.WriteString(" -e ")
		b.WriteString(arg)
	}
	b.WriteString(command[end:])
	return b.String(), nil
}

// findArgBlock returns the bounds of the first run of arguments at or after
// from. Each argument needs a non-empty value that is followed by another
// argument or by the package.
func findArgBlock(command string, from int) (int, int, bool) {
	for searchFrom := from; searchFrom < len(command); {
		loc := argStartRE.FindStringIndex(command[searchFrom:])
		if loc == nil {
			return 0, 0, false
		}
		start := searchFrom + loc[0]
		end, ok := argEnd(command, searchFrom+loc[1])
		if !ok {
			searchFrom = start + 1
			continue
		}
		for {
			next := nextArgRE.FindStringIndex(command[end:])
			if next == nil {
				break
			}
			nextEnd, ok := argEnd(command, end+next[1])
			if !ok {
				break
			}
			end = nextEnd
		}
		return start, end, true
	}
	return 0, 0, false
}

// argEnd finds where the value starting at valueStart ends.
func argEnd(command string, valueStart int) (int, bool) {
	if valueStart >= len(command) {
		return 0, false
	}
	loc := valueStopRE.FindStringIndex(command[valueStart+1:])
	if loc == nil {
		return 0, false
	}
	return valueStart + 1 + loc[0], true
}

// UnquoteArg removes shell quoting from one argument: single quotes, double
// quotes with backslash escapes and backslash escapes outside of quotes.
func UnquoteArg(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return "", fmt.Errorf("unterminated single quote")
			}
			b.WriteString(s[i+1 : i+1+end])
			i += end + 1
		case '"':
			i++
			for ; i < len(s) && s[i] != '"'; i++ {
				if s[i] == '\\' && i+1 < len(s) && strings.IndexByte("$`\"\\\n", s[i+1]) >= 0 {
					i++
				}
				b.WriteByte(s[i])
			}
			if i >= len(s) {
				return "", fmt.Errorf("unterminated double quote")
			}
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
