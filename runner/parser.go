package runner

// This file contains the parser for raw "am instrument -r" output.

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tongsgo/tongs/model"
)

const (
	prefixStatusCode = "INSTRUMENTATION_STATUS_CODE: "
	prefixStatus     = "INSTRUMENTATION_STATUS: "
	prefixResult     = "INSTRUMENTATION_RESULT: "
	prefixCode       = "INSTRUMENTATION_CODE: "
	prefixFailed     = "INSTRUMENTATION_FAILED: "
	prefixAborted    = "INSTRUMENTATION_ABORTED: "
	prefixTime       = "Time: "
)

// Status codes reported by the instrumentation runner.
const (
	CodeStart             = 1
	CodeInProgress        = 2
	CodeOK                = 0
	CodeError             = -1
	CodeFailure           = -2
	CodeIgnored           = -3
	CodeAssumptionFailure = -4
)

const (
	keyClass    = "class"
	keyTest     = "test"
	keyStack    = "stack"
	keyNumTests = "numtests"
	keyCurrent  = "current"
	keyID       = "id"
	keyStream   = "stream"
	keyShortMsg = "shortMsg"
)

// knownStatusKeys are not reported as test metrics.
var knownStatusKeys = map[string]bool{
	keyClass:    true,
	keyTest:     true,
	keyStack:    true,
	keyNumTests: true,
	keyCurrent:  true,
	keyID:       true,
	keyStream:   true,
}

// OutputParser turns raw instrumentation output into RunListener events.
type OutputParser struct {
	logger   zerolog.Logger
	runName  string
	listener RunListener

	status       map[string]string
	result       map[string]string
	inResult     bool
	currentKey   string
	currentValue strings.Builder

	runStarted bool
	numTests   int
	testsRun   int
	codeSeen   bool
	runFailure string
	elapsed    time.Duration
	errs       []error
}

// NewOutputParser returns a parser reporting the run as runName.
func NewOutputParser(logger zerolog.Logger, runName string, listener RunListener) *OutputParser {
	return &OutputParser{
		logger:   logger.With().Str("component", "parser").Str("run", runName).Logger(),
		runName:  runName,
		listener: listener,
		status:   map[string]string{},
		result:   map[string]string{},
	}
}

// Parse reads the output until EOF and reports the end of the run. Listener
// errors do not stop parsing, they are joined into the returned error.
func (p *OutputParser) Parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		p.parseLine(strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		p.handleRunFailure(fmt.Sprintf("Failed to read instrumentation output: %v", err))
		p.done()
		return errors.Join(append(p.errs, fmt.Errorf("error reading input: %w", err))...)
	}
	p.done()
	return errors.Join(p.errs...)
}

func (p *OutputParser) parseLine(line string) {
	switch {
	case strings.HasPrefix(line, prefixStatusCode):
		p.submitCurrentKey()
		p.parseStatusCode(strings.TrimPrefix(line, prefixStatusCode))
	case strings.HasPrefix(line, prefixStatus):
		p.submitCurrentKey()
		p.inResult = false
		p.parseKey(strings.TrimPrefix(line, prefixStatus))
	case strings.HasPrefix(line, prefixResult):
		p.submitCurrentKey()
		p.inResult = true
		p.parseKey(strings.TrimPrefix(line, prefixResult))
	case strings.HasPrefix(line, prefixCode):
		p.submitCurrentKey()
		p.codeSeen = true
	case strings.HasPrefix(line, prefixFailed), strings.HasPrefix(line, prefixAborted):
		p.submitCurrentKey()
		msg := strings.TrimPrefix(strings.TrimPrefix(line, prefixFailed), prefixAborted)
		p.handleRunFailure(msg)
	case strings.HasPrefix(line, prefixTime):
		p.parseTime(strings.TrimPrefix(line, prefixTime))
	case p.currentKey != "":
		p.currentValue.WriteByte('\n')
		p.currentValue.WriteString(line)
	case strings.TrimSpace(line) != "":
		p.logger.Debug().Str("line", line).Msg("Ignoring unrecognized line")
	}
}

func (p *OutputParser) parseKey(keyValue string) {
	key, value, ok := strings.Cut(keyValue, "=")
	if !ok {
		p.logger.Warn().Str("line", keyValue).Msg("Malformed key value line")
		return
	}
	p.currentKey = key
	p.currentValue.Reset()
	p.currentValue.WriteString(value)
}

func (p *OutputParser) submitCurrentKey() {
	if p.currentKey == "" {
		return
	}
	value := p.currentValue.String()
	if p.inResult {
		p.result[p.currentKey] = value
		if p.currentKey == keyShortMsg {
			p.handleRunFailure(value)
		}
	} else {
		p.status[p.currentKey] = value
	}
	p.currentKey = ""
	p.currentValue.Reset()
}

func (p *OutputParser) parseTime(value string) {
	seconds, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(value), ",", ""), 64)
	if err != nil {
		p.logger.Warn().Str("time", value).Msg("Failed to parse elapsed time")
		return
	}
	p.elapsed = time.Duration(seconds * float64(time.Second))
}

func (p *OutputParser) parseStatusCode(value string) {
	code, err := strconv.Atoi(strings.TrimSpace(value))
	bundle := p.status
	p.status = map[string]string{}
	if err != nil {
		p.logger.Warn().Str("code", value).Msg("Failed to parse status code")
		return
	}
	if code == CodeInProgress {
		return
	}

	if n, ok := bundle[keyNumTests]; ok && !p.runStarted {
		if p.numTests, err = strconv.Atoi(n); err != nil {
			p.logger.Warn().Str("numtests", n).Msg("Failed to parse test count")
		}
	}
	p.startRun()

	className, testName := bundle[keyClass], bundle[keyTest]
	if className == "" || testName == "" {
		p.logger.Warn().Int("code", code).Msg("Status without class or test name")
		return
	}
	id := model.TestIdentifier{ClassName: className, TestName: testName}

	switch code {
	case CodeStart:
		p.report(p.listener.TestStarted(id))
		return
	case CodeOK:
	case CodeError, CodeFailure:
		p.report(p.listener.TestFailed(id, bundle[keyStack]))
	case CodeIgnored:
		p.report(p.listener.TestIgnored(id))
	case CodeAssumptionFailure:
		p.report(p.listener.TestAssumptionFailure(id, bundle[keyStack]))
	default:
		p.logger.Warn().Int("code", code).Str("test", id.String()).Msg("Unknown status code")
		p.report(p.listener.TestFailed(id, fmt.Sprintf("Unknown instrumentation status code %d", code)))
	}
	p.testsRun++
	p.report(p.listener.TestEnded(id, metrics(bundle)))
}

func (p *OutputParser) startRun() {
	if p.runStarted {
		return
	}
	p.runStarted = true
	p.report(p.listener.TestRunStarted(p.runName, p.numTests))
}

func (p *OutputParser) handleRunFailure(message string) {
	if p.runFailure == "" {
		p.runFailure = message
	}
}

func (p *OutputParser) done() {
	p.submitCurrentKey()
	p.startRun()
	if p.runFailure == "" && !p.codeSeen {
		p.runFailure = fmt.Sprintf("Test run failed to complete. Expected %d tests, received %d", p.numTests, p.testsRun)
	}
	if p.runFailure != "" {
		p.report(p.listener.TestRunFailed(p.runFailure))
	}

	runMetrics := map[string]string{}
	for k, v := range p.result {
		if k != keyStream && k != keyShortMsg {
			runMetrics[k] = v
		}
	}
	p.report(p.listener.TestRunEnded(p.elapsed, runMetrics))
}

func (p *OutputParser) report(err error) {
	if err != nil {
		p.errs = append(p.errs, err)
	}
}

func metrics(bundle map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range bundle {
		if !knownStatusKeys[k] {
			out[k] = v
		}
	}
	return out
}
