package model

import (
	"errors"
	"strings"
	"time"

	"github.com/tongsgo/tongs/report"
)

// ErrNotFinished is returned when the duration of a result is requested
// before its end timestamp was recorded.
var ErrNotFinished = errors.New("test case has not finished execution")

// ResultStatus is the outcome of one test case execution.
type ResultStatus string

const (
	StatusPass             ResultStatus = "PASS"
	StatusFail             ResultStatus = "FAIL"
	StatusError            ResultStatus = "ERROR"
	StatusIgnored          ResultStatus = "IGNORED"
	StatusAssumptionFailed ResultStatus = "ASSUMPTION_FAILED"
)

// IsFailure reports whether the status counts as a failed execution.
func (s ResultStatus) IsFailure() bool {
	return s == StatusFail || s == StatusError
}

// IsSkipped reports whether the test did not really run.
func (s ResultStatus) IsSkipped() bool {
	return s == StatusIgnored || s == StatusAssumptionFailed
}

// StackTrace describes one failure. FullTrace is expected to mention both
// ErrorType and ErrorMessage on its first line.
type StackTrace struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
	FullTrace    string `json:"fullTrace"`
}

// ParseStackTrace derives the error type and message from the first line of
// a trace ("java.lang.AssertionError: expected:<1>").
func ParseStackTrace(trace string) StackTrace {
	firstLine, _, _ := strings.Cut(trace, "\n")
	firstLine = strings.TrimRight(firstLine, "\r")
	errorType, message, _ := strings.Cut(firstLine, ": ")
	return StackTrace{
		ErrorType:    strings.TrimSpace(errorType),
		ErrorMessage: strings.TrimSpace(message),
		FullTrace:    trace,
	}
}

// Pool is a named group of devices sharing one test queue.
type Pool struct {
	Name string `json:"name" yaml:"name"`
}

// Device is a copy of the device description taken when the result was built.
type Device struct {
	Serial     string `json:"serial" yaml:"serial"`
	ModelName  string `json:"model,omitempty" yaml:"model"`
	OSAPILevel string `json:"apiLevel,omitempty" yaml:"api_level"`
	Host       string `json:"host,omitempty" yaml:"host"`
}

// LongName is the human readable name used in reports.
func (d Device) LongName() string {
	return d.ModelName + " - " + d.OSAPILevel
}

// TestCase identifies a test case of a given type.
type TestCase struct {
	TypeTag    string `json:"type"`
	TestClass  string `json:"testClass"`
	TestMethod string `json:"testMethod"`
}

// TestTypeTag marks instrumentation test cases.
const TestTypeTag = "android-instrumentation"

// TestCaseOf returns the instrumentation test case for an identifier.
func TestCaseOf(id TestIdentifier) TestCase {
	return TestCase{TypeTag: TestTypeTag, TestClass: id.ClassName, TestMethod: id.TestName}
}

func (tc TestCase) Identifier() TestIdentifier {
	return TestIdentifier{ClassName: tc.TestClass, TestName: tc.TestMethod}
}

// TestCaseRunResult is the outcome of running one test case on one device.
// It is built once by the aggregator and treated as read-only afterwards.
type TestCaseRunResult struct {
	Pool     Pool
	Device   Device
	TestCase TestCase

	Status      ResultStatus
	StackTraces []StackTrace

	StartTimestampUTC time.Time
	// EndTimestampUTC is zero (or the Unix epoch) until the test case finished.
	EndTimestampUTC      time.Time
	NetStartTimestampUTC time.Time
	NetEndTimestampUTC   time.Time

	// BaseTotalFailureCount carries failures of earlier attempts.
	BaseTotalFailureCount int
	AdditionalProperties  Properties
	CoverageReport        *report.TestCaseFile
	Data                  []report.TestReportData
}

// TotalFailureCount includes the failure of this execution, if any.
func (r *TestCaseRunResult) TotalFailureCount() int {
	if r.Status.IsFailure() {
		return r.BaseTotalFailureCount + 1
	}
	return r.BaseTotalFailureCount
}

// unset reports whether t is Go's zero time or the Unix epoch, which both
// mark a timestamp that was never recorded.
func unset(t time.Time) bool {
	return t.IsZero() || t.Equal(time.Unix(0, 0))
}

// TimeTaken returns the total execution time including host side overhead.
func (r *TestCaseRunResult) TimeTaken() (time.Duration, error) {
	if unset(r.EndTimestampUTC) {
		return 0, ErrNotFinished
	}
	return r.EndTimestampUTC.Sub(r.StartTimestampUTC), nil
}

// TimeNetTaken returns the device side execution time, if it was recorded.
func (r *TestCaseRunResult) TimeNetTaken() (time.Duration, bool) {
	if unset(r.NetStartTimestampUTC) || unset(r.NetEndTimestampUTC) {
		return 0, false
	}
	return r.NetEndTimestampUTC.Sub(r.NetStartTimestampUTC), true
}

func (r *TestCaseRunResult) TimeTakenSeconds() (float64, error) {
	d, err := r.TimeTaken()
	if err != nil {
		return 0, err
	}
	return float64(d.Milliseconds()) / 1000, nil
}

// TimeNetTakenSeconds returns 0 when no net window was recorded.
func (r *TestCaseRunResult) TimeNetTakenSeconds() float64 {
	d, ok := r.TimeNetTaken()
	if !ok {
		return 0
	}
	return float64(d.Milliseconds()) / 1000
}

// Property is a single string property of a result.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Properties is an insertion ordered string map.
type Properties []Property

// Set replaces the value of an existing key in place or appends a new one.
func (p *Properties) Set(key, value string) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Property{Key: key, Value: value})
}

func (p Properties) Get(key string) (string, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return "", false
}

// Merge returns a copy of p with other's entries set on top.
func (p Properties) Merge(other Properties) Properties {
	out := make(Properties, len(p), len(p)+len(other))
	copy(out, p)
	for _, prop := range other {
		out.Set(prop.Key, prop.Value)
	}
	return out
}
