package runner

// command.go contains utilities for building am instrument commands.

import (
	"encoding/base64"
	"strings"

	"al.essio.dev/pkg/shellescape"

	"github.com/tongsgo/tongs/model"
)

const (
	// AnnotationReadingFilter makes the on-device runner log test info
	// instead of running tests.
	AnnotationReadingFilter = "com.github.tarcv.tongs.ondevice.AnnontationReadingFilter"
	// ClassMethodFilter selects a single test by tongs_filterClass and
	// tongs_filterMethod.
	ClassMethodFilter = "com.github.tarcv.tongs.ondevice.ClassMethodFilter"
)

// InstrumentationArg is one "-e name value" argument.
type InstrumentationArg struct {
	Name  string
	Value string
}

// Instrumentation describes the test APK to instrument.
type Instrumentation struct {
	TestPackage  string
	TestRunner   string
	TestArgument string
	// Filters are added in front of the filter the command needs.
	Filters []string
	// EncodeNames passes class and method names through EncodeTestName.
	EncodeNames bool
}

// BuildInstrumentationArgs builds the arguments following "am".
func BuildInstrumentationArgs(in Instrumentation, args []InstrumentationArg) []string {
	out := []string{"instrument", "-w", "-r"}
	for _, arg := range args {
		out = append(out, "-e", arg.Name, arg.Value)
	}
	return append(out, in.TestPackage+"/"+in.TestRunner)
}

// BuildInstrumentationCommand builds the shell command string for the device.
func BuildInstrumentationCommand(in Instrumentation, args []InstrumentationArg) string {
	parts := []string{"am"}
	for _, arg := range BuildInstrumentationArgs(in, args) {
		parts = append(parts, shellescape.Quote(arg))
	}
	return strings.Join(parts, " ")
}

// LogOnlyCommand builds the command that lists tests with their annotations.
func (in Instrumentation) LogOnlyCommand() string {
	return BuildInstrumentationCommand(in, []InstrumentationArg{
		{Name: "log", Value: "true"},
		{Name: "test_argument", Value: in.testArgument()},
		{Name: "filter", Value: in.filters(AnnotationReadingFilter)},
	})
}

// TestCommand builds the command that runs a single test.
func (in Instrumentation) TestCommand(id model.TestIdentifier) string {
	className, testName := id.ClassName, id.TestName
	if in.EncodeNames {
		className, testName = EncodeTestName(className), EncodeTestName(testName)
	}
	return BuildInstrumentationCommand(in, []InstrumentationArg{
		{Name: "tongs_filterClass", Value: className},
		{Name: "tongs_filterMethod", Value: testName},
		{Name: "filter", Value: in.filters(ClassMethodFilter)},
		{Name: "test_argument", Value: in.testArgument()},
	})
}

func (in Instrumentation) filters(own string) string {
	return strings.Join(append(append([]string{}, in.Filters...), own), ",")
}

func (in Instrumentation) testArgument() string {
	if in.TestArgument == "" {
		return "default"
	}
	return in.TestArgument
}

// EncodeTestName encodes a name so that it survives instrumentation argument
// parsing: base64 with '=' replaced by '_'.
func EncodeTestName(name string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(name))
	encoded = strings.ReplaceAll(encoded, "=", "_")
	return strings.NewReplacer("\r", "", "\n", "").Replace(encoded)
}

// DecodeTestName reverses EncodeTestName.
func DecodeTestName(encoded string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(encoded, "_", "="))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
