package model

import "time"

// RunSource tells where the events of a recorded run came from.
type RunSource string

const (
	RunSourceOutput   RunSource = "output"
	RunSourceEmulator RunSource = "emulator"
)

// Run is the history record of one tongs invocation.
type Run struct {
	// Unique ID for this run (UUID)
	ID string `json:"id"`
	// Where the lifecycle events came from
	Source RunSource `json:"source"`
	// Timestamp when the run started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Duration of the whole run
	Duration time.Duration `json:"duration"`
	// Instrumentation package and runner, if known
	Instrumentation *Instrumentation `json:"instrumentation,omitempty"`
	// Git information of the working directory
	Git *Git `json:"git,omitempty"`
	// One entry per device that reported results
	Devices []DeviceRun `json:"devices,omitempty"`
	// Totals over all devices
	Summary Summary `json:"summary"`
	// Artifacts generated during this run
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Instrumentation describes the instrumentation target of a run.
type Instrumentation struct {
	TestPackage string `json:"test_package,omitempty"`
	TestRunner  string `json:"test_runner,omitempty"`
}

// Git contains git repository information
type Git struct {
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// DeviceRun summarizes the results of a single device.
type DeviceRun struct {
	Pool    Pool    `json:"pool"`
	Device  Device  `json:"device"`
	Summary Summary `json:"summary"`
}

// Summary counts results by outcome.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

// Add counts one result.
func (s *Summary) Add(status ResultStatus) {
	s.Total++
	switch status {
	case StatusPass:
		s.Passed++
	case StatusFail:
		s.Failed++
	case StatusError:
		s.Errors++
	case StatusIgnored, StatusAssumptionFailed:
		s.Skipped++
	}
}

// Merge adds the counts of other.
func (s *Summary) Merge(other Summary) {
	s.Total += other.Total
	s.Passed += other.Passed
	s.Failed += other.Failed
	s.Errors += other.Errors
	s.Skipped += other.Skipped
}

// Succeeded reports whether no test failed or errored.
func (s Summary) Succeeded() bool {
	return s.Failed == 0 && s.Errors == 0
}

// ArtifactType identifies the type of artifact
type ArtifactType uint8

const (
	ArtifactTypeJUnitXML ArtifactType = iota
	ArtifactTypeRawLog
	ArtifactTypeTable
	ArtifactTypeTimingProfile
	ArtifactTypeTestInfo
	ArtifactTypeRawOutput
)

func (t ArtifactType) String() string {
	switch t {
	case ArtifactTypeJUnitXML:
		return "junit"
	case ArtifactTypeRawLog:
		return "log"
	case ArtifactTypeTable:
		return "table"
	case ArtifactTypeTimingProfile:
		return "profile"
	case ArtifactTypeTestInfo:
		return "testinfo"
	case ArtifactTypeRawOutput:
		return "output"
	}
	return "unknown"
}

// Artifact represents a file generated during execution
type Artifact struct {
	Type ArtifactType `json:"type"`
	Size uint64       `json:"size"`
	File string       `json:"file"` // relative to run dir
}
