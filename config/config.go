// Package config loads the YAML run configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tongsgo/tongs/model"
	"github.com/tongsgo/tongs/runner"
)

// Config describes a tongs run.
type Config struct {
	// OutputDir receives report artifacts. When empty they are written to
	// the history directory of the run.
	OutputDir       string          `yaml:"output_dir"`
	HistoryDir      string          `yaml:"history_dir"`
	Handlers        []string        `yaml:"handlers"`
	Instrumentation Instrumentation `yaml:"instrumentation"`
	Devices         []Device        `yaml:"devices"`
}

// Instrumentation selects the test APK and runner.
type Instrumentation struct {
	APK          string   `yaml:"apk"`
	TestPackage  string   `yaml:"test_package"`
	TestRunner   string   `yaml:"test_runner"`
	TestArgument string   `yaml:"test_argument"`
	Filters      []string `yaml:"filters"`
	EncodeNames  bool     `yaml:"encode_names"`
}

// Device is one device of a pool.
type Device struct {
	Pool         string `yaml:"pool"`
	model.Device `yaml:",inline"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		HistoryDir: ".tongs",
		Handlers:   []string{"xml", "log"},
		Instrumentation: Instrumentation{
			TestRunner:   "android.support.test.runner.AndroidJUnitRunner",
			TestArgument: "default",
		},
	}
}

// Load reads path on top of Default. Unknown fields are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks required fields and fills in device defaults.
func (c *Config) Validate() error {
	if c.HistoryDir == "" {
		return errors.New("history_dir is required")
	}
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Serial == "" {
			return fmt.Errorf("devices[%d].serial is required", i)
		}
		if d.Pool == "" {
			d.Pool = "default"
		}
	}
	return nil
}

// Runner returns the instrumentation command builder.
func (i Instrumentation) Runner() runner.Instrumentation {
	return runner.Instrumentation{
		TestPackage:  i.TestPackage,
		TestRunner:   i.TestRunner,
		TestArgument: i.TestArgument,
		Filters:      i.Filters,
		EncodeNames:  i.EncodeNames,
	}
}
