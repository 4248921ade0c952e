package summary

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/tongsgo/tongs/model"
	"github.com/tongsgo/tongs/report"
	"github.com/tongsgo/tongs/runner"
)

// ProfileFileName is the timing profile written below the output directory.
const ProfileFileName = "timing.pb.gz"

// Register adds the "xml", "log" and "profile" result handlers to r.
func Register(r *runner.Registry) {
	r.Register("xml", func(ctx runner.HandlerContext) (runner.ResultHandler, error) {
		if ctx.OutputDir == "" {
			return nil, errors.New("xml results need an output directory")
		}
		return &XMLWriter{OutputDir: ctx.OutputDir}, nil
	})
	r.Register("log", func(ctx runner.HandlerContext) (runner.ResultHandler, error) {
		return newLogAttacher(ctx.OutputDir)
	})
	r.Register("profile", func(ctx runner.HandlerContext) (runner.ResultHandler, error) {
		if ctx.OutputDir == "" {
			return nil, errors.New("timing profile needs an output directory")
		}
		return &ProfileCollector{Path: filepath.Join(ctx.OutputDir, report.FileTypeProfile.Dir, ProfileFileName)}, nil
	})
}

// ProfileCollector collects finished results of all devices. Results are
// written by Flush.
type ProfileCollector struct {
	Path string

	mu      sync.Mutex
	results []model.TestCaseRunResult
}

func (c *ProfileCollector) HandleResult(result *model.TestCaseRunResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, *result)
	return nil
}

// Flush writes the profile of everything collected so far.
func (c *ProfileCollector) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := report.EnsureDir(filepath.Dir(c.Path)); err != nil {
		return err
	}
	return WriteProfile(c.Path, c.results)
}
