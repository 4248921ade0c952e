package summary

import (
	"fmt"
	"os"
	"time"

	"github.com/google/pprof/profile"

	"github.com/tongsgo/tongs/model"
)

// profileBuilder interns locations by name, one function per location.
type profileBuilder struct {
	profile   *profile.Profile
	locations map[string]*profile.Location
}

func newProfileBuilder() *profileBuilder {
	return &profileBuilder{
		profile: &profile.Profile{
			SampleType: []*profile.ValueType{
				{Type: "wall", Unit: "nanoseconds"},
				{Type: "net", Unit: "nanoseconds"},
			},
			PeriodType: &profile.ValueType{Type: "test", Unit: "count"},
			Period:     1,
		},
		locations: make(map[string]*profile.Location),
	}
}

func (b *profileBuilder) location(name, file string) *profile.Location {
	if loc, ok := b.locations[name]; ok {
		return loc
	}
	fn := &profile.Function{
		ID:         uint64(len(b.profile.Function) + 1),
		Name:       name,
		SystemName: name,
		Filename:   file,
	}
	b.profile.Function = append(b.profile.Function, fn)

	loc := &profile.Location{
		ID:   uint64(len(b.profile.Location) + 1),
		Line: []profile.Line{{Function: fn}},
	}
	b.locations[name] = loc
	b.profile.Location = append(b.profile.Location, loc)
	return loc
}

// TimingProfile builds a pprof profile with one sample per test: the wall
// and net durations in nanoseconds, with the stack method <- class <- package.
// Unfinished results are skipped.
func TimingProfile(results []model.TestCaseRunResult) *profile.Profile {
	b := newProfileBuilder()
	var start, end time.Time

	for i := range results {
		r := &results[i]
		wall, err := r.TimeTaken()
		if err != nil {
			continue
		}
		net, _ := r.TimeNetTaken()
		if start.IsZero() || r.StartTimestampUTC.Before(start) {
			start = r.StartTimestampUTC
		}
		if r.EndTimestampUTC.After(end) {
			end = r.EndTimestampUTC
		}

		class := r.TestCase.TestClass
		pkg := packageOf(class)
		b.profile.Sample = append(b.profile.Sample, &profile.Sample{
			Location: []*profile.Location{
				b.location(class+"#"+r.TestCase.TestMethod, class),
				b.location(class, class),
				b.location(pkg, pkg),
			},
			Value: []int64{wall.Nanoseconds(), net.Nanoseconds()},
			Label: map[string][]string{
				"status": {string(r.Status)},
				"device": {r.Device.Serial},
				"pool":   {r.Pool.Name},
			},
		})
	}

	if !start.IsZero() {
		b.profile.TimeNanos = start.UnixNano()
		b.profile.DurationNanos = end.Sub(start).Nanoseconds()
	}
	return b.profile
}

func packageOf(className string) string {
	for i := len(className) - 1; i >= 0; i-- {
		if className[i] == '.' {
			return className[:i]
		}
	}
	return "<default>"
}

// WriteProfile writes a gzipped pprof profile of results to path.
func WriteProfile(path string, results []model.TestCaseRunResult) error {
	prof := TimingProfile(results)
	if err := prof.CheckValid(); err != nil {
		return fmt.Errorf("invalid timing profile: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	defer f.Close()
	if err := prof.Write(f); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return f.Close()
}
