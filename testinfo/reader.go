// Package testinfo resolves requested test identifiers to the test methods
// of an instrumentation APK and collects their annotations.
package testinfo

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tongsgo/tongs/dex"
	"github.com/tongsgo/tongs/model"
)

// Reader builds TestInfo records from decoded archives. A Reader keeps no
// state between calls.
type Reader struct {
	logger zerolog.Logger
}

func NewReader(logger zerolog.Logger) *Reader {
	return &Reader{logger: logger.With().Str("component", "testinfo").Logger()}
}

// ReadAPK opens an APK (or a raw dex file) and reads test info for ids.
func (r *Reader) ReadAPK(path string, ids []model.TestIdentifier) ([]model.TestInfo, error) {
	file, err := dex.Open(path)
	var unknown *dex.UnknownValueTypeError
	if errors.As(err, &unknown) {
		return nil, &ApkReadingError{
			Annotation: dex.ClassName(unknown.Annotation),
			Element:    unknown.Element,
			Kind:       fmt.Sprintf("unknown value type 0x%02x", unknown.Tag),
			Err:        err,
		}
	} else if err != nil {
		return nil, err
	}
	return r.ReadTestInfo(file, ids)
}

// ReadTestInfo returns one TestInfo per requested id, in request order.
func (r *Reader) ReadTestInfo(file *dex.File, ids []model.TestIdentifier) ([]model.TestInfo, error) {
	m := newMatcher(ids)
	for _, method := range Candidates(file) {
		m.offer(method)
	}

	var missing []model.TestIdentifier
	for _, req := range m.requests {
		if req.method == nil {
			missing = append(missing, req.id)
		}
	}
	if len(missing) > 0 {
		return nil, &NoMatchingMethodError{Tests: missing}
	}

	res := newResolver(r.logger, file)
	infos := make([]model.TestInfo, 0, len(ids))
	for _, req := range m.requests {
		annotations, err := res.Collect(req.method)
		if err != nil {
			return nil, fmt.Errorf("failed to read annotations of %s: %w", req.id, err)
		}
		r.logger.Debug().
			Str("test", req.id.String()).
			Str("method", dex.ClassName(req.method.Class.Type)+"#"+req.method.Name).
			Int("score", req.score).
			Msg("Matched test method")

		infos = append(infos, model.TestInfo{
			Identifier:  req.id,
			Package:     dex.PackageName(req.method.Class.Type),
			Annotations: annotations,
		})
	}
	return infos, nil
}

// Candidates returns the methods that may implement tests, ordered by
// precedence: public, protected or package-private, then private, instance
// methods before static ones in each group. Within a precedence level the
// archive order is kept (classes in order, virtual methods before direct).
func Candidates(file *dex.File) []*dex.Method {
	var out []*dex.Method
	for _, class := range file.Classes {
		if !dex.IsClassType(class.Type) {
			continue
		}
		for _, method := range class.Methods() {
			if isCandidate(method) {
				out = append(out, method)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return precedence(out[i].AccessFlags) < precedence(out[j].AccessFlags)
	})
	return out
}

func isCandidate(method *dex.Method) bool {
	if method.Name == "<init>" || method.Name == "<clinit>" {
		return false
	}
	flags := method.AccessFlags
	return !flags.Has(dex.AccAbstract) && !flags.Has(dex.AccConstructor) && !flags.Has(dex.AccNative)
}

func precedence(flags dex.AccessFlags) int {
	static := flags.Has(dex.AccStatic)
	switch {
	case flags.Has(dex.AccPublic):
		if static {
			return 20
		}
		return 0
	case flags.Has(dex.AccPrivate):
		if static {
			return 50
		}
		return 40
	default:
		// protected and package-private
		if static {
			return 30
		}
		return 10
	}
}

type request struct {
	id     model.TestIdentifier
	parts  []string
	method *dex.Method
	score  int
}

// matcher keeps the best scoring method per requested test.
type matcher struct {
	requests []*request
	// byPart indexes requests by each of their parts.
	byPart map[string][]*request
}

func newMatcher(ids []model.TestIdentifier) *matcher {
	m := &matcher{byPart: map[string][]*request{}}
	for _, id := range ids {
		req := &request{id: id, parts: Parts(id)}
		m.requests = append(m.requests, req)
		for _, part := range req.parts {
			m.byPart[part] = append(m.byPart[part], req)
		}
	}
	return m
}

// offer scores method against every request sharing a part with it. Only a
// strictly better score replaces the current candidate.
func (m *matcher) offer(method *dex.Method) {
	className := dex.ClassName(method.Class.Type)
	scored := map[*request]bool{}
	for _, key := range []string{className, method.Name} {
		for _, req := range m.byPart[key] {
			if scored[req] {
				continue
			}
			scored[req] = true
			score := Score(req.parts, className, method.Name)
			if req.method == nil || req.score < score {
				req.method = method
				req.score = score
			}
		}
	}
}
