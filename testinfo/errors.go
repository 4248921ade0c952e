package testinfo

import (
	"fmt"
	"strings"

	"github.com/tongsgo/tongs/model"
)

// NoMatchingMethodError is returned when requested tests do not resolve to
// any method of the archive.
type NoMatchingMethodError struct {
	Tests []model.TestIdentifier
}

func (e *NoMatchingMethodError) Error() string {
	names := make([]string, len(e.Tests))
	for i, id := range e.Tests {
		names[i] = id.String()
	}
	return fmt.Sprintf("no matching test method found for %s", strings.Join(names, ", "))
}

// ApkReadingError is returned when an annotation value uses an encoding that
// cannot be converted into a model.Value, or that the dex format does not
// define at all.
type ApkReadingError struct {
	Annotation string
	Element    string
	Kind       string
	Err        error
}

func (e *ApkReadingError) Error() string {
	return fmt.Sprintf("annotation value %s.%s encoded in unexpected way: %s", e.Annotation, e.Element, e.Kind)
}

func (e *ApkReadingError) Unwrap() error {
	return e.Err
}
