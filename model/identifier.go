package model

import (
	"fmt"
	"strings"
)

// TestIdentifier uniquely identifies one test invocation within a run.
type TestIdentifier struct {
	ClassName string `json:"testClass"`
	TestName  string `json:"testMethod"`
}

// String returns the identifier in "class#test" form.
func (id TestIdentifier) String() string {
	return id.ClassName + "#" + id.TestName
}

// ParseTestIdentifier parses "class#test". Everything after the first '#'
// belongs to the test name, parameterized names may contain more of them.
func ParseTestIdentifier(s string) (TestIdentifier, error) {
	className, testName, ok := strings.Cut(s, "#")
	if !ok || className == "" || testName == "" {
		return TestIdentifier{}, fmt.Errorf("invalid test identifier %q: expected <class>#<test>", s)
	}
	return TestIdentifier{ClassName: className, TestName: testName}, nil
}

// TestInfo is the resolved identity and annotation metadata of one test.
type TestInfo struct {
	Identifier TestIdentifier `json:"identifier"`
	Package    string         `json:"package"`
	// Annotations are ordered from the most general (inherited) to the most
	// specific (method level).
	Annotations []AnnotationInfo `json:"annotations"`
}

// Annotation returns the last (most specific) annotation of the given type.
func (ti TestInfo) Annotation(annotationType string) (AnnotationInfo, bool) {
	for i := len(ti.Annotations) - 1; i >= 0; i-- {
		if ti.Annotations[i].Type == annotationType {
			return ti.Annotations[i], true
		}
	}
	return AnnotationInfo{}, false
}
