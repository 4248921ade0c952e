package testinfo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tongsgo/tongs/dex"
	"github.com/tongsgo/tongs/model"
)

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"class and method", "a.B#c[1]", []string{"a.B", "c", "1"}},
		{"plain", "testSomething", []string{"testSomething"}},
		{"bracket content kept whole", "test[param = #1]", []string{"test", "param = #1"}},
		{"parens", "test(a, b)", []string{"test", "a, b"}},
		{"angle brackets first", "<T>test", []string{"T", "test"}},
		{"identifier chars", "$ok_1", []string{"$ok_1"}},
		{"separators", "a b-c", []string{"a", "b", "c"}},
		{"unicode letters", "тест_кейс", []string{"тест_кейс"}},
		{"empty", "", []string{}},
		// The expected closing bracket is never reset.
		{"nested same brackets", "[[1]]", []string{"[1"}},
		{"text after first bracket pair", "test[1]_x[2]", []string{"test", "1", "_x[2"}},
		{"other bracket after first pair", "test[1](2)", []string{"test", "1", "(2)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitIdentifier(tt.input)
			if len(tt.want) == 0 {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParts(t *testing.T) {
	id := model.TestIdentifier{ClassName: "com.example.ParamTest", TestName: "testSum[1 + 2 = 3]"}
	require.Equal(t, []string{"com.example.ParamTest", "testSum", "1 + 2 = 3"}, Parts(id))
}

func TestScore(t *testing.T) {
	parts := []string{"com.example.FooTest", "testA", "testA"}

	require.Equal(t, 3, Score(parts, "com.example.FooTest", "testA"))
	require.Equal(t, 2, Score(parts, "com.example.Other", "testA"))
	require.Equal(t, 1, Score(parts, "com.example.FooTest", "testB"))
	require.Zero(t, Score(parts, "com.example.Other", "testB"))

	t.Run("matcher keeps the best score", func(t *testing.T) {
		foo := &dex.ClassDef{Type: "Lcom/example/FooTest;"}
		bar := &dex.ClassDef{Type: "Lcom/example/Bar;"}
		barA := &dex.Method{Class: bar, Name: "testA"}
		fooOther := &dex.Method{Class: foo, Name: "other"}
		fooA := &dex.Method{Class: foo, Name: "testA"}
		fooA2 := &dex.Method{Class: foo, Name: "testA"}

		id := model.TestIdentifier{ClassName: "com.example.FooTest", TestName: "testA"}
		m := newMatcher([]model.TestIdentifier{id})
		req := m.requests[0]

		// Offers in increasing score order each replace the candidate and
		// the recorded score is the one Score computes.
		for _, method := range []*dex.Method{barA, fooOther, fooA} {
			before := req.score
			m.offer(method)
			require.Same(t, method, req.method)
			require.Equal(t, Score(req.parts, dex.ClassName(method.Class.Type), method.Name), req.score)
			require.GreaterOrEqual(t, req.score, before)
		}
		require.Equal(t, 2, req.score)

		// Equal or lower scores never replace it.
		for _, method := range []*dex.Method{fooA2, barA, fooOther} {
			m.offer(method)
			require.Same(t, fooA, req.method)
			require.Equal(t, 2, req.score)
		}
	})

	t.Run("repeated parts count every time", func(t *testing.T) {
		foo := &dex.ClassDef{Type: "Lcom/example/FooTest;"}
		bar := &dex.ClassDef{Type: "Lcom/example/test;"}
		fooTest := &dex.Method{Class: foo, Name: "other"}
		barTest := &dex.Method{Class: bar, Name: "test"}

		id := model.TestIdentifier{ClassName: "com.example.FooTest", TestName: "test[test]"}
		m := newMatcher([]model.TestIdentifier{id})
		m.offer(fooTest)
		m.offer(barTest)
		require.Same(t, barTest, m.requests[0].method)
		require.Equal(t, 2, m.requests[0].score)
	})
}
