package testinfo

// This file contains splitting of test identifiers into the parts used to
// match them against test methods.

import (
	"strings"
	"unicode"

	"github.com/tongsgo/tongs/model"
)

var closingBrackets = map[rune]rune{
	'{': '}',
	'[': ']',
	'(': ')',
	'<': '>',
}

// SplitIdentifier splits a test name into parts. Characters that are neither
// '.' nor Java identifier characters separate parts, bracket contents become
// their own part.
//
// Brackets are matched one level deep only: once a bracket was opened the
// expected closing bracket is never reset, so everything after the first
// closing bracket is collected up to the next one ("[[1]]" yields "[1").
// Parameterized test names rely on this exact output.
func SplitIdentifier(identifier string) []string {
	var parts []string
	var current strings.Builder
	var expected rune
	inBracket := false

	flush := func() {
		parts = append(parts, current.String())
		current.Reset()
	}

	for _, c := range identifier {
		switch {
		case !inBracket:
			if closing, ok := closingBrackets[c]; ok {
				expected = closing
				inBracket = true
				flush()
			} else if c == '.' || isJavaIdentifierPart(c) {
				current.WriteRune(c)
			} else {
				flush()
			}
		case c == expected:
			flush()
		default:
			current.WriteRune(c)
		}
	}
	flush()

	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Parts returns the class name followed by the split test name.
func Parts(id model.TestIdentifier) []string {
	return append([]string{id.ClassName}, SplitIdentifier(id.TestName)...)
}

// Score counts the parts equal to the class name plus the parts equal to the
// method name. Repeated parts count every time.
func Score(parts []string, className, methodName string) int {
	score := 0
	for _, part := range parts {
		if part == className {
			score++
		}
		if part == methodName {
			score++
		}
	}
	return score
}

func isJavaIdentifierPart(c rune) bool {
	switch {
	case unicode.IsLetter(c), unicode.IsDigit(c):
		return true
	case unicode.In(c, unicode.Sc, unicode.Pc, unicode.Mn, unicode.Mc, unicode.Nl):
		return true
	}
	return isIdentifierIgnorable(c)
}

func isIdentifierIgnorable(c rune) bool {
	return c <= 0x08 ||
		(c >= 0x0e && c <= 0x1b) ||
		(c >= 0x7f && c <= 0x9f) ||
		unicode.Is(unicode.Cf, c)
}
