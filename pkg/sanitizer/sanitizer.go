package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// collapseSpaces trims and folds any run of whitespace into one space.
func collapseSpaces(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return b.String()
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ClassName keeps the display casing of a class or package name and only
// cleans whitespace and control characters.
func ClassName(input string) string {
	return Pipeline{dropControl, collapseSpaces}.Apply(input)
}

// Token trims opaque identifiers (card tokens, ids) taken from request bodies.
func Token(input string) string {
	return Pipeline{dropControl, strings.TrimSpace}.Apply(input)
}
