// Package parser turns OCR text into identity and income fields. Everything
// here is pure: no I/O, no clocks.
package parser

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize strips accents, uppercases and collapses whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(out)), " ")
}

// Text is OCR output after normalization.
type Text struct {
	Lines []string
	Forms []Pair
}

// Pair is one normalized form key/value.
type Pair struct {
	Key   string
	Value string
}

// NewText normalizes lines and form pairs. Empty lines are dropped and pairs are
// sorted by key so that results do not depend on map order.
func NewText(lines []string, forms map[string]string) Text {
	var t Text
	for _, l := range lines {
		if n := Normalize(l); n != "" {
			t.Lines = append(t.Lines, n)
		}
	}
	for k, v := range forms {
		nk, nv := Normalize(k), Normalize(v)
		if nk == "" || nv == "" {
			continue
		}
		t.Forms = append(t.Forms, Pair{Key: nk, Value: nv})
	}
	sort.Slice(t.Forms, func(i, j int) bool { return t.Forms[i].Key < t.Forms[j].Key })
	return t
}

// Joined returns all lines separated by newlines.
func (t Text) Joined() string {
	return strings.Join(t.Lines, "\n")
}

// Strategy is one named way of extracting a value.
type Strategy[T any] struct {
	Name string
	Run  func(Text) (T, bool)
}

// firstMatch runs strategies in order and returns the first hit with its name.
func firstMatch[T any](t Text, strategies []Strategy[T]) (T, string, bool) {
	for _, s := range strategies {
		if v, ok := s.Run(t); ok {
			return v, s.Name, true
		}
	}
	var zero T
	return zero, "", false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
