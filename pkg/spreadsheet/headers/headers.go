// Package headers turns the first row of a tabular result set into
// normalized column keys and maps every following row onto them.
package headers

import (
	"fmt"
	"strings"
	"unicode"
)

// Result is the outcome of Associate.
type Result[T any] struct {
	// Headings are the normalized header keys in column order. Duplicates are kept.
	Headings []string `json:"headings"`
	// Data holds one mapping per data row.
	Data []Row[T] `json:"data"`
}

// Normalize lower-cases raw, strips everything that is not an ASCII letter,
// ASCII digit or whitespace, and joins the remaining words with underscores.
//
// A run of punctuation between two alphanumerics separates words, so
// "E-Mail!" becomes "e_mail" while "name!" becomes "name". Apostrophes and
// non-ASCII letters or digits are deleted in place instead: "Pilot's Name"
// becomes "pilots_name" and "Straße" becomes "strae".
func Normalize(raw string) string {
	var b strings.Builder
	stripped := false
	for _, r := range strings.ToLower(raw) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if stripped {
				b.WriteByte(' ')
			}
			stripped = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
			stripped = false
		case isApostrophe(r) || unicode.IsLetter(r) || unicode.IsDigit(r):
			// dropped without breaking the word
		default:
			stripped = true
		}
	}
	return strings.Join(strings.Fields(b.String()), "_")
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '\u2019'
}

// Associate consumes rows[0] as the header row and maps each remaining row
// onto the normalized headings by position.
//
// Short rows miss their trailing keys, extra values are dropped, and when two
// headings normalize to the same key the right-most column wins.
func Associate[T any](rows [][]T) Result[T] {
	return AssociateWith(rows, Normalize)
}

// AssociateWith is Associate with a caller-supplied key normalizer.
func AssociateWith[T any](rows [][]T, normalize func(string) string) Result[T] {
	res := Result[T]{Headings: []string{}, Data: []Row[T]{}}
	if len(rows) == 0 {
		return res
	}

	for _, cell := range rows[0] {
		res.Headings = append(res.Headings, normalize(headerText(cell)))
	}

	for _, values := range rows[1:] {
		row := newRow[T](len(res.Headings))
		for i, key := range res.Headings {
			if i >= len(values) {
				break
			}
			row.set(key, values[i])
		}
		res.Data = append(res.Data, row)
	}
	return res
}

func headerText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}
