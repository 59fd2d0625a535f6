// Package chunk splits extracted document text into bounded fragments.
package chunk

import (
	"fmt"
	"unicode/utf8"

	"github.com/joseph-ayodele/dataset-generator/internal/common"
)

// DefaultMaxFragmentSize is the fragment bound in characters (runes).
const DefaultMaxFragmentSize = 2000

// Fragment is one ordered slice of a document's text.
type Fragment struct {
	Index int
	Text  string
}

// Split cuts text into consecutive fragments of at most max runes. The
// fragments cover text exactly once and in order; only the last may be
// shorter. Empty text yields no fragments.
func Split(text string, max int) ([]Fragment, error) {
	if max <= 0 {
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("fragment size must be positive, got %d", max), common.ErrInvalidInput)
	}
	if text == "" {
		return nil, nil
	}

	out := make([]Fragment, 0, Count(text, max))
	start, runes := 0, 0
	for i := range text {
		if runes == max {
			out = append(out, Fragment{Index: len(out), Text: text[start:i]})
			start, runes = i, 0
		}
		runes++
	}
	out = append(out, Fragment{Index: len(out), Text: text[start:]})
	return out, nil
}

// Count returns ceil(runes(text)/max) without allocating fragments.
func Count(text string, max int) int {
	if max <= 0 {
		return 0
	}
	n := utf8.RuneCountInString(text)
	return (n + max - 1) / max
}
