package plugin

import (
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// newLenientReader returns a reader yielding valid UTF-8. A leading byte
// order mark selects UTF-8 or UTF-16; ill-formed sequences are dropped.
func newLenientReader(r io.Reader) io.Reader {
	return transform.NewReader(r, transform.Chain(
		unicode.BOMOverride(transform.Nop),
		runes.ReplaceIllFormed(),
		runes.Remove(runes.Predicate(func(c rune) bool { return c == utf8.RuneError })),
	))
}
