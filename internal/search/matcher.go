package search

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidPattern is returned when a regex query does not compile.
var ErrInvalidPattern = errors.New("invalid pattern")

// Options configures a search.
type Options struct {
	Query         string
	CaseSensitive bool
	UseRegex      bool
}

// Span is a half-open byte range [Start, End) in the scanned text.
type Span struct {
	Start int
	End   int
}

// Matcher finds non-overlapping occurrences in text.
type Matcher interface {
	FindAll(text string) []Span
}

// NewMatcher builds a matcher for opts. An empty query yields a nil matcher
// and no error.
func NewMatcher(opts Options) (Matcher, error) {
	if opts.Query == "" {
		return nil, nil
	}
	if opts.UseRegex {
		pattern := opts.Query
		if !opts.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
		}
		return regexMatcher{re: re}, nil
	}

	needle := opts.Query
	if !opts.CaseSensitive {
		needle, _ = fold(needle)
	}
	return literalMatcher{needle: needle, caseSensitive: opts.CaseSensitive}, nil
}

type literalMatcher struct {
	needle        string
	caseSensitive bool
}

func (m literalMatcher) FindAll(text string) []Span {
	haystack := text
	var offsets []int
	if !m.caseSensitive {
		haystack, offsets = fold(text)
	}

	var spans []Span
	pos := 0
	for pos <= len(haystack)-len(m.needle) {
		idx := strings.Index(haystack[pos:], m.needle)
		if idx < 0 {
			break
		}
		start := pos + idx
		end := start + len(m.needle)
		if offsets != nil {
			spans = append(spans, Span{Start: offsets[start], End: offsets[end]})
		} else {
			spans = append(spans, Span{Start: start, End: end})
		}
		// Resume strictly after the matched span.
		pos = end
	}
	return spans
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) FindAll(text string) []Span {
	var spans []Span
	for _, loc := range m.re.FindAllStringIndex(text, -1) {
		if loc[0] == loc[1] {
			continue
		}
		spans = append(spans, Span{Start: loc[0], End: loc[1]})
	}
	return spans
}

// fold lower-cases s rune by rune. The returned offsets map every byte
// position of the folded string (plus its end) back to the byte position of
// the rune it came from in s.
func fold(s string) (string, []int) {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)
	for i, r := range s {
		if r == utf8.RuneError {
			// Keep invalid bytes as they are so offsets stay aligned.
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				b.WriteByte(s[i])
				offsets = append(offsets, i)
				continue
			}
		}
		lower := unicode.ToLower(r)
		n := utf8.RuneLen(lower)
		b.WriteRune(lower)
		for j := 0; j < n; j++ {
			offsets = append(offsets, i)
		}
	}
	offsets = append(offsets, len(s))
	return b.String(), offsets
}
