package chat

import (
	"fmt"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Censor rewrites message text before it is recorded.
type Censor interface {
	Censor(text string) string
}

// Moderator masks banned words in message text. Matching is case-insensitive
// and only whole words are masked.
type Moderator struct {
	matcher *goahocorasick.Machine
	mask    rune
}

// NewModerator builds a Moderator for words. It returns nil when there is
// nothing to censor.
func NewModerator(words []string, mask rune) (*Moderator, error) {
	words = lo.Compact(lo.Map(words, func(w string, _ int) string {
		return strings.TrimSpace(w)
	}))
	if len(words) == 0 {
		return nil, nil
	}
	if mask == 0 {
		mask = '*'
	}

	patterns := lo.Map(lo.Uniq(lo.Map(words, func(w string, _ int) string {
		return string(lowerRunes([]rune(w)))
	})), func(w string, _ int) []rune {
		return []rune(w)
	})

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("failed to build censor automaton: %w", err)
	}
	return &Moderator{matcher: m, mask: mask}, nil
}

// Censor replaces every banned whole word in text with the mask rune.
func (m *Moderator) Censor(text string) string {
	if m == nil || text == "" {
		return text
	}

	orig := []rune(text)
	spans := m.matcher.MultiPatternSearch(lowerRunes(orig), false)
	if len(spans) == 0 {
		return text
	}

	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(orig) {
			continue
		}
		if !isWordBoundary(orig, start-1) || !isWordBoundary(orig, end) {
			continue
		}
		for i := start; i < end; i++ {
			orig[i] = m.mask
		}
	}
	return string(orig)
}

// lowerRunes lowercases rune by rune so that indexes line up with the input.
func lowerRunes(in []rune) []rune {
	out := make([]rune, len(in))
	for i, r := range in {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func isWordBoundary(runes []rune, i int) bool {
	if i < 0 || i >= len(runes) {
		return true
	}
	r := runes[i]
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
