package hub

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

const censorMask = '*'

// Censor masks configured words in message text. A nil Censor leaves text
// untouched.
type Censor struct {
	matcher *goahocorasick.Machine
}

// NewCensor builds the automaton for words, matched case-insensitively.
// It returns a nil Censor when there is nothing to match.
func NewCensor(words []string) (*Censor, error) {
	patterns := lo.Uniq(lo.FilterMap(words, func(w string, _ int) (string, bool) {
		w = strings.ToLower(strings.TrimSpace(w))
		return w, w != "" && !strings.ContainsRune(w, censorMask)
	}))
	if len(patterns) == 0 {
		return nil, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(lo.Map(patterns, func(w string, _ int) []rune { return []rune(w) })); err != nil {
		return nil, err
	}
	return &Censor{matcher: m}, nil
}

// Apply replaces every rune of every match with '*'.
func (c *Censor) Apply(text string) string {
	if c == nil || text == "" {
		return text
	}

	orig := []rune(text)
	lowered := make([]rune, len(orig))
	for i, r := range orig {
		lowered[i] = unicode.ToLower(r)
	}

	terms := c.matcher.MultiPatternSearch(lowered, false)
	if len(terms) == 0 {
		return text
	}
	for _, term := range terms {
		end := term.Pos + len(term.Word)
		if term.Pos < 0 || end > len(orig) {
			continue
		}
		for i := term.Pos; i < end; i++ {
			orig[i] = censorMask
		}
	}
	return string(orig)
}
