package tagscan

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shibukawa/snaptmpl"
)

// DefaultBody is the body pattern used when a pair only declares Open and Close
const DefaultBody = `.*?`

// DelimiterPair identifies one recognizable tag syntax.
// Open and Close are literal strings; Body is a regular expression for the
// captured tag body. A pair without Close must declare Body.
type DelimiterPair struct {
	Open      string
	Body      string
	Close     string
	Token     string
	Separator string
}

// Pattern returns the regular expression source recognizing the pair.
// Group 1 always captures the body.
func (p DelimiterPair) Pattern() string {
	body := p.Body
	if body == "" {
		body = DefaultBody
	}

	return "(?s)" + regexp.QuoteMeta(p.Open) + "(" + body + ")" + regexp.QuoteMeta(p.Close)
}

// Match is a raw tag occurrence found by one pair
type Match struct {
	Start int
	End   int
	Body  string
	Pair  int // index of the pair in registration order
}

type compiledPair struct {
	DelimiterPair
	re *regexp.Regexp
}

// Table is the ordered, immutable set of delimiter pairs of every registered tag kind.
// It is safe to share between goroutines.
type Table struct {
	open  string
	close string
	pairs []compiledPair
	guard *Guard
}

// NewTable validates and compiles pairs. Pairs are scanned in the given order.
// opts configure the guard that escapes every matched body.
func NewTable(internalDelims []string, pairs []DelimiterPair, opts ...GuardOption) (*Table, error) {
	if len(internalDelims) != 2 || internalDelims[0] == "" || internalDelims[1] == "" {
		return nil, fmt.Errorf("%w: internal delimiters must be two non-empty strings", snaptmpl.ErrConfigValidation)
	}

	if internalDelims[0] == internalDelims[1] {
		return nil, fmt.Errorf("%w: internal delimiters must differ", snaptmpl.ErrConfigValidation)
	}

	t := &Table{
		open:  internalDelims[0],
		close: internalDelims[1],
		pairs: make([]compiledPair, 0, len(pairs)),
	}

	literals := []string{t.open, t.close}
	framing := []string{t.open, t.close}

	for i, p := range pairs {
		if p.Open == "" {
			return nil, fmt.Errorf("%w: delimiter %d (%s): open is required", snaptmpl.ErrConfigValidation, i, p.Token)
		}

		if p.Close == "" && p.Body == "" {
			return nil, fmt.Errorf("%w: delimiter %d (%s): needs either close or body", snaptmpl.ErrConfigValidation, i, p.Token)
		}

		if p.Token == "" || p.Separator == "" {
			return nil, fmt.Errorf("%w: delimiter %d: token and separator are required", snaptmpl.ErrConfigValidation, i)
		}

		if strings.Contains(p.Token, p.Separator) {
			return nil, fmt.Errorf("%w: token '%s' must not contain separator '%s'", snaptmpl.ErrConfigValidation, p.Token, p.Separator)
		}

		re, err := regexp.Compile(p.Pattern())
		if err != nil {
			return nil, fmt.Errorf("%w: delimiter %d (%s): %w", snaptmpl.ErrConfigValidation, i, p.Token, err)
		}

		t.pairs = append(t.pairs, compiledPair{DelimiterPair: p, re: re})
		literals = append(literals, p.Open, p.Close)
		framing = append(framing, p.Token, p.Separator)
	}

	// A canonical marker must never be recognizable by any pair: no rune of an
	// open/close literal may appear in the marker framing.
	for _, p := range t.pairs {
		for _, lit := range []string{p.Open, p.Close} {
			if hasSentinel(lit) {
				return nil, fmt.Errorf("%w: delimiter '%s' uses reserved private-use characters", snaptmpl.ErrConfigValidation, lit)
			}

			for _, f := range framing {
				if r, ok := sharedRune(lit, f); ok {
					return nil, fmt.Errorf("%w: delimiter '%s' shares %q with marker text '%s'", snaptmpl.ErrConfigValidation, lit, r, f)
				}
			}
		}
	}

	t.guard = NewGuard(literals, opts...)

	return t, nil
}

// InternalDelims returns the canonical marker delimiters
func (t *Table) InternalDelims() (string, string) {
	return t.open, t.close
}

// Guard returns the escape guard protecting every literal of the table
func (t *Table) Guard() *Guard {
	return t.guard
}

// Pairs returns a copy of the registered pairs in scan order
func (t *Table) Pairs() []DelimiterPair {
	result := make([]DelimiterPair, len(t.pairs))
	for i, p := range t.pairs {
		result[i] = p.DelimiterPair
	}

	return result
}

// Tokens returns the distinct marker tokens in registration order
func (t *Table) Tokens() []string {
	seen := make(map[string]bool)

	var tokens []string

	for _, p := range t.pairs {
		if !seen[p.Token] {
			seen[p.Token] = true
			tokens = append(tokens, p.Token)
		}
	}

	return tokens
}

// Preprocess rewrites every recognized tag into a canonical marker.
// Pairs run in registration order, each over the output of the previous one.
func (t *Table) Preprocess(text string) string {
	for _, p := range t.pairs {
		text = Rewrite(text, p.re, t.open, p.Token, p.Separator, t.close, t.guard.Escape)
	}

	return text
}

// Preprocess builds a table from pairs and rewrites text with it.
// A nil escape uses the table's own guard.
func Preprocess(text string, pairs []DelimiterPair, internalDelims []string, escape EscapeFunc) (string, error) {
	t, err := NewTable(internalDelims, pairs)
	if err != nil {
		return "", err
	}

	if escape == nil {
		escape = t.guard.Escape
	}

	for _, p := range t.pairs {
		text = Rewrite(text, p.re, t.open, p.Token, p.Separator, t.close, escape)
	}

	return text, nil
}

// FindAll reports raw matches of every pair over text without rewriting it
func (t *Table) FindAll(text string) []Match {
	var matches []Match

	for i, p := range t.pairs {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			matches = append(matches, Match{
				Start: loc[0],
				End:   loc[1],
				Body:  text[loc[2]:loc[3]],
				Pair:  i,
			})
		}
	}

	return matches
}

// Rewrite performs one scan pass: every leftmost, non-overlapping match of re
// is replaced with open + token + separator + escape(body) + close.
// re must capture the body in group 1. Text without matches is returned unchanged.
func Rewrite(text string, re *regexp.Regexp, open, token, separator, close string, escape EscapeFunc) string {
	locs := re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var b strings.Builder

	b.Grow(len(text) + len(locs)*(len(open)+len(token)+len(separator)+len(close)))

	last := 0
	for _, loc := range locs {
		b.WriteString(text[last:loc[0]])
		b.WriteString(open)
		b.WriteString(token)
		b.WriteString(separator)
		b.WriteString(escape(text[loc[2]:loc[3]]))
		b.WriteString(close)
		last = loc[1]
	}

	b.WriteString(text[last:])

	return b.String()
}

func sharedRune(a, b string) (rune, bool) {
	for _, r := range a {
		if strings.ContainsRune(b, r) {
			return r, true
		}
	}

	return utf8.RuneError, false
}
