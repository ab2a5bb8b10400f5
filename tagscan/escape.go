package tagscan

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEscapeInvariant is returned when an escaped body still contains a recognizable literal.
// It always indicates a defect in the guard, never a template error.
var ErrEscapeInvariant = errors.New("escaped tag body still contains a recognizable marker")

// EscapeFunc rewrites a matched tag body before it is wrapped into a marker
type EscapeFunc func(body string) string

// PlaceholderEscaper protects placeholder-style markers nested inside a tag body
type PlaceholderEscaper interface {
	EscapePlaceholders(body string) string
}

const (
	sentinelLead  = '\uE000'
	sentinelFirst = '\uE001'
	sentinelLast  = '\uF8FF'
)

// Guard replaces protected literals with private-use sentinel pairs so that no
// later scan can match them. Unescape restores the original text.
type Guard struct {
	literals     []string
	escaper      *strings.Replacer
	unescaper    *strings.Replacer
	placeholders PlaceholderEscaper
}

// GuardOption configures a Guard
type GuardOption func(*Guard)

// WithPlaceholderEscaper runs p before the guard's own escaping.
// Escaping done by p is not reverted by Unescape.
func WithPlaceholderEscaper(p PlaceholderEscaper) GuardOption {
	return func(g *Guard) {
		g.placeholders = p
	}
}

// NewGuard creates a guard protecting the given literals. Empty and duplicate
// literals are ignored; when literals overlap at one position the longest wins.
func NewGuard(literals []string, opts ...GuardOption) *Guard {
	seen := map[string]bool{"": true}
	unique := []string{string(sentinelLead)}

	for _, lit := range literals {
		if !seen[lit] {
			seen[lit] = true
			unique = append(unique, lit)
		}
	}

	// strings.Replacer compares in argument order
	protected := unique[1:]
	sort.SliceStable(protected, func(i, j int) bool {
		return len(protected[i]) > len(protected[j])
	})

	if len(unique) > int(sentinelLast-sentinelFirst)+1 {
		panic(fmt.Sprintf("tagscan: too many protected literals (%d)", len(unique)))
	}

	escapePairs := make([]string, 0, len(unique)*2)
	unescapePairs := make([]string, 0, len(unique)*2)

	for i, lit := range unique {
		sentinel := string([]rune{sentinelLead, sentinelFirst + rune(i)})
		escapePairs = append(escapePairs, lit, sentinel)
		unescapePairs = append(unescapePairs, sentinel, lit)
	}

	g := &Guard{
		literals:  protected,
		escaper:   strings.NewReplacer(escapePairs...),
		unescaper: strings.NewReplacer(unescapePairs...),
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Escape neutralizes every protected literal in body
func (g *Guard) Escape(body string) string {
	if g.placeholders != nil {
		body = g.placeholders.EscapePlaceholders(body)
	}

	return g.escaper.Replace(body)
}

// EscapePlaceholders lets a Guard serve as the PlaceholderEscaper of another guard
func (g *Guard) EscapePlaceholders(body string) string {
	return g.escaper.Replace(body)
}

// Unescape restores text produced by Escape
func (g *Guard) Unescape(body string) string {
	return g.unescaper.Replace(body)
}

// Verify checks that an escaped body contains no protected literal
func (g *Guard) Verify(escaped string) error {
	for _, lit := range g.literals {
		if strings.Contains(escaped, lit) {
			return fmt.Errorf("%w: found '%s' in %q", ErrEscapeInvariant, lit, escaped)
		}
	}

	return nil
}

// Literals returns the protected literals, longest first
func (g *Guard) Literals() []string {
	return append([]string(nil), g.literals...)
}

func hasSentinel(s string) bool {
	for _, r := range s {
		if r >= sentinelLead && r <= sentinelLast {
			return true
		}
	}

	return false
}
