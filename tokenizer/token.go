package tokenizer

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrUnterminatedMarker = errors.New("unterminated tag marker")
	ErrInvalidSyntax      = errors.New("invalid marker syntax")
)

// TokenType represents the type of a token
type TokenType int

const (
	EOF     TokenType = iota
	LITERAL           // text outside any tag
	MARKER            // canonical tag marker
)

// String returns the string representation of TokenType
func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case LITERAL:
		return "LITERAL"
	case MARKER:
		return "MARKER"
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// Position represents a location in the scanned text
type Position struct {
	Line   int
	Column int
	Offset int
}

// String formats the position as line:column
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents one literal run or one marker
type Token struct {
	Type     TokenType
	Value    string // literal text, or the unescaped tag body for markers
	Tag      string // marker token (tag kind), empty for literals
	Raw      string // exact scanned text
	Position Position
}

// MarkerSyntax describes how canonical markers are framed
type MarkerSyntax struct {
	Open      string
	Close     string
	Separator string

	// Tags lists the marker tokens that may follow Open.
	// Open not followed by a listed token and Separator is literal text.
	Tags []string

	// Unescape restores escaped marker bodies; nil leaves bodies untouched
	Unescape func(string) string
}

// Validate checks the syntax definition
func (s MarkerSyntax) Validate() error {
	if s.Open == "" || s.Close == "" || s.Separator == "" {
		return fmt.Errorf("%w: open, close and separator are required", ErrInvalidSyntax)
	}

	if len(s.Tags) == 0 {
		return fmt.Errorf("%w: at least one tag token is required", ErrInvalidSyntax)
	}

	return nil
}
