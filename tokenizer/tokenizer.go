package tokenizer

import (
	"iter"
	"strings"
)

// TokenIterator uses Go 1.24 iterator pattern
type TokenIterator iter.Seq2[Token, error]

// MarkerTokenizer walks preprocessed text and splits it into literal runs and markers
type MarkerTokenizer struct {
	input  string
	syntax MarkerSyntax
}

// NewMarkerTokenizer creates a new MarkerTokenizer
func NewMarkerTokenizer(input string, syntax MarkerSyntax) *MarkerTokenizer {
	return &MarkerTokenizer{
		input:  input,
		syntax: syntax,
	}
}

// Tokens returns an iterator of tokens. The last token is always EOF unless an error stops the scan.
func (t *MarkerTokenizer) Tokens() TokenIterator {
	return func(yield func(Token, error) bool) {
		if err := t.syntax.Validate(); err != nil {
			yield(Token{}, err)
			return
		}

		s := &scanner{
			input:  t.input,
			syntax: t.syntax,
			line:   1,
			column: 1,
		}

		for {
			token, err := s.next()
			if err != nil {
				yield(Token{}, err)
				return
			}

			if !yield(token, nil) || token.Type == EOF {
				return
			}
		}
	}
}

// AllTokens gets all tokens as a slice
func (t *MarkerTokenizer) AllTokens() ([]Token, error) {
	tokens := make([]Token, 0, 16)

	for token, err := range t.Tokens() {
		if err != nil {
			return tokens, err
		}

		tokens = append(tokens, token)
	}

	return tokens, nil
}

// Internal scanner implementation
type scanner struct {
	input    string
	syntax   MarkerSyntax
	position int
	line     int
	column   int
}

func (s *scanner) next() (Token, error) {
	if s.position >= len(s.input) {
		return Token{Type: EOF, Position: s.pos()}, nil
	}

	if tag, ok := s.markerAt(s.position); ok {
		return s.readMarker(tag)
	}

	return s.readLiteral(), nil
}

// markerAt reports whether a marker for a known tag starts at offset
func (s *scanner) markerAt(offset int) (string, bool) {
	rest := s.input[offset:]
	if !strings.HasPrefix(rest, s.syntax.Open) {
		return "", false
	}

	rest = rest[len(s.syntax.Open):]
	for _, tag := range s.syntax.Tags {
		if strings.HasPrefix(rest, tag+s.syntax.Separator) {
			return tag, true
		}
	}

	return "", false
}

func (s *scanner) readLiteral() Token {
	start := s.pos()
	end := s.position + 1

	for end < len(s.input) {
		idx := strings.Index(s.input[end:], s.syntax.Open)
		if idx < 0 {
			end = len(s.input)
			break
		}

		end += idx
		if _, ok := s.markerAt(end); ok {
			break
		}

		end++
	}

	raw := s.input[s.position:end]
	s.advance(raw)

	return Token{
		Type:     LITERAL,
		Value:    raw,
		Raw:      raw,
		Position: start,
	}
}

func (s *scanner) readMarker(tag string) (Token, error) {
	start := s.pos()
	bodyStart := s.position + len(s.syntax.Open) + len(tag) + len(s.syntax.Separator)

	closeIdx := strings.Index(s.input[bodyStart:], s.syntax.Close)
	if closeIdx < 0 {
		return Token{}, ErrUnterminatedMarker
	}

	body := s.input[bodyStart : bodyStart+closeIdx]
	raw := s.input[s.position : bodyStart+closeIdx+len(s.syntax.Close)]
	s.advance(raw)

	if s.syntax.Unescape != nil {
		body = s.syntax.Unescape(body)
	}

	return Token{
		Type:     MARKER,
		Value:    body,
		Tag:      tag,
		Raw:      raw,
		Position: start,
	}, nil
}

func (s *scanner) advance(consumed string) {
	for _, r := range consumed {
		if r == '\n' {
			s.line++
			s.column = 1
		} else {
			s.column++
		}
	}

	s.position += len(consumed)
}

func (s *scanner) pos() Position {
	return Position{Line: s.line, Column: s.column, Offset: s.position}
}
