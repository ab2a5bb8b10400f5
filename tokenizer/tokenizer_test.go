package tokenizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func testSyntax() MarkerSyntax {
	return MarkerSyntax{
		Open:      "<%",
		Close:     "%>",
		Separator: "__@__",
		Tags:      []string{"comment", "directive", "placeholder"},
	}
}

func TestTokenIterator(t *testing.T) {
	input := "Hello <%placeholder__@__name%>!"
	tokenizer := NewMarkerTokenizer(input, testSyntax())

	expectedTypes := []TokenType{LITERAL, MARKER, LITERAL, EOF}

	var actualTypes []TokenType
	for token, err := range tokenizer.Tokens() {
		assert.NoError(t, err)

		actualTypes = append(actualTypes, token.Type)
	}

	assert.Equal(t, expectedTypes, actualTypes)
}

func TestIteratorEarlyTermination(t *testing.T) {
	input := "a<%placeholder__@__x%>b<%placeholder__@__y%>c"
	tokenizer := NewMarkerTokenizer(input, testSyntax())

	count := 0
	for _, err := range tokenizer.Tokens() {
		assert.NoError(t, err)

		count++

		if count >= 2 {
			break
		}
	}

	assert.Equal(t, 2, count)
}

func TestMarkerTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "literal only",
			input: "plain text",
			expected: []Token{
				{Type: LITERAL, Value: "plain text"},
			},
		},
		{
			name:  "marker only",
			input: "<%directive__@__if ok%>",
			expected: []Token{
				{Type: MARKER, Tag: "directive", Value: "if ok"},
			},
		},
		{
			name:  "adjacent markers",
			input: "<%placeholder__@__a%><%placeholder__@__b%>",
			expected: []Token{
				{Type: MARKER, Tag: "placeholder", Value: "a"},
				{Type: MARKER, Tag: "placeholder", Value: "b"},
			},
		},
		{
			name:  "empty body",
			input: "x<%comment__@__%>y",
			expected: []Token{
				{Type: LITERAL, Value: "x"},
				{Type: MARKER, Tag: "comment", Value: ""},
				{Type: LITERAL, Value: "y"},
			},
		},
		{
			name:  "open without known tag is literal",
			input: "a <% b %> <%other__@__c%>",
			expected: []Token{
				{Type: LITERAL, Value: "a <% b %> <%other__@__c%>"},
			},
		},
		{
			name:  "lone open before marker",
			input: "<%<%placeholder__@__v%>",
			expected: []Token{
				{Type: LITERAL, Value: "<%"},
				{Type: MARKER, Tag: "placeholder", Value: "v"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewMarkerTokenizer(tt.input, testSyntax()).AllTokens()
			assert.NoError(t, err)

			// strip EOF and positions
			var got []Token
			for _, tok := range tokens {
				if tok.Type == EOF {
					continue
				}

				got = append(got, Token{Type: tok.Type, Tag: tok.Tag, Value: tok.Value})
			}

			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRawReassemblesInput(t *testing.T) {
	input := "line1\n<%placeholder__@__a%> and <%directive__@__end%>\n<%x"
	tokens, err := NewMarkerTokenizer(input, testSyntax()).AllTokens()
	assert.NoError(t, err)

	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(tok.Raw)
	}

	assert.Equal(t, input, sb.String())
}

func TestPositions(t *testing.T) {
	input := "ab\ncd<%placeholder__@__x%>\n<%placeholder__@__y%>"
	tokens, err := NewMarkerTokenizer(input, testSyntax()).AllTokens()
	assert.NoError(t, err)

	assert.Equal(t, Position{Line: 1, Column: 1, Offset: 0}, tokens[0].Position)
	assert.Equal(t, MARKER, tokens[1].Type)
	assert.Equal(t, Position{Line: 2, Column: 3, Offset: 5}, tokens[1].Position)
	assert.Equal(t, MARKER, tokens[3].Type)
	assert.Equal(t, 3, tokens[3].Position.Line)
	assert.Equal(t, 1, tokens[3].Position.Column)
	assert.Equal(t, "3:1", tokens[3].Position.String())
	assert.Equal(t, EOF, tokens[len(tokens)-1].Type)
}

func TestUnescapeBody(t *testing.T) {
	syntax := testSyntax()
	syntax.Unescape = func(s string) string {
		return strings.ReplaceAll(s, "\uE000\uE001", "${")
	}

	tokens, err := NewMarkerTokenizer("<%placeholder__@__\uE000\uE001x}%>", syntax).AllTokens()
	assert.NoError(t, err)
	assert.Equal(t, "${x}", tokens[0].Value)
	assert.Equal(t, "<%placeholder__@__\uE000\uE001x}%>", tokens[0].Raw)
}

func TestUnterminatedMarker(t *testing.T) {
	_, err := NewMarkerTokenizer("text <%placeholder__@__name", testSyntax()).AllTokens()
	assert.True(t, errors.Is(err, ErrUnterminatedMarker))
}

func TestInvalidSyntax(t *testing.T) {
	tests := []struct {
		name   string
		syntax MarkerSyntax
	}{
		{name: "missing open", syntax: MarkerSyntax{Close: "%>", Separator: ":", Tags: []string{"a"}}},
		{name: "missing separator", syntax: MarkerSyntax{Open: "<%", Close: "%>", Tags: []string{"a"}}},
		{name: "no tags", syntax: MarkerSyntax{Open: "<%", Close: "%>", Separator: ":"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMarkerTokenizer("x", tt.syntax).AllTokens()
			assert.IsError(t, err, ErrInvalidSyntax)
		})
	}
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "LITERAL", LITERAL.String())
	assert.Equal(t, "MARKER", MARKER.String())
	assert.Equal(t, "EOF", EOF.String())
	assert.Equal(t, "TokenType(9)", TokenType(9).String())
}
