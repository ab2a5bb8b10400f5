package intermediate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimizeSegments(t *testing.T) {
	tests := []struct {
		name     string
		input    []Segment
		expected []Segment
	}{
		{
			name:     "empty input",
			input:    nil,
			expected: []Segment{},
		},
		{
			name:     "drops empty literals",
			input:    []Segment{Literal(""), Statement("if a"), Literal(""), Statement("end"), Literal("")},
			expected: []Segment{Statement("if a"), Statement("end")},
		},
		{
			name:     "merges adjacent literals",
			input:    []Segment{Literal("a"), Literal(""), Literal("b"), Expression("x"), Literal("c")},
			expected: []Segment{Literal("ab"), Expression("x"), Literal("c")},
		},
		{
			name:     "never merges code",
			input:    []Segment{Expression("x"), Expression("y"), Statement("z")},
			expected: []Segment{Expression("x"), Expression("y"), Statement("z")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, OptimizeSegments(tt.input))
		})
	}
}

func TestOptimizeSegments_PreservesLiteralText(t *testing.T) {
	input := []Segment{Literal("<p>"), Literal(""), Expression("v"), Literal(""), Literal("</p>")}
	assert.Equal(t, LiteralText(input), LiteralText(OptimizeSegments(input)))
}
