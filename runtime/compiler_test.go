package runtime

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/shibukawa/snaptmpl/intermediate"
)

var (
	lit  = intermediate.Literal
	expr = intermediate.Expression
	stmt = intermediate.Statement
)

func TestInstructionCompiler(t *testing.T) {
	tests := []struct {
		name     string
		segments []intermediate.Segment
		expected []Instruction
	}{
		{
			name:     "literal and eval",
			segments: []intermediate.Segment{lit("Hi "), expr("    name"), lit("")},
			expected: []Instruction{
				{Op: OpEmitLiteral, Value: "Hi "},
				{Op: OpEmitEval, Exp: "name"},
			},
		},
		{
			name:     "if without else",
			segments: []intermediate.Segment{stmt("if a"), lit("A"), stmt("end")},
			expected: []Instruction{
				{Op: OpJumpIfFalse, Exp: "a", Target: 2},
				{Op: OpEmitLiteral, Value: "A"},
			},
		},
		{
			name:     "if elif else",
			segments: []intermediate.Segment{stmt("if a"), lit("A"), stmt("elif b"), lit("B"), stmt("else"), lit("C"), stmt("end"), lit("!")},
			expected: []Instruction{
				{Op: OpJumpIfFalse, Exp: "a", Target: 3},
				{Op: OpEmitLiteral, Value: "A"},
				{Op: OpJump, Target: 7},
				{Op: OpJumpIfFalse, Exp: "b", Target: 6},
				{Op: OpEmitLiteral, Value: "B"},
				{Op: OpJump, Target: 7},
				{Op: OpEmitLiteral, Value: "C"},
				{Op: OpEmitLiteral, Value: "!"},
			},
		},
		{
			name:     "loop",
			segments: []intermediate.Segment{stmt("for x in xs"), expr("x"), stmt("    end")},
			expected: []Instruction{
				{Op: OpLoopStart, Variable: "x", Exp: "xs", Target: 3},
				{Op: OpEmitEval, Exp: "x"},
				{Op: OpLoopNext, Variable: "x", Target: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instructions, err := NewInstructionCompiler().Compile(tt.segments)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, instructions)
		})
	}
}

func TestInstructionCompiler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		segments []intermediate.Segment
		err      error
	}{
		{name: "unknown keyword", segments: []intermediate.Segment{stmt("while x")}, err: ErrUnknownStatement},
		{name: "malformed for", segments: []intermediate.Segment{stmt("for x"), stmt("end")}, err: ErrUnknownStatement},
		{name: "end without block", segments: []intermediate.Segment{stmt("end")}, err: ErrUnbalancedStatement},
		{name: "else outside if", segments: []intermediate.Segment{stmt("for x in y"), stmt("else")}, err: ErrUnbalancedStatement},
		{name: "elif after else", segments: []intermediate.Segment{stmt("if a"), stmt("else"), stmt("elif b")}, err: ErrUnbalancedStatement},
		{name: "unclosed", segments: []intermediate.Segment{stmt("if a")}, err: ErrUnbalancedStatement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInstructionCompiler().Compile(tt.segments)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}
