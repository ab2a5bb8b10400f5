package runtime

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shibukawa/snaptmpl/intermediate"
)

// Sentinel errors
var (
	ErrUnknownStatement    = errors.New("unknown statement")
	ErrUnbalancedStatement = errors.New("unbalanced statement")
	ErrUnknownInstruction  = errors.New("unknown instruction")
)

var forStatement = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s+in\s+(.+)$`)

// frame is an open if/for while compiling
type frame struct {
	keyword  string
	pos      string
	start    int   // LOOP_START index for loops
	pending  int   // JUMP_IF_FALSE waiting for its target, -1 when none
	endJumps []int // JUMPs to the end of an if chain
	hasElse  bool
}

// InstructionCompiler compiles an emission sequence into jump instructions
type InstructionCompiler struct {
	instructions []Instruction
	frames       []frame
}

// NewInstructionCompiler creates a new instruction compiler
func NewInstructionCompiler() *InstructionCompiler {
	return &InstructionCompiler{}
}

// Compile compiles segments. Jump targets are resolved before returning.
func (c *InstructionCompiler) Compile(segments []intermediate.Segment) ([]Instruction, error) {
	c.instructions = make([]Instruction, 0, len(segments))
	c.frames = c.frames[:0]

	for _, seg := range segments {
		var err error

		switch seg.Type {
		case intermediate.SegmentLiteral:
			if seg.Value != "" {
				c.emit(Instruction{Op: OpEmitLiteral, Pos: seg.Pos, Value: seg.Value})
			}
		case intermediate.SegmentExpression:
			c.emit(Instruction{Op: OpEmitEval, Pos: seg.Pos, Exp: strings.TrimSpace(seg.Value)})
		case intermediate.SegmentStatement:
			err = c.compileStatement(seg)
		default:
			err = fmt.Errorf("%w: segment type %s", ErrUnknownStatement, seg.Type)
		}

		if err != nil {
			return nil, err
		}
	}

	if len(c.frames) > 0 {
		f := c.frames[len(c.frames)-1]
		return nil, fmt.Errorf("%w: '%s' at %s is never closed", ErrUnbalancedStatement, f.keyword, f.pos)
	}

	return c.instructions, nil
}

func (c *InstructionCompiler) compileStatement(seg intermediate.Segment) error {
	keyword, rest := splitStatement(seg.Value)

	switch keyword {
	case "if":
		c.frames = append(c.frames, frame{keyword: "if", pos: seg.Pos, pending: c.emitJumpIfFalse(rest, seg.Pos)})

	case "elif", "else":
		f, err := c.topIf(keyword, seg.Pos)
		if err != nil {
			return err
		}

		f.endJumps = append(f.endJumps, c.emit(Instruction{Op: OpJump, Pos: seg.Pos}))
		c.resolve(f.pending)
		f.pending = -1

		if keyword == "elif" {
			f.pending = c.emitJumpIfFalse(rest, seg.Pos)
		} else {
			f.hasElse = true
		}

	case "for":
		m := forStatement.FindStringSubmatch(rest)
		if m == nil {
			return fmt.Errorf("%w: malformed loop '%s' at %s", ErrUnknownStatement, strings.TrimSpace(seg.Value), seg.Pos)
		}

		start := c.emit(Instruction{Op: OpLoopStart, Pos: seg.Pos, Variable: m[1], Exp: m[2]})
		c.frames = append(c.frames, frame{keyword: "for", pos: seg.Pos, start: start, pending: -1})

	case "end":
		if len(c.frames) == 0 {
			return fmt.Errorf("%w: 'end' at %s without open block", ErrUnbalancedStatement, seg.Pos)
		}

		f := c.frames[len(c.frames)-1]
		c.frames = c.frames[:len(c.frames)-1]

		if f.keyword == "for" {
			c.emit(Instruction{Op: OpLoopNext, Pos: seg.Pos, Variable: c.instructions[f.start].Variable, Target: f.start + 1})
			c.instructions[f.start].Target = len(c.instructions)

			return nil
		}

		c.resolve(f.pending)

		for _, j := range f.endJumps {
			c.instructions[j].Target = len(c.instructions)
		}

	default:
		return fmt.Errorf("%w: '%s' at %s", ErrUnknownStatement, strings.TrimSpace(seg.Value), seg.Pos)
	}

	return nil
}

func (c *InstructionCompiler) topIf(keyword, pos string) (*frame, error) {
	if len(c.frames) == 0 || c.frames[len(c.frames)-1].keyword != "if" {
		return nil, fmt.Errorf("%w: '%s' at %s outside of 'if'", ErrUnbalancedStatement, keyword, pos)
	}

	f := &c.frames[len(c.frames)-1]
	if f.hasElse {
		return nil, fmt.Errorf("%w: '%s' at %s after 'else'", ErrUnbalancedStatement, keyword, pos)
	}

	return f, nil
}

func (c *InstructionCompiler) emit(inst Instruction) int {
	c.instructions = append(c.instructions, inst)
	return len(c.instructions) - 1
}

func (c *InstructionCompiler) emitJumpIfFalse(exp, pos string) int {
	return c.emit(Instruction{Op: OpJumpIfFalse, Pos: pos, Exp: exp})
}

// resolve points a pending conditional jump at the next instruction
func (c *InstructionCompiler) resolve(index int) {
	if index >= 0 {
		c.instructions[index].Target = len(c.instructions)
	}
}

func splitStatement(code string) (string, string) {
	code = strings.TrimSpace(code)

	i := strings.IndexFunc(code, unicode.IsSpace)
	if i < 0 {
		return code, ""
	}

	return code[:i], strings.TrimSpace(code[i:])
}
