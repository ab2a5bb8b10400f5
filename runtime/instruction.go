package runtime

// Instruction opcodes
const (
	OpEmitLiteral = "EMIT_LITERAL"
	OpEmitEval    = "EMIT_EVAL"
	OpJumpIfFalse = "JUMP_IF_FALSE"
	OpJump        = "JUMP"
	OpLoopStart   = "LOOP_START"
	OpLoopNext    = "LOOP_NEXT"
)

// Instruction represents a single instruction in the instruction set
type Instruction struct {
	Op       string `json:"op"`
	Pos      string `json:"pos,omitempty"`      // "line:column" of the originating tag
	Value    string `json:"value,omitempty"`    // For EMIT_LITERAL
	Exp      string `json:"exp,omitempty"`      // For EMIT_EVAL, JUMP_IF_FALSE, LOOP_START
	Target   int    `json:"target,omitempty"`   // For JUMP, JUMP_IF_FALSE, LOOP_START (exit), LOOP_NEXT (body)
	Variable string `json:"variable,omitempty"` // For LOOP_START, LOOP_NEXT
}
