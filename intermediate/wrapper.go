package intermediate

import (
	"fmt"
	"strings"
)

// CodeWrapper splices translated tag code into the emission sequence.
//
// The raw output strictly alternates LITERAL and code segments: every EVAL or
// EXEC tag closes the current literal (even when empty) and reopens a new one.
// EMPTY tags leave the open literal untouched.
type CodeWrapper struct {
	state    *EmissionState
	segments []Segment
	literal  strings.Builder
}

// NewCodeWrapper creates a wrapper bound to the unit's state
func NewCodeWrapper(state *EmissionState) *CodeWrapper {
	return &CodeWrapper{state: state}
}

// WriteLiteral appends source text to the open literal
func (w *CodeWrapper) WriteLiteral(text string) {
	w.literal.WriteString(text)
}

// Wrap splices code according to kind and returns the segments it added
func (w *CodeWrapper) Wrap(code string, kind TagKind) ([]Segment, error) {
	return w.WrapAt(code, kind, "")
}

// WrapAt is Wrap with the tag position recorded on the code segment
func (w *CodeWrapper) WrapAt(code string, kind TagKind, pos string) ([]Segment, error) {
	start := len(w.segments)

	switch kind {
	case TagKindEval:
		w.closeLiteral()
		w.segments = append(w.segments, Segment{
			Type:  SegmentExpression,
			Value: w.state.IndentString() + code,
			Pos:   pos,
		})
	case TagKindExec:
		w.closeLiteral()
		w.segments = append(w.segments, Segment{
			Type:  SegmentStatement,
			Value: code,
			Pos:   pos,
		})
	case TagKindEmpty:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTagKind, kind)
	}

	return append([]Segment(nil), w.segments[start:]...), nil
}

// Finish closes the open literal and returns the complete sequence
func (w *CodeWrapper) Finish() []Segment {
	w.closeLiteral()

	return w.segments
}

func (w *CodeWrapper) closeLiteral() {
	w.segments = append(w.segments, Literal(w.literal.String()))
	w.literal.Reset()
}
