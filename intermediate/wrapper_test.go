package intermediate

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/shibukawa/snaptmpl"
)

func newState(level int, step string) *EmissionState {
	state := &EmissionState{}
	state.EnsureInitialized(snaptmpl.CompilerConfig{InitialIndentLevel: level, IndentationStep: step})

	return state
}

func TestCodeWrapper_EvalIndentation(t *testing.T) {
	w := NewCodeWrapper(newState(2, "  "))

	w.WriteLiteral("before")
	added, err := w.Wrap("1+1", TagKindEval)
	assert.NoError(t, err)
	assert.Equal(t, []Segment{Literal("before"), Expression("    1+1")}, added)

	w.WriteLiteral("after")
	assert.Equal(t, []Segment{
		Literal("before"),
		Expression("    1+1"),
		Literal("after"),
	}, w.Finish())
}

func TestCodeWrapper_EvalBoundariesOnly(t *testing.T) {
	w := NewCodeWrapper(newState(2, "  "))

	_, err := w.Wrap("1+1", TagKindEval)
	assert.NoError(t, err)

	// closed literal, expression, reopened literal
	assert.Equal(t, []Segment{Literal(""), Expression("    1+1"), Literal("")}, w.Finish())
}

func TestCodeWrapper_ExecVerbatim(t *testing.T) {
	codes := []string{
		"if x",
		"",
		"  for item in items\n  nested",
		"end",
	}

	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			w := NewCodeWrapper(newState(3, "    "))
			w.WriteLiteral("a")

			_, err := w.Wrap(code, TagKindExec)
			assert.NoError(t, err)

			w.WriteLiteral("b")
			segments := w.Finish()

			assert.Equal(t, []Segment{Literal("a"), Statement(code), Literal("b")}, segments)
		})
	}
}

func TestCodeWrapper_ExecTwoBoundariesPerTag(t *testing.T) {
	w := NewCodeWrapper(newState(0, "  "))

	for range 3 {
		_, err := w.Wrap("stmt", TagKindExec)
		assert.NoError(t, err)
	}

	segments := w.Finish()

	// n tags add 2n boundaries: n closed literals plus the final one around n statements
	assert.Equal(t, 7, len(segments))

	for i, seg := range segments {
		if i%2 == 0 {
			assert.Equal(t, SegmentLiteral, seg.Type)
		} else {
			assert.Equal(t, Statement("stmt"), seg)
		}
	}
}

func TestCodeWrapper_EmptyIsInvisible(t *testing.T) {
	w := NewCodeWrapper(newState(1, "  "))

	w.WriteLiteral("Hello ")
	added, err := w.Wrap("x = 1", TagKindEmpty)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(added))

	w.WriteLiteral("World")
	assert.Equal(t, []Segment{Literal("Hello World")}, w.Finish())
}

func TestCodeWrapper_UnknownKind(t *testing.T) {
	w := NewCodeWrapper(newState(0, "  "))
	w.WriteLiteral("text")

	_, err := w.Wrap("code", TagKind(42))
	assert.True(t, errors.Is(err, ErrUnknownTagKind))

	// nothing was spliced
	assert.Equal(t, []Segment{Literal("text")}, w.Finish())
}

func TestCodeWrapper_WrapAtRecordsPosition(t *testing.T) {
	w := NewCodeWrapper(newState(0, "  "))

	_, err := w.WrapAt("x", TagKindEval, "3:7")
	assert.NoError(t, err)

	segments := w.Finish()
	assert.Equal(t, "3:7", segments[1].Pos)
}
