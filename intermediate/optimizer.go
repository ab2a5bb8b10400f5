package intermediate

import "strings"

// OptimizeSegments removes empty LITERAL segments and merges adjacent ones.
// Adjacent literals appear after EMPTY tags or once empty literals are dropped;
// code segments are never reordered or merged.
func OptimizeSegments(segments []Segment) []Segment {
	result := make([]Segment, 0, len(segments))

	var pending strings.Builder

	hasPending := false

	flush := func() {
		if hasPending && pending.Len() > 0 {
			result = append(result, Literal(pending.String()))
		}

		pending.Reset()

		hasPending = false
	}

	for _, seg := range segments {
		if seg.Type == SegmentLiteral {
			pending.WriteString(seg.Value)
			hasPending = true

			continue
		}

		flush()

		result = append(result, seg)
	}

	flush()

	return result
}

// LiteralText concatenates every LITERAL segment in order
func LiteralText(segments []Segment) string {
	var b strings.Builder

	for _, seg := range segments {
		if seg.Type == SegmentLiteral {
			b.WriteString(seg.Value)
		}
	}

	return b.String()
}
