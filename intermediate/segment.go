package intermediate

import (
	"encoding/json"
	"fmt"
)

// SegmentType is the kind of one emission segment
type SegmentType int

const (
	SegmentLiteral    SegmentType = iota // LITERAL text copied verbatim
	SegmentExpression                    // EXPRESSION whose value is written
	SegmentStatement                     // STATEMENT executed for its effect
)

var segmentTypeNames = map[SegmentType]string{
	SegmentLiteral:    "LITERAL",
	SegmentExpression: "EXPRESSION",
	SegmentStatement:  "STATEMENT",
}

func (t SegmentType) String() string {
	if name, ok := segmentTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("SegmentType(%d)", int(t))
}

// MarshalJSON writes the segment type by name
func (t SegmentType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON reads a segment type name
func (t *SegmentType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	for k, v := range segmentTypeNames {
		if v == name {
			*t = k
			return nil
		}
	}

	return fmt.Errorf("unknown segment type %q", name)
}

// Segment is one ordered unit of compiled output
type Segment struct {
	Type  SegmentType `json:"type"`
	Value string      `json:"value"`
	Pos   string      `json:"pos,omitempty"` // "line:column" of the tag, empty for literals
}

// Literal creates a LITERAL segment
func Literal(text string) Segment {
	return Segment{Type: SegmentLiteral, Value: text}
}

// Expression creates an EXPRESSION segment
func Expression(code string) Segment {
	return Segment{Type: SegmentExpression, Value: code}
}

// Statement creates a STATEMENT segment
func Statement(code string) Segment {
	return Segment{Type: SegmentStatement, Value: code}
}
