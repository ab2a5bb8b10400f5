package intermediate

import "fmt"

// TagKind classifies how translated tag code is spliced into the emission sequence
type TagKind int

const (
	TagKindEval  TagKind = iota // value lands at the tag position
	TagKindExec                 // statement managing its own block structure
	TagKindEmpty                // compile-time side effect only
)

// Valid reports whether k is one of the closed set of kinds
func (k TagKind) Valid() bool {
	return k == TagKindEval || k == TagKindExec || k == TagKindEmpty
}

func (k TagKind) String() string {
	switch k {
	case TagKindEval:
		return "EVAL"
	case TagKindExec:
		return "EXEC"
	case TagKindEmpty:
		return "EMPTY"
	default:
		return fmt.Sprintf("TagKind(%d)", int(k))
	}
}
