package intermediate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shibukawa/snaptmpl"
)

// Block is an open control structure tracked by directive translators
type Block struct {
	Keyword string // "if" or "for"
	Pos     string
	HasElse bool
	Locals  []string // names bound only while the block is open
}

// EmissionState is the mutable record of one compilation unit.
// It is owned by exactly one unit and must not be shared between goroutines.
type EmissionState struct {
	indentLevel  int
	indentSeeded bool
	indentStep   string

	locals    []string // nil until initialized
	localSet  map[string]struct{}
	setup     map[string]string // nil until initialized
	setupKeys []string

	defaultCacheType string
	cacheSeeded      bool

	blocks []Block
}

// EnsureInitialized seeds every field that is still absent. Fields populated by
// earlier directives of the same unit are left untouched, so repeated calls are no-ops.
func (s *EmissionState) EnsureInitialized(cfg snaptmpl.CompilerConfig) {
	if !s.indentSeeded {
		s.indentLevel = cfg.InitialIndentLevel
		s.indentStep = cfg.IndentationStep
		s.indentSeeded = true
	}

	if s.locals == nil {
		s.locals = []string{}
		s.localSet = make(map[string]struct{})
	}

	if s.setup == nil {
		s.setup = make(map[string]string)
	}

	if !s.cacheSeeded {
		s.defaultCacheType = ""
		s.cacheSeeded = true
	}
}

// IndentLevel returns the current indentation depth
func (s *EmissionState) IndentLevel() int {
	return s.indentLevel
}

// IndentString returns the indentation prefix for the current level
func (s *EmissionState) IndentString() string {
	return strings.Repeat(s.indentStep, s.indentLevel)
}

// Indent increases the indentation level by one
func (s *EmissionState) Indent() {
	s.indentLevel++
}

// Dedent decreases the indentation level by one
func (s *EmissionState) Dedent() error {
	if s.indentLevel == 0 {
		return ErrNegativeIndent
	}

	s.indentLevel--

	return nil
}

// DeclareLocal records a local variable name; redeclaring keeps the first position
func (s *EmissionState) DeclareLocal(name string) {
	if s.localSet == nil {
		s.localSet = make(map[string]struct{})
	}

	if _, ok := s.localSet[name]; ok {
		return
	}

	s.localSet[name] = struct{}{}
	s.locals = append(s.locals, name)
}

// IsLocal reports whether name was declared as a local variable
func (s *EmissionState) IsLocal(name string) bool {
	_, ok := s.localSet[name]
	return ok
}

// Locals returns the local variable names in declaration order
func (s *EmissionState) Locals() []string {
	return append([]string(nil), s.locals...)
}

// SetupChunk is code run once per render before the main sequence
type SetupChunk struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// AddSetupChunk stores code under id. A later chunk with the same id replaces the
// code but keeps the original position.
func (s *EmissionState) AddSetupChunk(id, code string) {
	if s.setup == nil {
		s.setup = make(map[string]string)
	}

	if _, exists := s.setup[id]; !exists {
		s.setupKeys = append(s.setupKeys, id)
	}

	s.setup[id] = code
}

// SetupChunks returns the setup chunks in insertion order
func (s *EmissionState) SetupChunks() []SetupChunk {
	chunks := make([]SetupChunk, 0, len(s.setupKeys))
	for _, id := range s.setupKeys {
		chunks = append(chunks, SetupChunk{ID: id, Code: s.setup[id]})
	}

	return chunks
}

// SetDefaultCacheType records the default cache type of the unit
func (s *EmissionState) SetDefaultCacheType(cacheType string) {
	s.defaultCacheType = cacheType
	s.cacheSeeded = true
}

// DefaultCacheType returns the default cache type, empty when none was set
func (s *EmissionState) DefaultCacheType() string {
	return s.defaultCacheType
}

// PushBlock opens a control block
func (s *EmissionState) PushBlock(b Block) {
	s.blocks = append(s.blocks, b)
}

// TopBlock returns the innermost open block
func (s *EmissionState) TopBlock() (*Block, bool) {
	if len(s.blocks) == 0 {
		return nil, false
	}

	return &s.blocks[len(s.blocks)-1], true
}

// PopBlock closes the innermost open block
func (s *EmissionState) PopBlock() (Block, error) {
	if len(s.blocks) == 0 {
		return Block{}, fmt.Errorf("%w: no open block", ErrUnexpectedDirective)
	}

	b := s.blocks[len(s.blocks)-1]
	s.blocks = s.blocks[:len(s.blocks)-1]

	return b, nil
}

// BlockLocal returns the innermost open block binding name
func (s *EmissionState) BlockLocal(name string) (Block, bool) {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		if slices.Contains(s.blocks[i].Locals, name) {
			return s.blocks[i], true
		}
	}

	return Block{}, false
}

// OpenBlocks returns the number of blocks not yet closed
func (s *EmissionState) OpenBlocks() int {
	return len(s.blocks)
}
