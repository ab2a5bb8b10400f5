package intermediate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shibukawa/snaptmpl"
	"github.com/shibukawa/snaptmpl/tagscan"
	"github.com/shibukawa/snaptmpl/tokenizer"
)

// TokenProcessor defines the interface for unit processing stages
type TokenProcessor interface {
	Process(ctx *ProcessingContext) error
	Name() string
}

// ProcessingContext holds the context of one unit while it moves through the pipeline
type ProcessingContext struct {
	Unit     *Unit
	Config   snaptmpl.CompilerConfig
	Text     string // source, then preprocessed text
	Segments []Segment
}

// Unit is one compilation unit: a template source compiled in a single pass
type Unit struct {
	ID     string
	Name   string
	Source string

	state    *EmissionState
	params   []string
	paramSet map[string]struct{}
	compiler *Compiler
}

// NewUnit creates a compilation unit with a fresh ID
func NewUnit(name, source string) *Unit {
	return &Unit{
		ID:     uuid.NewString(),
		Name:   name,
		Source: source,
	}
}

// State returns the unit's emission state, creating it on first access
func (u *Unit) State() *EmissionState {
	if u.state == nil {
		u.state = &EmissionState{}
	}

	return u.state
}

// AddParameter records a render-time parameter referenced by the unit
func (u *Unit) AddParameter(name string) {
	if u.paramSet == nil {
		u.paramSet = make(map[string]struct{})
	}

	if _, ok := u.paramSet[name]; ok {
		return
	}

	u.paramSet[name] = struct{}{}
	u.params = append(u.params, name)
}

// Parameters returns the referenced parameters in first-use order
func (u *Unit) Parameters() []string {
	return append([]string(nil), u.params...)
}

// TagContext is passed to translators; it threads the unit state through every call
type TagContext struct {
	Unit *Unit
	Tag  string
	Pos  tokenizer.Position
}

// State returns the emission state of the unit being compiled
func (tc *TagContext) State() *EmissionState {
	return tc.Unit.State()
}

// Config returns the compiler configuration
func (tc *TagContext) Config() snaptmpl.CompilerConfig {
	return tc.Unit.compiler.config
}

// AddParameter records a render-time parameter
func (tc *TagContext) AddParameter(name string) {
	if tc.Unit.State().IsLocal(name) {
		return
	}

	tc.Unit.AddParameter(name)
}

// TranslateNested scans body for tags and replaces every EVAL tag with its
// translated code. EMPTY tags are translated for their side effects and dropped.
// EXEC tags cannot be nested.
func (tc *TagContext) TranslateNested(body string) (string, error) {
	c := tc.Unit.compiler

	tokens, err := c.tokenize(c.table.Preprocess(body))
	if err != nil {
		return "", err
	}

	var b strings.Builder

	for _, token := range tokens {
		switch token.Type {
		case tokenizer.LITERAL:
			b.WriteString(token.Value)
		case tokenizer.MARKER:
			d, ok := c.registry.Lookup(token.Tag)
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrUnknownTag, token.Tag)
			}

			if d.Kind == TagKindExec {
				return "", fmt.Errorf("%w: %s in %q", ErrNestedDirective, d.Name, body)
			}

			nested := &TagContext{Unit: tc.Unit, Tag: d.Name, Pos: tc.Pos}

			code, err := d.Translator.Translate(nested, token.Value)
			if err != nil {
				return "", err
			}

			if d.Kind == TagKindEval {
				b.WriteString(code)
			}
		}
	}

	return b.String(), nil
}

// Compiler compiles template sources into intermediate formats.
// It is immutable after construction and safe for concurrent use; every call
// to Compile owns its own Unit and EmissionState.
type Compiler struct {
	config     snaptmpl.CompilerConfig
	registry   *Registry
	table      *tagscan.Table
	syntax     tokenizer.MarkerSyntax
	processors []TokenProcessor
}

// NewCompiler validates the configuration and builds the delimiter table
func NewCompiler(cfg snaptmpl.CompilerConfig, reg *Registry) (*Compiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// snapshot so later registrations do not leak into a running compiler
	snapshot := NewRegistry()
	snapshot.SetPlaceholderEscaper(reg.PlaceholderEscaper())

	for _, d := range reg.Descriptors() {
		if err := snapshot.Register(d); err != nil {
			return nil, err
		}
	}

	table, err := snapshot.Table(cfg)
	if err != nil {
		return nil, err
	}

	open, closeDelim := table.InternalDelims()

	c := &Compiler{
		config:   cfg,
		registry: snapshot,
		table:    table,
		syntax: tokenizer.MarkerSyntax{
			Open:      open,
			Close:     closeDelim,
			Separator: cfg.TagTokenSeparator,
			Tags:      table.Tokens(),
			Unescape:  table.Guard().Unescape,
		},
	}

	c.processors = []TokenProcessor{
		&ReservedSequenceChecker{},
		&Preprocessor{},
		&Emitter{},
		&BlockBalanceChecker{},
		&SegmentOptimizer{},
	}

	return c, nil
}

// Table returns the shared delimiter table
func (c *Compiler) Table() *tagscan.Table {
	return c.table
}

// Config returns the compiler configuration
func (c *Compiler) Config() snaptmpl.CompilerConfig {
	return c.config
}

// Compile compiles one template source
func (c *Compiler) Compile(name, source string) (*IntermediateFormat, error) {
	return c.CompileUnit(NewUnit(name, source))
}

// CompileUnit runs the pipeline over an existing unit. State already present on
// the unit, such as locals declared by an earlier pass, is preserved.
func (c *Compiler) CompileUnit(unit *Unit) (*IntermediateFormat, error) {
	unit.compiler = c

	ctx := &ProcessingContext{
		Unit:   unit,
		Config: c.config,
		Text:   unit.Source,
	}

	// Execute each processor in order
	for _, processor := range c.processors {
		err := processor.Process(ctx)
		if err != nil {
			return nil, fmt.Errorf("processor %s failed: %w", processor.Name(), err)
		}
	}

	state := unit.State()

	return &IntermediateFormat{
		FormatVersion:    FormatVersion,
		ID:               unit.ID,
		Name:             unit.Name,
		Segments:         ctx.Segments,
		Locals:           state.Locals(),
		SetupChunks:      state.SetupChunks(),
		DefaultCacheType: state.DefaultCacheType(),
		Parameters:       unit.Parameters(),
	}, nil
}

func (c *Compiler) tokenize(text string) ([]tokenizer.Token, error) {
	return tokenizer.NewMarkerTokenizer(text, c.syntax).AllTokens()
}

// ReservedSequenceChecker rejects sources that already contain a canonical marker prefix
type ReservedSequenceChecker struct{}

func (p *ReservedSequenceChecker) Name() string { return "ReservedSequenceChecker" }

func (p *ReservedSequenceChecker) Process(ctx *ProcessingContext) error {
	c := ctx.Unit.compiler

	for _, token := range c.syntax.Tags {
		prefix := c.syntax.Open + token + c.syntax.Separator

		idx := strings.Index(ctx.Text, prefix)
		if idx >= 0 {
			line := strings.Count(ctx.Text[:idx], "\n") + 1
			return fmt.Errorf("%w: '%s' at line %d", ErrReservedSequence, prefix, line)
		}
	}

	return nil
}

// Preprocessor rewrites every recognized tag into a canonical marker
type Preprocessor struct{}

func (p *Preprocessor) Name() string { return "Preprocessor" }

func (p *Preprocessor) Process(ctx *ProcessingContext) error {
	ctx.Text = ctx.Unit.compiler.table.Preprocess(ctx.Text)
	return nil
}

// Emitter walks the markers in source order, translates them and wraps the code
type Emitter struct{}

func (p *Emitter) Name() string { return "Emitter" }

func (p *Emitter) Process(ctx *ProcessingContext) error {
	unit := ctx.Unit
	c := unit.compiler

	state := unit.State()
	state.EnsureInitialized(ctx.Config)

	tokens, err := c.tokenize(ctx.Text)
	if err != nil {
		return err
	}

	wrapper := NewCodeWrapper(state)

	for _, token := range tokens {
		switch token.Type {
		case tokenizer.LITERAL:
			wrapper.WriteLiteral(token.Value)
		case tokenizer.MARKER:
			d, ok := c.registry.Lookup(token.Tag)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownTag, token.Tag)
			}

			pos := token.Position.String()
			tc := &TagContext{Unit: unit, Tag: d.Name, Pos: token.Position}

			code, err := d.Translator.Translate(tc, token.Value)
			if err != nil {
				return newTagError(d.Name, pos, token.Position.Line, unit.Name, unit.Source, err)
			}

			if _, err := wrapper.WrapAt(code, d.Kind, pos); err != nil {
				return err
			}
		}
	}

	ctx.Segments = wrapper.Finish()

	return nil
}

// BlockBalanceChecker reports control blocks left open at the end of the unit
type BlockBalanceChecker struct{}

func (p *BlockBalanceChecker) Name() string { return "BlockBalanceChecker" }

func (p *BlockBalanceChecker) Process(ctx *ProcessingContext) error {
	if b, open := ctx.Unit.State().TopBlock(); open {
		return fmt.Errorf("%w: '%s' opened at %s", ErrUnclosedBlock, b.Keyword, b.Pos)
	}

	return nil
}

// SegmentOptimizer drops empty literals and merges adjacent ones
type SegmentOptimizer struct{}

func (p *SegmentOptimizer) Name() string { return "SegmentOptimizer" }

func (p *SegmentOptimizer) Process(ctx *ProcessingContext) error {
	ctx.Segments = OptimizeSegments(ctx.Segments)
	return nil
}
