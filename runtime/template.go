package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/shopspring/decimal"

	"github.com/shibukawa/snaptmpl/intermediate"
)

// Sentinel errors
var (
	ErrEvaluation  = errors.New("expression evaluation failed")
	ErrNotIterable = errors.New("loop collection is not iterable")
	ErrSetupChunk  = errors.New("malformed setup chunk")
)

// Template is a compiled template ready to render.
// It is safe for concurrent use.
type Template struct {
	format       *intermediate.IntermediateFormat
	instructions []Instruction
	setup        []setupStep
	env          *cel.Env
	programs     sync.Map // expression -> cel.Program
}

type setupStep struct {
	id       string
	variable string
	exp      string
}

// New compiles the emission sequence of format into instructions and prepares
// a CEL environment declaring every parameter and local as a dynamic variable.
func New(format *intermediate.IntermediateFormat) (*Template, error) {
	instructions, err := NewInstructionCompiler().Compile(format.Segments)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", format.Name, err)
	}

	setup := make([]setupStep, 0, len(format.SetupChunks))
	for _, chunk := range format.SetupChunks {
		name, exp, ok := strings.Cut(chunk.Code, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %s: %q", ErrSetupChunk, chunk.ID, chunk.Code)
		}

		setup = append(setup, setupStep{id: chunk.ID, variable: strings.TrimSpace(name), exp: strings.TrimSpace(exp)})
	}

	names := declaredNames(format)

	opts := make([]cel.EnvOption, 0, len(names))
	for _, name := range names {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Template{
		format:       format,
		instructions: instructions,
		setup:        setup,
		env:          env,
	}, nil
}

// Name returns the template source name
func (t *Template) Name() string {
	return t.format.Name
}

// CacheType returns the default cache type selected in the template, empty when none
func (t *Template) CacheType() string {
	return t.format.DefaultCacheType
}

// Parameters returns the parameter names referenced by the template
func (t *Template) Parameters() []string {
	return append([]string(nil), t.format.Parameters...)
}

// Instructions returns a copy of the compiled instructions
func (t *Template) Instructions() []Instruction {
	return append([]Instruction(nil), t.instructions...)
}

// Render renders the template with params
func (t *Template) Render(ctx context.Context, params map[string]any) (string, error) {
	var b strings.Builder

	if err := t.RenderTo(ctx, &b, params); err != nil {
		return "", err
	}

	return b.String(), nil
}

// RenderTo renders the template into w
func (t *Template) RenderTo(ctx context.Context, w io.Writer, params map[string]any) error {
	vars := make(map[string]any, len(params)+len(t.format.Locals))
	for k, v := range params {
		vars[k] = normalizeValue(v)
	}

	for _, step := range t.setup {
		value, err := t.eval(step.exp, vars)
		if err != nil {
			return fmt.Errorf("setup %s: %w", step.id, err)
		}

		vars[step.variable] = value
	}

	e := &executor{template: t, vars: vars, out: w}

	return e.run(ctx)
}

// loopState is one active loop
type loopState struct {
	variable string
	items    []ref.Val
	index    int
	shadowed any
	hadValue bool
}

type executor struct {
	template *Template
	vars     map[string]any
	out      io.Writer
	loops    []loopState
}

func (e *executor) run(ctx context.Context) error {
	instructions := e.template.instructions

	for pc := 0; pc < len(instructions); {
		inst := instructions[pc]
		next, err := e.step(ctx, pc, inst)
		if err != nil {
			if inst.Pos != "" {
				return fmt.Errorf("%s:%s: %w", e.template.format.Name, inst.Pos, err)
			}

			return fmt.Errorf("%s: %w", e.template.format.Name, err)
		}

		pc = next
	}

	return nil
}

// step executes one instruction and returns the next program counter
func (e *executor) step(ctx context.Context, pc int, inst Instruction) (int, error) {
	switch inst.Op {
	case OpEmitLiteral:
		if _, err := io.WriteString(e.out, inst.Value); err != nil {
			return 0, err
		}

	case OpEmitEval:
		value, err := e.template.eval(inst.Exp, e.vars)
		if err != nil {
			return 0, err
		}

		if _, err := io.WriteString(e.out, FormatValue(value)); err != nil {
			return 0, err
		}

	case OpJump:
		return inst.Target, nil

	case OpJumpIfFalse:
		value, err := e.template.eval(inst.Exp, e.vars)
		if err != nil {
			return 0, err
		}

		if !Truthy(value) {
			return inst.Target, nil
		}

	case OpLoopStart:
		value, err := e.template.eval(inst.Exp, e.vars)
		if err != nil {
			return 0, err
		}

		items, err := iterate(value)
		if err != nil {
			return 0, fmt.Errorf("%w: '%s'", err, inst.Exp)
		}

		if len(items) == 0 {
			return inst.Target, nil
		}

		shadowed, hadValue := e.vars[inst.Variable]
		e.loops = append(e.loops, loopState{
			variable: inst.Variable,
			items:    items,
			shadowed: shadowed,
			hadValue: hadValue,
		})
		e.vars[inst.Variable] = items[0]

	case OpLoopNext:
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		loop := &e.loops[len(e.loops)-1]
		loop.index++

		if loop.index < len(loop.items) {
			e.vars[loop.variable] = loop.items[loop.index]
			return inst.Target, nil
		}

		if loop.hadValue {
			e.vars[loop.variable] = loop.shadowed
		} else {
			delete(e.vars, loop.variable)
		}

		e.loops = e.loops[:len(e.loops)-1]

	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownInstruction, inst.Op)
	}

	return pc + 1, nil
}

// eval evaluates a CEL expression, compiling it on first use
func (t *Template) eval(expression string, vars map[string]any) (ref.Val, error) {
	prg, err := t.program(expression)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(vars)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", ErrEvaluation, expression, err)
	}

	return out, nil
}

func (t *Template) program(expression string) (cel.Program, error) {
	if cached, ok := t.programs.Load(expression); ok {
		return cached.(cel.Program), nil
	}

	ast, issues := t.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: '%s': %w", ErrEvaluation, expression, issues.Err())
	}

	prg, err := t.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", ErrEvaluation, expression, err)
	}

	actual, _ := t.programs.LoadOrStore(expression, prg)

	return actual.(cel.Program), nil
}

// iterate lists the elements of a CEL list, or the sorted keys of a map
func iterate(value ref.Val) ([]ref.Val, error) {
	switch v := value.(type) {
	case traits.Lister:
		size, ok := v.Size().(types.Int)
		if !ok {
			return nil, ErrNotIterable
		}

		items := make([]ref.Val, 0, int(size))
		for i := types.Int(0); i < size; i++ {
			items = append(items, v.Get(i))
		}

		return items, nil

	case traits.Mapper:
		var keys []ref.Val

		it := v.Iterator()
		for it.HasNext() == types.True {
			keys = append(keys, it.Next())
		}

		slices.SortFunc(keys, func(a, b ref.Val) int {
			return strings.Compare(fmt.Sprint(a.Value()), fmt.Sprint(b.Value()))
		})

		return keys, nil
	}

	return nil, ErrNotIterable
}

// FormatValue converts an evaluated value to its rendered text.
// null renders as the empty string; doubles never use exponent notation.
func FormatValue(value ref.Val) string {
	if value == nil || value.Type() == types.NullType {
		return ""
	}

	switch v := value.(type) {
	case types.String:
		return string(v)
	case types.Double:
		return decimal.NewFromFloat(float64(v)).String()
	case types.Int:
		return strconv.FormatInt(int64(v), 10)
	case types.Uint:
		return strconv.FormatUint(uint64(v), 10)
	case types.Bool:
		return strconv.FormatBool(bool(v))
	}

	native := value.Value()
	switch n := native.(type) {
	case decimal.Decimal:
		return n.String()
	case string:
		return n
	}

	return fmt.Sprint(native)
}

// normalizeValue rewrites decimal values, which CEL cannot adapt, into doubles
func normalizeValue(value any) any {
	switch v := value.(type) {
	case decimal.Decimal:
		return v.InexactFloat64()
	case *decimal.Decimal:
		if v == nil {
			return nil
		}

		return v.InexactFloat64()
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, item := range v {
			result[k] = normalizeValue(item)
		}

		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = normalizeValue(item)
		}

		return result
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice && rv.Type().Elem() == reflect.TypeOf(decimal.Decimal{}) {
		result := make([]any, rv.Len())
		for i := range result {
			result[i] = normalizeValue(rv.Index(i).Interface())
		}

		return result
	}

	return value
}

func declaredNames(format *intermediate.IntermediateFormat) []string {
	seen := make(map[string]bool)

	var names []string

	for _, group := range [][]string{format.Parameters, format.Locals} {
		for _, name := range group {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	return names
}
