package runtime

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/shibukawa/snaptmpl/intermediate"
	"github.com/shibukawa/snaptmpl/testhelper"
	"github.com/shibukawa/snaptmpl/translate"
)

func newTemplate(t *testing.T, source string) *Template {
	t.Helper()

	c, err := translate.NewCompiler(nil)
	assert.NoError(t, err)

	format, err := c.Compile("test.tmpl", source)
	assert.NoError(t, err)

	tmpl, err := New(format)
	assert.NoError(t, err)

	return tmpl
}

func render(t *testing.T, source string, params map[string]any) string {
	t.Helper()

	out, err := newTemplate(t, source).Render(context.Background(), params)
	assert.NoError(t, err)

	return out
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		params   map[string]any
		expected string
	}{
		{
			name:     "plain text",
			source:   "no tags at all",
			expected: "no tags at all",
		},
		{
			name:     "placeholders",
			source:   "Hello $user.name, you are ${ user.age + 1 } next year",
			params:   map[string]any{"user": map[string]any{"name": "Ann", "age": 41}},
			expected: "Hello Ann, you are 42 next year",
		},
		{
			name:     "if true",
			source:   "#if admin#[admin]#end#ok",
			params:   map[string]any{"admin": true},
			expected: "[admin]ok",
		},
		{
			name:     "if false with truthy string",
			source:   "#if note#($note)#else#-#end#",
			params:   map[string]any{"note": ""},
			expected: "-",
		},
		{
			name:     "elif chain",
			source:   "#if n > 10#big#elif n > 1#medium#else#small#end#",
			params:   map[string]any{"n": 5},
			expected: "medium",
		},
		{
			name:     "loop",
			source:   "#for item in items#<$item>#end#",
			params:   map[string]any{"items": []any{"a", "b", "c"}},
			expected: "<a><b><c>",
		},
		{
			name:     "empty loop",
			source:   "[#for item in items#$item#end#]",
			params:   map[string]any{"items": []string{}},
			expected: "[]",
		},
		{
			name:     "nested loops",
			source:   "#for row in rows#[#for cell in row#$cell#end#]#end#",
			params:   map[string]any{"rows": []any{[]any{1, 2}, []any{3}}},
			expected: "[12][3]",
		},
		{
			name:     "map keys are sorted",
			source:   "#for k in m#${k}=${m[k]} #end#",
			params:   map[string]any{"m": map[string]any{"b": 2, "a": 1}},
			expected: "a=1 b=2 ",
		},
		{
			name:     "set",
			source:   "#set greeting = 'Hi ' + name#$greeting!",
			params:   map[string]any{"name": "Bo"},
			expected: "Hi Bo!",
		},
		{
			name:     "comment",
			source:   "a## hidden $x\nb",
			expected: "a\nb",
		},
		{
			name:     "adjacent directives",
			source:   "#if a#x#else##if b#y#end##end#",
			params:   map[string]any{"a": false, "b": true},
			expected: "y",
		},
		{
			name:     "double hash in a string",
			source:   `${ "a##b" } tail`,
			expected: "a##b tail",
		},
		{
			name:     "map literal",
			source:   "${ {'a': n}['a'] }",
			params:   map[string]any{"n": 3},
			expected: "3",
		},
		{
			name:     "null renders empty",
			source:   "[${ null }]",
			expected: "[]",
		},
		{
			name:     "decimal parameter",
			source:   "total: ${ price * 2.0 }",
			params:   map[string]any{"price": decimal.RequireFromString("1.25")},
			expected: "total: 2.5",
		},
		{
			name:     "bool",
			source:   "$flag",
			params:   map[string]any{"flag": false},
			expected: "false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, render(t, tt.source, tt.params))
		})
	}
}

func TestRender_MultiLine(t *testing.T) {
	source := testhelper.TrimIndent(t, `
		<ul>
		#for user in users#  <li>$user.name#if user.admin# (admin)#end#</li>
		#end#</ul>`)

	out := render(t, source, map[string]any{
		"users": []any{
			map[string]any{"name": "ann", "admin": true},
			map[string]any{"name": "bob", "admin": false},
		},
	})

	assert.Equal(t, "<ul>\n  <li>ann (admin)</li>\n  <li>bob</li>\n</ul>", out)
}

func TestRender_LoopVariableShadowing(t *testing.T) {
	out := render(t, "$x#for x in xs#$x#end#$x", map[string]any{
		"x":  "outer",
		"xs": []any{1, 2},
	})
	assert.Equal(t, "outer12outer", out)
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		params map[string]any
		err    error
	}{
		{name: "missing parameter", source: "$missing", err: ErrEvaluation},
		{name: "type error", source: "${ a + 1 }", params: map[string]any{"a": "s"}, err: ErrEvaluation},
		{name: "not iterable", source: "#for x in n#$x#end#", params: map[string]any{"n": 3}, err: ErrNotIterable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTemplate(t, tt.source).Render(context.Background(), tt.params)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
			assert.Contains(t, err.Error(), "test.tmpl:")
		})
	}
}

func TestRender_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTemplate(t, "#for x in xs#$x#end#").Render(ctx, map[string]any{"xs": []any{1, 2}})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRender_Concurrent(t *testing.T) {
	tmpl := newTemplate(t, "#for i in items#${ i * factor },#end#")

	var wg sync.WaitGroup

	for factor := 1; factor <= 8; factor++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			out, err := tmpl.Render(context.Background(), map[string]any{
				"items":  []any{1, 2},
				"factor": factor,
			})
			assert.NoError(t, err)
			assert.Equal(t, strconv.Itoa(factor)+","+strconv.Itoa(2*factor)+",", out)
		}()
	}

	wg.Wait()
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&intermediate.IntermediateFormat{
		Name:     "bad",
		Segments: []intermediate.Segment{intermediate.Statement("if a")},
	})
	assert.True(t, errors.Is(err, ErrUnbalancedStatement))

	_, err = New(&intermediate.IntermediateFormat{
		Name:        "bad-setup",
		SetupChunks: []intermediate.SetupChunk{{ID: "set:x", Code: "no assignment"}},
	})
	assert.True(t, errors.Is(err, ErrSetupChunk))
}

func TestTemplate_Metadata(t *testing.T) {
	tmpl := newTemplate(t, "#cache refresh#$a")

	assert.Equal(t, "test.tmpl", tmpl.Name())
	assert.Equal(t, "refresh", tmpl.CacheType())
	assert.Equal(t, []string{"a"}, tmpl.Parameters())
	assert.Equal(t, []Instruction{{Op: OpEmitEval, Pos: "1:28", Exp: "a"}}, tmpl.Instructions())
}
