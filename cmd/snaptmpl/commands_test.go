package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/shibukawa/snaptmpl/testhelper"
)

func testContext(t *testing.T, dir string) (*Context, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer

	return &Context{
		Config: filepath.Join(dir, "snaptmpl.yaml"),
		Quiet:  true,
		Stdout: &out,
	}, &out
}

func TestParseParamValue(t *testing.T) {
	tests := []struct {
		input    string
		expected any
	}{
		{input: "hello", expected: "hello"},
		{input: "true", expected: true},
		{input: "false", expected: false},
		{input: "42", expected: int64(42)},
		{input: "-3", expected: int64(-3)},
		{input: "1.5", expected: 1.5},
		{input: "1.2.3", expected: "1.2.3"},
		{input: `["a","b"]`, expected: []any{"a", "b"}},
		{input: `{"k":1}`, expected: map[string]any{"k": float64(1)}},
		{input: "{not json}", expected: "{not json}"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseParamValue(tt.input))
		})
	}
}

func TestRenderCmd_LoadParameters(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteTree(t, dir, map[string]string{
		"params.yaml": "name: yaml\ncity: Tokyo\n",
		"params.json": `{"name": "json"}`,
		"params.txt":  "name=x",
	})

	ctx, _ := testContext(t, dir)

	t.Run("yaml file overridden by flag", func(t *testing.T) {
		r := &RenderCmd{ParamsFile: filepath.Join(dir, "params.yaml"), Param: []string{"name=flag"}}

		params, err := r.loadParameters(ctx)
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "flag", "city": "Tokyo"}, params)
	})

	t.Run("json file", func(t *testing.T) {
		r := &RenderCmd{ParamsFile: filepath.Join(dir, "params.json")}

		params, err := r.loadParameters(ctx)
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "json"}, params)
	})

	t.Run("unsupported file", func(t *testing.T) {
		r := &RenderCmd{ParamsFile: filepath.Join(dir, "params.txt")}

		_, err := r.loadParameters(ctx)
		assert.IsError(t, err, ErrUnsupportedParams)
	})

	t.Run("malformed flag", func(t *testing.T) {
		for _, p := range []string{"novalue", "=x"} {
			r := &RenderCmd{Param: []string{p}}

			_, err := r.loadParameters(ctx)
			assert.IsError(t, err, ErrInvalidParams)
		}
	})
}

func TestRenderCmd_Run(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteTree(t, dir, map[string]string{
		"greet.tmpl": "#for n in names#Hi $n! #end#",
	})

	ctx, out := testContext(t, dir)

	r := &RenderCmd{File: filepath.Join(dir, "greet.tmpl"), Param: []string{`names=["a","b"]`}}
	assert.NoError(t, r.Run(ctx))
	assert.Equal(t, "Hi a! Hi b! ", out.String())

	r = &RenderCmd{File: filepath.Join(dir, "missing.tmpl")}
	assert.IsError(t, r.Run(ctx), ErrInputFileNotExist)
}

func TestRenderCmd_OutputFile(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteTree(t, dir, map[string]string{"x.tmpl": "value=$v"})

	ctx, out := testContext(t, dir)
	target := filepath.Join(dir, "x.txt")

	r := &RenderCmd{File: filepath.Join(dir, "x.tmpl"), Param: []string{"v=7"}, Output: target}
	assert.NoError(t, r.Run(ctx))
	assert.Equal(t, "value=7", testhelper.ReadFile(t, target))
	assert.Equal(t, "", out.String())
}

func TestCompileThenRenderJSON(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteTree(t, dir, map[string]string{
		"templates/page.tmpl": "#if admin#admin#else#user#end#",
	})

	ctx, out := testContext(t, dir)

	c := &CompileCmd{Paths: []string{filepath.Join(dir, "templates")}}
	assert.NoError(t, c.Run(ctx))

	r := &RenderCmd{File: filepath.Join(dir, "templates", "page.json"), Param: []string{"admin=true"}}
	assert.NoError(t, r.Run(ctx))
	assert.Equal(t, "admin", out.String())
}

func TestCompileCmd_Failure(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteTree(t, dir, map[string]string{"bad.tmpl": "#if x#"})

	ctx, _ := testContext(t, dir)

	c := &CompileCmd{Paths: []string{filepath.Join(dir, "bad.tmpl")}}
	assert.Error(t, c.Run(ctx))
}

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()
	ctx, _ := testContext(t, dir)

	i := &InitCmd{Dir: dir}
	assert.NoError(t, i.Run(ctx))

	assert.Contains(t, testhelper.ReadFile(t, filepath.Join(dir, "snaptmpl.yaml")), "generators: [json, go]")

	r := &RenderCmd{
		File:  filepath.Join(dir, "templates", "hello.tmpl"),
		Param: []string{"name=World", `items=["pen"]`},
	}

	var out bytes.Buffer
	ctx.Stdout = &out

	assert.NoError(t, r.Run(ctx))
	assert.Equal(t, "\n\n\nHello, World!\n\nYour items:\n\n  - pen\n\n\n", out.String())

	assert.IsError(t, i.Run(ctx), ErrProjectInitialized)
}

func TestVersionCmd(t *testing.T) {
	ctx, out := testContext(t, t.TempDir())

	assert.NoError(t, (&VersionCmd{}).Run(ctx))
	assert.Equal(t, "SnapTmpl "+version+"\n", out.String())
}
