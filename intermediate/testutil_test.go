package intermediate

import (
	"regexp"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/shibukawa/snaptmpl"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func testConfig() snaptmpl.CompilerConfig {
	cfg := snaptmpl.DefaultCompilerConfig()
	cfg.IndentationStep = "  "

	return cfg
}

// testRegistry registers a comment (EMPTY), a block directive (EXEC), a local
// declaration (EMPTY) and a placeholder (EVAL), in that order.
func testRegistry(t *testing.T) *Registry {
	t.Helper()

	reg := NewRegistry()

	assert.NoError(t, reg.Register(Descriptor{
		Name:       "comment",
		Kind:       TagKindEmpty,
		Delimiters: []Delimiter{{Open: "##", Body: `[^\n]*`}},
		Translator: TranslatorFunc(func(tc *TagContext, body string) (string, error) {
			return "", nil
		}),
	}))

	assert.NoError(t, reg.Register(Descriptor{
		Name:       "block",
		Kind:       TagKindExec,
		Delimiters: []Delimiter{{Open: "[[", Close: "]]"}},
		Translator: TranslatorFunc(blockTranslator),
	}))

	assert.NoError(t, reg.Register(Descriptor{
		Name:       "let",
		Kind:       TagKindEmpty,
		Delimiters: []Delimiter{{Open: "!", Body: `let [a-z]+`, Close: "!"}},
		Translator: TranslatorFunc(func(tc *TagContext, body string) (string, error) {
			name := strings.TrimPrefix(body, "let ")
			tc.State().DeclareLocal(name)
			tc.State().AddSetupChunk("let:"+name, name+" = 0")

			return "ignored", nil
		}),
	}))

	assert.NoError(t, reg.Register(Descriptor{
		Name: "placeholder",
		Kind: TagKindEval,
		Delimiters: []Delimiter{
			{Open: "${", Close: "}"},
			{Open: "$", Body: `[A-Za-z_][A-Za-z0-9_]*`},
		},
		Translator: TranslatorFunc(func(tc *TagContext, body string) (string, error) {
			code, err := tc.TranslateNested(body)
			if err != nil {
				return "", err
			}

			if identPattern.MatchString(code) {
				tc.AddParameter(code)
			}

			return "str(" + code + ")", nil
		}),
	}))

	return reg
}

func blockTranslator(tc *TagContext, body string) (string, error) {
	state := tc.State()
	keyword, rest, _ := strings.Cut(strings.TrimSpace(body), " ")

	switch keyword {
	case "if":
		code := state.IndentString() + "if " + rest
		state.PushBlock(Block{Keyword: "if", Pos: tc.Pos.String()})
		state.Indent()

		return code, nil
	case "end":
		if _, err := state.PopBlock(); err != nil {
			return "", err
		}

		if err := state.Dedent(); err != nil {
			return "", err
		}

		return state.IndentString() + "end", nil
	default:
		return "", ErrUnexpectedDirective
	}
}

func newTestCompiler(t *testing.T) *Compiler {
	t.Helper()

	c, err := NewCompiler(testConfig(), testRegistry(t))
	assert.NoError(t, err)

	return c
}
