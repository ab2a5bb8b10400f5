package translate

import (
	"github.com/shibukawa/snaptmpl"
	"github.com/shibukawa/snaptmpl/intermediate"
)

// Tag kind names, usable as keys of the tags section in the configuration file
const (
	TagComment     = "comment"
	TagDirective   = "directive"
	TagSet         = "set"
	TagCache       = "cache"
	TagPlaceholder = "placeholder"
)

const identifier = `[A-Za-z_][A-Za-z0-9_]*`

// bracedBody allows one level of nested braces, enough for map literals such as
// ${ {'a': 1}['a'] }. A brace inside a string literal still ends the body.
const bracedBody = `(?:[^{}]|\{[^{}]*\})*`

// DefaultRegistry returns the built-in tag kinds.
//
// The order is load-bearing. Directives run before placeholders so that
// placeholders inside a directive body are escaped and resolved by the directive
// translator. Comments run last: a "##" inside an expression string or between
// two adjacent directives ("#end##end#") is already escaped by then, while tags
// on a commented line are swallowed by the comment body and never translated.
func DefaultRegistry() *intermediate.Registry {
	reg := intermediate.NewRegistry()

	reg.MustRegister(intermediate.Descriptor{
		Name: TagDirective,
		Kind: intermediate.TagKindExec,
		Delimiters: []intermediate.Delimiter{
			{Open: "#", Body: `(?:if|elif|for)\s[^#\n]*|else|end`, Close: "#"},
		},
		Translator: intermediate.TranslatorFunc(translateDirective),
	})

	reg.MustRegister(intermediate.Descriptor{
		Name: TagSet,
		Kind: intermediate.TagKindEmpty,
		Delimiters: []intermediate.Delimiter{
			{Open: "#", Body: `set\s+` + identifier + `\s*=[^#\n]*`, Close: "#"},
		},
		Translator: intermediate.TranslatorFunc(translateSet),
	})

	reg.MustRegister(intermediate.Descriptor{
		Name: TagCache,
		Kind: intermediate.TagKindEmpty,
		Delimiters: []intermediate.Delimiter{
			{Open: "#", Body: `cache\s+[a-z]+\s*`, Close: "#"},
		},
		Translator: intermediate.TranslatorFunc(translateCache),
	})

	reg.MustRegister(intermediate.Descriptor{
		Name: TagPlaceholder,
		Kind: intermediate.TagKindEval,
		Delimiters: []intermediate.Delimiter{
			{Open: "${", Body: bracedBody, Close: "}"},
			{Open: "$", Body: identifier + `(?:\.` + identifier + `)*`},
		},
		Translator: intermediate.TranslatorFunc(translatePlaceholder),
	})

	reg.MustRegister(intermediate.Descriptor{
		Name:       TagComment,
		Kind:       intermediate.TagKindEmpty,
		Delimiters: []intermediate.Delimiter{{Open: "##", Body: `[^\n]*`}},
		Translator: intermediate.TranslatorFunc(translateComment),
	})

	return reg
}

// NewRegistry returns the built-in tag kinds with the configured delimiter overrides applied
func NewRegistry(config *snaptmpl.Config) (*intermediate.Registry, error) {
	reg := DefaultRegistry()

	if config == nil || len(config.Tags) == 0 {
		return reg, nil
	}

	if err := reg.ApplyConfig(config.Tags); err != nil {
		return nil, err
	}

	return reg, nil
}

// NewCompiler builds a compiler from a loaded configuration
func NewCompiler(config *snaptmpl.Config) (*intermediate.Compiler, error) {
	if config == nil {
		config = snaptmpl.GetDefaultConfig()
	}

	reg, err := NewRegistry(config)
	if err != nil {
		return nil, err
	}

	return intermediate.NewCompiler(config.Compiler, reg)
}

func translateComment(tc *intermediate.TagContext, body string) (string, error) {
	return "", nil
}
