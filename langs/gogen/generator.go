package gogen

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"strconv"
	"text/template"

	"github.com/shibukawa/snaptmpl/intermediate"
)

// Generator generates a Go source file that renders one compiled template
type Generator struct {
	PackageName string
	Name        string // exported identifier stem, derived from the template name when empty
	Format      *intermediate.IntermediateFormat
}

// Option is a function that configures Generator
type Option func(*Generator)

// WithPackageName sets the package name for generated code
func WithPackageName(name string) Option {
	return func(g *Generator) {
		g.PackageName = name
	}
}

// WithName sets the identifier stem used for the exported declarations
func WithName(name string) Option {
	return func(g *Generator) {
		g.Name = name
	}
}

// New creates a new Generator
func New(format *intermediate.IntermediateFormat, opts ...Option) *Generator {
	g := &Generator{
		PackageName: "templates",
		Format:      format,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

type templateData struct {
	PackageName string
	Name        string
	LowerName   string
	SourceName  string
	CacheType   string
	Parameters  []string
	Source      string
}

// Generate generates Go code and writes it to the writer
func (g *Generator) Generate(w io.Writer) error {
	if g.Format == nil {
		return fmt.Errorf("%w: no intermediate format", ErrGenerateGoCode)
	}

	name := g.Name
	if name == "" {
		name = TemplateIdentifier(g.Format.Name)
	}

	if !isIdentifier(name) {
		return fmt.Errorf("%w: cannot derive an identifier from %q", ErrGenerateGoCode, g.Format.Name)
	}

	packageName := sanitizePackageName(g.PackageName)
	if !isIdentifier(packageName) {
		return fmt.Errorf("%w: invalid package name %q", ErrGenerateGoCode, g.PackageName)
	}

	source, err := g.Format.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode intermediate format: %w", err)
	}

	data := templateData{
		PackageName: packageName,
		Name:        name,
		LowerName:   lowerFirst(name),
		SourceName:  g.Format.Name,
		CacheType:   g.Format.DefaultCacheType,
		Parameters:  g.Format.Parameters,
		Source:      string(source),
	}

	tmpl, err := template.New("go").Funcs(template.FuncMap{
		"quote": strconv.Quote,
	}).Parse(goTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("%w: generated code does not parse: %w", ErrGenerateGoCode, err)
	}

	_, err = w.Write(formatted)

	return err
}

const goTemplate = `// Code generated by snaptmpl. DO NOT EDIT.
// source: {{ .SourceName }}

package {{ .PackageName }}

import (
	"context"
	"sync"

	"github.com/shibukawa/snaptmpl/intermediate"
	"github.com/shibukawa/snaptmpl/runtime"
)

// {{ .Name }}CacheType is the default cache type declared by {{ .SourceName }}.
const {{ .Name }}CacheType = {{ quote .CacheType }}

// {{ .Name }}Parameters lists the parameters referenced by {{ .SourceName }}.
var {{ .Name }}Parameters = []string{
{{- range .Parameters }}
	{{ quote . }},
{{- end }}
}

const {{ .LowerName }}Intermediate = {{ quote .Source }}

var {{ .LowerName }}Template = sync.OnceValues(func() (*runtime.Template, error) {
	format, err := intermediate.FromJSON([]byte({{ .LowerName }}Intermediate))
	if err != nil {
		return nil, err
	}

	return runtime.New(format)
})

// Render{{ .Name }} renders {{ .SourceName }} with the given parameters.
func Render{{ .Name }}(ctx context.Context, params map[string]any) (string, error) {
	tmpl, err := {{ .LowerName }}Template()
	if err != nil {
		return "", err
	}

	return tmpl.Render(ctx, params)
}
`
