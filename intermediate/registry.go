package intermediate

import (
	"fmt"

	"github.com/shibukawa/snaptmpl"
	"github.com/shibukawa/snaptmpl/tagscan"
)

// Translator converts a recognized tag body into target code.
// The body is the raw text between the delimiters with escaping undone.
type Translator interface {
	Translate(tc *TagContext, body string) (string, error)
}

// TranslatorFunc adapts a function to Translator
type TranslatorFunc func(tc *TagContext, body string) (string, error)

// Translate calls f(tc, body)
func (f TranslatorFunc) Translate(tc *TagContext, body string) (string, error) {
	return f(tc, body)
}

// Delimiter is one recognizable syntax of a tag kind
type Delimiter struct {
	Open  string
	Close string
	Body  string // regular expression, tagscan.DefaultBody when empty
}

// Descriptor registers one tag kind
type Descriptor struct {
	Name       string
	Token      string // marker token, defaults to Name
	Kind       TagKind
	Delimiters []Delimiter
	Translator Translator
}

// Registry is the ordered set of tag kinds known to a compiler.
// Registration order is scan order: later delimiter passes see markers inserted by earlier ones.
type Registry struct {
	descriptors  []Descriptor
	byToken      map[string]int
	placeholders tagscan.PlaceholderEscaper
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byToken: make(map[string]int),
	}
}

// Register appends a tag kind
func (r *Registry) Register(d Descriptor) error {
	if !d.Kind.Valid() {
		return fmt.Errorf("%w: tag %q has kind %s", ErrUnknownTagKind, d.Name, d.Kind)
	}

	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}

	if d.Token == "" {
		d.Token = d.Name
	}

	if len(d.Delimiters) == 0 {
		return fmt.Errorf("%w: tag %q has no delimiters", ErrInvalidDescriptor, d.Name)
	}

	if d.Translator == nil {
		return fmt.Errorf("%w: tag %q has no translator", ErrInvalidDescriptor, d.Name)
	}

	if _, exists := r.byToken[d.Token]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateToken, d.Token)
	}

	r.byToken[d.Token] = len(r.descriptors)
	r.descriptors = append(r.descriptors, d)

	return nil
}

// MustRegister is Register that panics; for built-in tables only
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// SetPlaceholderEscaper installs p on the guard of every table built from the registry.
// p runs on each matched body before the guard's own escaping and is not reverted
// before translation.
func (r *Registry) SetPlaceholderEscaper(p tagscan.PlaceholderEscaper) {
	r.placeholders = p
}

// PlaceholderEscaper returns the installed escaper, nil when none
func (r *Registry) PlaceholderEscaper() tagscan.PlaceholderEscaper {
	return r.placeholders
}

// Lookup finds the descriptor for a marker token
func (r *Registry) Lookup(token string) (Descriptor, bool) {
	i, ok := r.byToken[token]
	if !ok {
		return Descriptor{}, false
	}

	return r.descriptors[i], true
}

// Descriptors returns the registered tag kinds in registration order
func (r *Registry) Descriptors() []Descriptor {
	return append([]Descriptor(nil), r.descriptors...)
}

// OverrideDelimiters replaces the delimiters of the named tag kind, keeping its position
func (r *Registry) OverrideDelimiters(name string, delimiters []Delimiter) error {
	if len(delimiters) == 0 {
		return fmt.Errorf("%w: tag %q has no delimiters", ErrInvalidDescriptor, name)
	}

	for i := range r.descriptors {
		if r.descriptors[i].Name == name {
			r.descriptors[i].Delimiters = append([]Delimiter(nil), delimiters...)
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrUnknownTag, name)
}

// ApplyConfig applies the per-kind delimiter overrides from the configuration file
func (r *Registry) ApplyConfig(tags map[string][]snaptmpl.DelimiterConfig) error {
	// apply in registration order so errors are deterministic
	for _, d := range r.descriptors {
		overrides, ok := tags[d.Name]
		if !ok {
			continue
		}

		delimiters := make([]Delimiter, 0, len(overrides))
		for _, o := range overrides {
			delimiters = append(delimiters, Delimiter{Open: o.Open, Close: o.Close, Body: o.Body})
		}

		if err := r.OverrideDelimiters(d.Name, delimiters); err != nil {
			return err
		}
	}

	for name := range tags {
		if _, ok := r.byName(name); !ok {
			return fmt.Errorf("%w: tags.%s does not name a registered tag", snaptmpl.ErrConfigValidation, name)
		}
	}

	return nil
}

func (r *Registry) byName(name string) (Descriptor, bool) {
	for _, d := range r.descriptors {
		if d.Name == name {
			return d, true
		}
	}

	return Descriptor{}, false
}

// Table builds the immutable delimiter table for the given compiler configuration
func (r *Registry) Table(cfg snaptmpl.CompilerConfig) (*tagscan.Table, error) {
	var pairs []tagscan.DelimiterPair

	for _, d := range r.descriptors {
		for _, delim := range d.Delimiters {
			pairs = append(pairs, tagscan.DelimiterPair{
				Open:      delim.Open,
				Close:     delim.Close,
				Body:      delim.Body,
				Token:     d.Token,
				Separator: cfg.TagTokenSeparator,
			})
		}
	}

	var opts []tagscan.GuardOption
	if r.placeholders != nil {
		opts = append(opts, tagscan.WithPlaceholderEscaper(r.placeholders))
	}

	return tagscan.NewTable(cfg.InternalDelims, pairs, opts...)
}
