package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shibukawa/snaptmpl"
	"github.com/shibukawa/snaptmpl/intermediate"
	"github.com/shibukawa/snaptmpl/langs/gogen"
	"github.com/shibukawa/snaptmpl/translate"
)

// Sentinel errors
var (
	ErrOutputCollision = errors.New("output file collision")
	ErrNotFound        = errors.New("path does not exist")
)

// PackageMarker is the file created in every directory that receives generated Go code
const PackageMarker = "doc.go"

// Driver compiles template files and writes the configured outputs next to
// them, or under generation.output when set. A Driver is safe for concurrent use.
type Driver struct {
	config   *snaptmpl.Config
	compiler *intermediate.Compiler
	parallel int
	reporter ReporterFunc
	mu       sync.Mutex
}

// Option is a function that configures Driver
type Option func(*Driver)

// WithReporter sets the progress hook
func WithReporter(fn ReporterFunc) Option {
	return func(d *Driver) {
		d.reporter = fn
	}
}

// WithParallel overrides generation.parallel
func WithParallel(n int) Option {
	return func(d *Driver) {
		d.parallel = n
	}
}

// New creates a driver for config. A nil config uses the defaults.
func New(config *snaptmpl.Config, opts ...Option) (*Driver, error) {
	if config == nil {
		config = snaptmpl.GetDefaultConfig()
	}

	c, err := translate.NewCompiler(config)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		config:   config,
		compiler: c,
		parallel: config.Generation.Parallel,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.parallel <= 0 {
		d.parallel = runtime.NumCPU()
	}

	return d, nil
}

// Compiler returns the shared tag compiler
func (d *Driver) Compiler() *intermediate.Compiler {
	return d.compiler
}

// CompileFile compiles one template and returns the paths written.
// The extension is not checked.
func (d *Driver) CompileFile(path string) ([]string, error) {
	written, err := d.compileFile(path)
	if err != nil {
		d.report(Event{Kind: EventFailed, Path: path, Err: err})
		return nil, err
	}

	d.report(Event{Kind: EventCompiled, Path: path, Outputs: written})

	return written, nil
}

func (d *Driver) compileFile(path string) ([]string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	format, err := d.compiler.Compile(filepath.Base(path), string(source))
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", path, err)
	}

	outDir, base := d.outputBase(path)

	err = os.MkdirAll(outDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}

	var written []string

	if d.config.HasGenerator(snaptmpl.GeneratorJSON) {
		data, err := format.ToJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", path, err)
		}

		out, err := writeOutput(path, filepath.Join(outDir, base+".json"), data)
		if err != nil {
			return nil, err
		}

		written = append(written, out)
	}

	if d.config.HasGenerator(snaptmpl.GeneratorGo) {
		pkg, err := d.packageName(outDir)
		if err != nil {
			return nil, err
		}

		var buf bytes.Buffer

		err = gogen.New(format, gogen.WithPackageName(pkg)).Generate(&buf)
		if err != nil {
			return nil, fmt.Errorf("failed to generate Go code for %s: %w", path, err)
		}

		out, err := writeOutput(path, filepath.Join(outDir, base+".go"), buf.Bytes())
		if err != nil {
			return nil, err
		}

		written = append(written, out)
	}

	return written, nil
}

// CompileFilesInDirectory compiles the names in dir that carry the configured
// extension. It reports whether any file matched.
func (d *Driver) CompileFilesInDirectory(ctx context.Context, dir string, names []string) (bool, error) {
	templates := d.selectTemplates(dir, names)
	if len(templates) == 0 {
		return false, nil
	}

	return true, d.compileBatch(ctx, templates)
}

// selectTemplates returns the names in dir that carry the configured extension
func (d *Driver) selectTemplates(dir string, names []string) []string {
	var templates []string

	for _, name := range names {
		path := filepath.Join(dir, name)
		if filepath.Ext(name) != d.config.Generation.Extension {
			d.report(Event{Kind: EventSkipped, Path: path})
			continue
		}

		templates = append(templates, path)
	}

	return templates
}

// CompileDirectories walks roots and compiles every template found. Each
// directory that produced Go code gets a package marker unless one exists.
// Hidden directories are skipped.
func (d *Driver) CompileDirectories(ctx context.Context, roots []string) error {
	return d.compileTree(ctx, nil, roots)
}

// CompileAll compiles a mix of template files and directories. Files are
// compiled whatever their extension; directories are walked.
func (d *Driver) CompileAll(ctx context.Context, paths []string) error {
	var (
		files []string
		dirs  []string
	)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrNotFound, path)
			}

			return err
		}

		if info.IsDir() {
			dirs = append(dirs, path)
		} else {
			files = append(files, path)
		}
	}

	return d.compileTree(ctx, files, dirs)
}

// compileTree compiles files and the templates under roots as one batch, so
// that output collisions are detected across directories.
func (d *Driver) compileTree(ctx context.Context, files, roots []string) error {
	templates := append([]string(nil), files...)

	var matched []string

	for _, root := range roots {
		listing, err := listDirectories(root)
		if err != nil {
			return err
		}

		for _, entry := range listing {
			found := d.selectTemplates(entry.dir, entry.names)
			if len(found) > 0 {
				templates = append(templates, found...)
				matched = append(matched, entry.dir)
			}
		}
	}

	var errs intermediate.GenerateError

	err := d.compileBatch(ctx, templates)
	if err != nil && ctx.Err() != nil {
		return err
	}

	collect(&errs, err)

	if d.config.HasGenerator(snaptmpl.GeneratorGo) {
		for _, dir := range matched {
			collect(&errs, d.touchPackageMarker(d.outputDir(dir)))
		}
	}

	if errs.HasErrors() {
		return &errs
	}

	return nil
}

// compileBatch compiles paths on at most d.parallel workers. Every file is
// attempted; failures are returned together as a GenerateError. Templates
// whose outputs clash with another template of the batch are not compiled.
func (d *Driver) compileBatch(ctx context.Context, paths []string) error {
	paths = uniquePaths(paths)
	if len(paths) == 0 {
		return nil
	}

	results := d.claimOutputs(paths)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(d.parallel, len(paths)))

	for i, path := range paths {
		if results[i] != nil {
			d.report(Event{Kind: EventFailed, Path: path, Err: results[i]})
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			_, results[i] = d.CompileFile(path)

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return err
	}

	var errs intermediate.GenerateError
	for _, err := range results {
		errs.Add(err)
	}

	if errs.HasErrors() {
		return &errs
	}

	return nil
}

// claimOutputs plans the files and Go identifiers every template produces and
// returns ErrOutputCollision for each template sharing one with another template.
func (d *Driver) claimOutputs(paths []string) []error {
	claims := make([][]string, len(paths))
	owners := make(map[string][]int)

	for i, path := range paths {
		outDir, base := d.outputBase(path)
		outDir = filepath.Clean(outDir)

		if d.config.HasGenerator(snaptmpl.GeneratorJSON) {
			claims[i] = append(claims[i], filepath.Join(outDir, base+".json"))
		}

		if d.config.HasGenerator(snaptmpl.GeneratorGo) {
			claims[i] = append(claims[i],
				filepath.Join(outDir, base+".go"),
				fmt.Sprintf("Render%s in %s", gogen.TemplateIdentifier(filepath.Base(path)), outDir),
			)
		}

		for _, c := range claims[i] {
			owners[c] = append(owners[c], i)
		}
	}

	results := make([]error, len(paths))

	for i, path := range paths {
		for _, c := range claims[i] {
			others := owners[c]
			if len(others) < 2 {
				continue
			}

			other := others[0]
			if other == i {
				other = others[1]
			}

			results[i] = fmt.Errorf("%w: %s is produced by both %s and %s", ErrOutputCollision, c, path, paths[other])

			break
		}
	}

	return results
}

func uniquePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	result := make([]string, 0, len(paths))

	for _, path := range paths {
		key := filepath.Clean(path)
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}

		if seen[key] {
			continue
		}

		seen[key] = true
		result = append(result, path)
	}

	return result
}

// outputBase returns the output directory and the extension-less file name for a template
func (d *Driver) outputBase(path string) (string, string) {
	base := filepath.Base(path)
	return d.outputDir(filepath.Dir(path)), strings.TrimSuffix(base, filepath.Ext(base))
}

func (d *Driver) outputDir(templateDir string) string {
	if d.config.Generation.Output != "" {
		return d.config.Generation.Output
	}

	return templateDir
}

func (d *Driver) packageName(outDir string) (string, error) {
	if d.config.Generation.Package != "" {
		return d.config.Generation.Package, nil
	}

	abs, err := filepath.Abs(outDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", outDir, err)
	}

	return gogen.PackageNameForDir(abs), nil
}

// touchPackageMarker creates dir/doc.go when missing. An existing file is never modified.
func (d *Driver) touchPackageMarker(dir string) error {
	pkg, err := d.packageName(dir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, PackageMarker)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to create package marker: %w", err)
	}

	_, err = fmt.Fprintf(f, "// Package %s contains templates compiled by snaptmpl.\npackage %s\n", pkg, pkg)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("failed to write package marker: %w", err)
	}

	d.report(Event{Kind: EventPackageMarker, Path: dir, Outputs: []string{path}})

	return nil
}

func (d *Driver) report(ev Event) {
	if d.reporter == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.reporter(ev)
}

type directoryListing struct {
	dir   string
	names []string
}

// listDirectories returns the regular files of every directory under root, in walk order
func listDirectories(root string) ([]directoryListing, error) {
	var listing []directoryListing

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.IsDir() {
			return nil
		}

		if path != root && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}

		current := directoryListing{dir: path}

		for _, e := range entries {
			if e.Type().IsRegular() {
				current.names = append(current.names, e.Name())
			}
		}

		listing = append(listing, current)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return listing, nil
}

func writeOutput(templatePath, out string, data []byte) (string, error) {
	if filepath.Clean(templatePath) == filepath.Clean(out) {
		return "", fmt.Errorf("%w: %s", ErrOutputCollision, out)
	}

	err := os.WriteFile(out, data, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}

	return out, nil
}

// collect flattens nested GenerateErrors into errs
func collect(errs *intermediate.GenerateError, err error) {
	if err == nil {
		return
	}

	var batch *intermediate.GenerateError
	if errors.As(err, &batch) {
		for _, e := range batch.Errors {
			errs.Add(e)
		}

		return
	}

	errs.Add(err)
}
