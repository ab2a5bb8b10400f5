package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/shibukawa/snaptmpl"
	"github.com/shibukawa/snaptmpl/compiler"
)

// CompileCmd represents the compile command
type CompileCmd struct {
	Paths    []string `arg:"" optional:"" help:"Template files or directories (defaults to generation.input_dir)" type:"path"`
	Output   string   `short:"o" help:"Output directory (defaults to next to each template)" type:"path"`
	Package  string   `help:"Go package name for generated code"`
	Parallel int      `help:"Number of parallel workers (0 uses the configured value)"`
}

// Run executes the compile command
func (c *CompileCmd) Run(ctx *Context) error {
	config, err := snaptmpl.LoadConfig(ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if c.Output != "" {
		config.Generation.Output = c.Output
	}

	if c.Package != "" {
		config.Generation.Package = c.Package
	}

	paths := c.Paths
	if len(paths) == 0 {
		paths = []string{config.Generation.InputDir}
	}

	var compiled, failed int

	reporter := func(ev compiler.Event) {
		switch ev.Kind {
		case compiler.EventCompiled:
			compiled++

			if ctx.Verbose {
				color.Blue("Compiled %s", ev.Path)

				for _, out := range ev.Outputs {
					color.Blue("  -> %s", out)
				}
			}
		case compiler.EventFailed:
			failed++

			if !ctx.Quiet {
				color.Red("Failed to compile %s: %v", ev.Path, ev.Err)
			}
		case compiler.EventPackageMarker:
			if ctx.Verbose {
				color.Blue("Created package marker %s", ev.Outputs[0])
			}
		case compiler.EventSkipped:
		}
	}

	opts := []compiler.Option{compiler.WithReporter(reporter)}
	if c.Parallel > 0 {
		opts = append(opts, compiler.WithParallel(c.Parallel))
	}

	driver, err := compiler.New(config, opts...)
	if err != nil {
		return err
	}

	if ctx.Verbose {
		color.Blue("Compiling templates from %v", paths)
	}

	err = driver.CompileAll(context.Background(), paths)

	if !ctx.Quiet {
		switch {
		case compiled == 0 && failed == 0:
			color.Yellow("No template files found")
		case failed == 0:
			color.Green("Compiled %d template(s)", compiled)
		default:
			color.Yellow("Compiled %d template(s), %d failed", compiled, failed)
		}
	}

	return err
}
