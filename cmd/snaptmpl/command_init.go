package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
)

// InitCmd represents the init command
type InitCmd struct {
	Dir string `arg:"" optional:"" default:"." help:"Project directory" type:"path"`
}

// Run executes the init command
func (i *InitCmd) Run(ctx *Context) error {
	if ctx.Verbose {
		color.Blue("Initializing SnapTmpl project in %s", i.Dir)
	}

	configPath := filepath.Join(i.Dir, "snaptmpl.yaml")
	if fileExists(configPath) {
		return fmt.Errorf("%w: %s exists", ErrProjectInitialized, configPath)
	}

	files := []struct {
		path    string
		content string
	}{
		{path: configPath, content: sampleConfig},
		{path: filepath.Join(i.Dir, "templates", "hello.tmpl"), content: sampleTemplate},
	}

	for _, f := range files {
		if fileExists(f.path) {
			if !ctx.Quiet {
				color.Yellow("Keeping existing %s", f.path)
			}

			continue
		}

		err := writeFile(f.path, f.content)
		if err != nil {
			return err
		}

		if ctx.Verbose {
			color.Green("Created %s", f.path)
		}
	}

	if !ctx.Quiet {
		color.Green("SnapTmpl project initialized successfully")
		fmt.Fprintln(ctx.Stdout, "\nNext steps:")
		fmt.Fprintln(ctx.Stdout, "1. Edit snaptmpl.yaml to adjust delimiters and generation settings")
		fmt.Fprintln(ctx.Stdout, "2. Write templates in the templates/ directory")
		fmt.Fprintln(ctx.Stdout, "3. Run 'snaptmpl compile' to generate intermediate JSON and Go code")
	}

	return nil
}

const sampleConfig = `# Tag pipeline settings
compiler:
  internal_delims: ["<%", "%>"]
  tag_token_separator: "__@__"
  initial_indent_level: 0
  indentation_step: "    "

# Per tag kind delimiter overrides (comment, directive, set, cache, placeholder)
tags: {}

# Compile settings
generation:
  input_dir: "./templates"
  extension: ".tmpl"
  output: ""      # empty writes next to each template
  package: ""     # empty uses the output directory name
  parallel: 0     # 0 uses the CPU count
  generators: [json, go]
`

const sampleTemplate = `## Sample SnapTmpl template
#cache static#
#set greeting = "Hello"#
$greeting, ${name}!
#if items.size() > 0#
Your items:
#for item in items#
  - $item
#end#
#else#
You have no items.
#end#
`

// writeFile writes content to a file, creating directories if necessary
func writeFile(path, content string) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}

	err = os.WriteFile(path, []byte(content), 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
