package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"

	"github.com/shibukawa/snaptmpl"
	"github.com/shibukawa/snaptmpl/intermediate"
	"github.com/shibukawa/snaptmpl/runtime"
	"github.com/shibukawa/snaptmpl/translate"
)

// RenderCmd represents the render command
type RenderCmd struct {
	File       string   `arg:"" help:"Template source or compiled intermediate JSON file" type:"path"`
	ParamsFile string   `short:"p" long:"params-file" help:"Parameters file (JSON/YAML)" type:"path"`
	Param      []string `long:"param" help:"Individual parameter (key=value format)"`
	Output     string   `short:"o" help:"Write the result to a file instead of standard output" type:"path"`
}

// Run executes the render command
func (r *RenderCmd) Run(ctx *Context) error {
	config, err := snaptmpl.LoadConfig(ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	format, err := r.loadFormat(config)
	if err != nil {
		return err
	}

	params, err := r.loadParameters(ctx)
	if err != nil {
		return err
	}

	tmpl, err := runtime.New(format)
	if err != nil {
		return err
	}

	if ctx.Verbose {
		color.Blue("Rendering %s (parameters: %s)", format.Name, strings.Join(tmpl.Parameters(), ", "))
	}

	if r.Output == "" {
		return tmpl.RenderTo(context.Background(), ctx.Stdout, params)
	}

	result, err := tmpl.Render(context.Background(), params)
	if err != nil {
		return err
	}

	err = os.WriteFile(r.Output, []byte(result), 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", r.Output, err)
	}

	if !ctx.Quiet {
		color.Green("Rendered %s to %s", format.Name, r.Output)
	}

	return nil
}

// loadFormat reads an intermediate JSON file, or compiles a template source in memory
func (r *RenderCmd) loadFormat(config *snaptmpl.Config) (*intermediate.IntermediateFormat, error) {
	data, err := os.ReadFile(r.File)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrInputFileNotExist, r.File)
		}

		return nil, fmt.Errorf("failed to read %s: %w", r.File, err)
	}

	if strings.EqualFold(filepath.Ext(r.File), ".json") {
		return intermediate.FromJSON(data)
	}

	c, err := translate.NewCompiler(config)
	if err != nil {
		return nil, err
	}

	return c.Compile(filepath.Base(r.File), string(data))
}

// loadParameters loads parameters from file and command line
func (r *RenderCmd) loadParameters(ctx *Context) (map[string]any, error) {
	params := make(map[string]any)

	if r.ParamsFile != "" {
		data, err := os.ReadFile(r.ParamsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read parameters file: %w", err)
		}

		switch ext := strings.ToLower(filepath.Ext(r.ParamsFile)); ext {
		case ".json":
			err = json.Unmarshal(data, &params)
			if err != nil {
				return nil, fmt.Errorf("failed to parse JSON parameters: %w", err)
			}
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, &params)
			if err != nil {
				return nil, fmt.Errorf("failed to parse YAML parameters: %w", err)
			}
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedParams, ext)
		}

		if ctx.Verbose {
			color.Blue("Loaded parameters from %s", r.ParamsFile)
		}
	}

	// Command line parameters override file parameters
	for _, param := range r.Param {
		key, value, ok := strings.Cut(param, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: parameter must be in key=value format: %s", ErrInvalidParams, param)
		}

		params[key] = parseParamValue(value)
	}

	return params, nil
}

// parseParamValue converts a command line value to JSON, bool, number or string, in that order
func parseParamValue(value string) any {
	if (strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}")) ||
		(strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]")) {
		var jsonValue any
		if err := json.Unmarshal([]byte(value), &jsonValue); err == nil {
			return jsonValue
		}
	}

	switch value {
	case "true":
		return true
	case "false":
		return false
	}

	if strings.Contains(value, ".") {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	} else if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}

	return value
}
