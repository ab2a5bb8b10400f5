package snaptmpl

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Config represents the SnapTmpl configuration
type Config struct {
	Compiler   CompilerConfig               `yaml:"compiler"`
	Tags       map[string][]DelimiterConfig `yaml:"tags,omitempty"`
	Generation GenerationConfig             `yaml:"generation"`
}

// CompilerConfig holds the options consumed by the tag pipeline of a single compilation unit.
type CompilerConfig struct {
	// InternalDelims is the pair of strings wrapping every canonical tag marker
	InternalDelims []string `yaml:"internal_delims"`

	// TagTokenSeparator separates the tag kind token from the escaped tag body inside a marker
	TagTokenSeparator string `yaml:"tag_token_separator"`

	// InitialIndentLevel seeds the indentation level of every unit
	InitialIndentLevel int `yaml:"initial_indent_level"`

	// IndentationStep is the string emitted once per indentation level
	IndentationStep string `yaml:"indentation_step"`
}

// DelimiterConfig overrides one recognizable syntax of a tag kind.
// Open and Close are literal strings, Body is a regular expression.
type DelimiterConfig struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close,omitempty"`
	Body  string `yaml:"body,omitempty"`
}

// GenerationConfig represents compile driver settings
type GenerationConfig struct {
	InputDir   string   `yaml:"input_dir"`
	Extension  string   `yaml:"extension"`
	Output     string   `yaml:"output,omitempty"` // empty means next to each template
	Package    string   `yaml:"package,omitempty"`
	Parallel   int      `yaml:"parallel"` // 0 means use CPU count
	Generators []string `yaml:"generators"`
}

const (
	GeneratorJSON = "json"
	GeneratorGo   = "go"
)

// DefaultCompilerConfig returns the compiler options used when nothing is configured
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{
		InternalDelims:     []string{"<%", "%>"},
		TagTokenSeparator:  "__@__",
		InitialIndentLevel: 0,
		IndentationStep:    "    ",
	}
}

// Validate checks the compiler options. It is called at the start of every compilation.
func (c CompilerConfig) Validate() error {
	if len(c.InternalDelims) != 2 {
		return fmt.Errorf("%w: compiler.internal_delims must have exactly 2 entries, got %d", ErrConfigValidation, len(c.InternalDelims))
	}

	if c.InternalDelims[0] == "" || c.InternalDelims[1] == "" {
		return fmt.Errorf("%w: compiler.internal_delims must not contain empty strings", ErrConfigValidation)
	}

	if c.InternalDelims[0] == c.InternalDelims[1] {
		return fmt.Errorf("%w: compiler.internal_delims must differ, both are '%s'", ErrConfigValidation, c.InternalDelims[0])
	}

	if c.TagTokenSeparator == "" {
		return fmt.Errorf("%w: compiler.tag_token_separator is required", ErrConfigValidation)
	}

	if c.InitialIndentLevel < 0 {
		return fmt.Errorf("%w: compiler.initial_indent_level must be non-negative, got %d", ErrConfigValidation, c.InitialIndentLevel)
	}

	if strings.Trim(c.IndentationStep, " \t") != "" {
		return fmt.Errorf("%w: compiler.indentation_step may only contain spaces and tabs, got %q", ErrConfigValidation, c.IndentationStep)
	}

	return nil
}

// LoadConfig loads configuration from the specified file
func LoadConfig(configPath string) (*Config, error) {
	// Load .env files first
	err := loadEnvFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to load environment files: %w", err)
	}

	// Check if config file exists
	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		// Return default configuration if file doesn't exist
		config := GetDefaultConfig()
		expandConfigEnvVars(config)

		return config, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data, validates it and applies defaults
func ParseConfig(data []byte) (*Config, error) {
	// Parse YAML with strict mode to detect unknown fields
	var config Config

	err := yaml.UnmarshalWithOptions(data, &config, yaml.Strict())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&config)

	// Validate the configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	// Expand environment variables
	expandConfigEnvVars(&config)

	return &config, nil
}

// validateConfig validates the configuration for common errors and inconsistencies
func validateConfig(config *Config) error {
	if err := config.Compiler.Validate(); err != nil {
		return err
	}

	for name, delimiters := range config.Tags {
		if len(delimiters) == 0 {
			return fmt.Errorf("%w: tags.%s must list at least one delimiter", ErrConfigValidation, name)
		}

		for i, d := range delimiters {
			if d.Open == "" {
				return fmt.Errorf("%w: tags.%s[%d].open is required", ErrConfigValidation, name, i)
			}

			if d.Close == "" && d.Body == "" {
				return fmt.Errorf("%w: tags.%s[%d] needs either close or body", ErrConfigValidation, name, i)
			}

			if d.Body != "" {
				if _, err := regexp.Compile(d.Body); err != nil {
					return fmt.Errorf("%w: tags.%s[%d].body is not a valid regular expression: %w", ErrConfigValidation, name, i, err)
				}
			}
		}
	}

	if config.Generation.Extension != "" && !strings.HasPrefix(config.Generation.Extension, ".") {
		return fmt.Errorf("%w: generation.extension must start with '.', got '%s'", ErrConfigValidation, config.Generation.Extension)
	}

	if config.Generation.Parallel < 0 {
		return fmt.Errorf("%w: generation.parallel must be non-negative, got %d", ErrConfigValidation, config.Generation.Parallel)
	}

	validGenerators := map[string]bool{
		GeneratorJSON: true,
		GeneratorGo:   true,
	}
	for _, name := range config.Generation.Generators {
		if !validGenerators[name] {
			return fmt.Errorf("%w: unknown generator type '%s': must be one of json, go", ErrConfigValidation, name)
		}
	}

	return nil
}

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Compiler: DefaultCompilerConfig(),
		Tags:     map[string][]DelimiterConfig{},
		Generation: GenerationConfig{
			InputDir:   "./templates",
			Extension:  ".tmpl",
			Parallel:   0,
			Generators: []string{GeneratorJSON, GeneratorGo},
		},
	}
}

// applyDefaults applies default values to missing configuration fields
func applyDefaults(config *Config) {
	defaults := DefaultCompilerConfig()

	if config.Compiler.InternalDelims == nil {
		config.Compiler.InternalDelims = defaults.InternalDelims
	}

	if config.Compiler.TagTokenSeparator == "" {
		config.Compiler.TagTokenSeparator = defaults.TagTokenSeparator
	}

	if config.Compiler.IndentationStep == "" {
		config.Compiler.IndentationStep = defaults.IndentationStep
	}

	if config.Tags == nil {
		config.Tags = make(map[string][]DelimiterConfig)
	}

	if config.Generation.InputDir == "" {
		config.Generation.InputDir = "./templates"
	}

	if config.Generation.Extension == "" {
		config.Generation.Extension = ".tmpl"
	}

	if len(config.Generation.Generators) == 0 {
		config.Generation.Generators = []string{GeneratorJSON, GeneratorGo}
	}
}

// HasGenerator reports whether the named generator is enabled
func (c *Config) HasGenerator(name string) bool {
	for _, g := range c.Generation.Generators {
		if g == name {
			return true
		}
	}

	return false
}

// loadEnvFiles loads .env files if they exist
func loadEnvFiles() error {
	// Try to load .env file from current directory
	if fileExists(".env") {
		err := godotenv.Load(".env")
		if err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	return nil
}

var (
	bracedEnvVar = regexp.MustCompile(`\$\{([^}]+)\}`)
	plainEnvVar  = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
func expandEnvVars(s string) string {
	s = bracedEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1] // Remove ${ and }
		return os.Getenv(varName)
	})

	s = plainEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:] // Remove $
		return os.Getenv(varName)
	})

	return s
}

// expandConfigEnvVars expands environment variables in path settings.
// Delimiters are never expanded since they routinely contain '$'.
func expandConfigEnvVars(config *Config) {
	config.Generation.InputDir = expandEnvVars(config.Generation.InputDir)
	config.Generation.Output = expandEnvVars(config.Generation.Output)
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
