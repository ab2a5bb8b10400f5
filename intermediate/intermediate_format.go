package intermediate

import (
	"encoding/json"
	"errors"
	"fmt"
)

// FormatVersion is the version written to every intermediate file
const FormatVersion = "1"

// ErrUnsupportedFormat is returned when reading an intermediate file of another version
var ErrUnsupportedFormat = errors.New("unsupported intermediate format version")

// IntermediateFormat is the compiled form of one template consumed by backends
type IntermediateFormat struct {
	// Format version
	FormatVersion string `json:"format_version"`

	// Compilation unit ID
	ID string `json:"id"`

	// Source name (usually the template path)
	Name string `json:"name"`

	// Ordered emission sequence
	Segments []Segment `json:"segments"`

	// Local variable names declared by directives, in declaration order
	Locals []string `json:"locals,omitempty"`

	// Code run once per render before the segments
	SetupChunks []SetupChunk `json:"setup_chunks,omitempty"`

	// Default cache type selected by a cache directive
	DefaultCacheType string `json:"default_cache_type,omitempty"`

	// Render-time parameters referenced by the template
	Parameters []string `json:"parameters,omitempty"`
}

// ToJSON serializes the intermediate format with one segment per line
func (f *IntermediateFormat) ToJSON() ([]byte, error) {
	type header struct {
		FormatVersion    string       `json:"format_version"`
		ID               string       `json:"id"`
		Name             string       `json:"name"`
		Locals           []string     `json:"locals,omitempty"`
		SetupChunks      []SetupChunk `json:"setup_chunks,omitempty"`
		DefaultCacheType string       `json:"default_cache_type,omitempty"`
		Parameters       []string     `json:"parameters,omitempty"`
	}

	data, err := json.MarshalIndent(header{
		FormatVersion:    f.FormatVersion,
		ID:               f.ID,
		Name:             f.Name,
		Locals:           f.Locals,
		SetupChunks:      f.SetupChunks,
		DefaultCacheType: f.DefaultCacheType,
		Parameters:       f.Parameters,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal intermediate format: %w", err)
	}

	// splice the compact segment list before the closing brace
	out := append([]byte(nil), data[:len(data)-2]...)
	out = append(out, ",\n  \"segments\": ["...)

	for i, seg := range f.Segments {
		line, err := json.Marshal(seg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal segment %d: %w", i, err)
		}

		if i > 0 {
			out = append(out, ',')
		}

		out = append(out, "\n    "...)
		out = append(out, line...)
	}

	if len(f.Segments) > 0 {
		out = append(out, "\n  "...)
	}

	out = append(out, "]\n}\n"...)

	return out, nil
}

// FromJSON parses an intermediate file
func FromJSON(data []byte) (*IntermediateFormat, error) {
	var format IntermediateFormat

	err := json.Unmarshal(data, &format)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal intermediate format: %w", err)
	}

	if format.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format.FormatVersion)
	}

	return &format, nil
}
