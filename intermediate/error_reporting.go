package intermediate

import (
	"fmt"
	"strings"
)

// TagError reports a failure while translating one tag
type TagError struct {
	Tag        string // tag kind name
	Pos        string // "line:column" in the preprocessed text
	SourceFile string
	SourceLine string // the source line holding the tag
	Err        error
}

// Error implements the error interface
func (e *TagError) Error() string {
	if e.SourceFile != "" {
		return fmt.Sprintf("%s:%s: %s tag: %v", e.SourceFile, e.Pos, e.Tag, e.Err)
	}

	return fmt.Sprintf("position %s: %s tag: %v", e.Pos, e.Tag, e.Err)
}

// Unwrap returns the translator error
func (e *TagError) Unwrap() error {
	return e.Err
}

// DetailedError returns the message followed by the offending source line
func (e *TagError) DetailedError() string {
	var builder strings.Builder

	builder.WriteString(e.Error())
	builder.WriteString("\n")

	if e.SourceLine != "" {
		builder.WriteString("\n")
		builder.WriteString(e.SourceLine)
		builder.WriteString("\n")
	}

	return builder.String()
}

// newTagError creates a tag error with the source line resolved from content
func newTagError(tag, pos string, line int, sourceFile, sourceContent string, err error) *TagError {
	tagErr := &TagError{
		Tag:        tag,
		Pos:        pos,
		SourceFile: sourceFile,
		Err:        err,
	}

	if sourceContent != "" && line > 0 {
		lines := strings.Split(sourceContent, "\n")
		if line <= len(lines) {
			tagErr.SourceLine = lines[line-1]
		}
	}

	return tagErr
}
