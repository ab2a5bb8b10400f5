package intermediate

import (
	"fmt"
	"strings"
)

// GenerateError collects the errors of a batch of units
type GenerateError struct {
	Errors []error
}

// Add adds an error to the collection
func (ge *GenerateError) Add(err error) {
	if err != nil {
		ge.Errors = append(ge.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (ge *GenerateError) HasErrors() bool {
	return len(ge.Errors) > 0
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (ge *GenerateError) Unwrap() []error {
	return ge.Errors
}

// Error implements the error interface
func (ge *GenerateError) Error() string {
	switch len(ge.Errors) {
	case 0:
		return ""
	case 1:
		return ge.Errors[0].Error()
	}

	messages := make([]string, len(ge.Errors))
	for i, err := range ge.Errors {
		messages[i] = err.Error()
	}

	return fmt.Sprintf("multiple generation errors:\n- %s", strings.Join(messages, "\n- "))
}
