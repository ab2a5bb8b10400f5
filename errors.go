package snaptmpl

import "errors"

// Common errors used throughout the SnapTmpl packages
var (
	// ErrConfigValidation is returned when configuration validation fails.
	ErrConfigValidation = errors.New("configuration validation failed")
)
