package main

import "errors"

// Sentinel errors for command operations
var (
	ErrInvalidParams      = errors.New("invalid parameters")
	ErrUnsupportedParams  = errors.New("unsupported parameters file format")
	ErrInputFileNotExist  = errors.New("input file does not exist")
	ErrProjectInitialized = errors.New("project is already initialized")
)
