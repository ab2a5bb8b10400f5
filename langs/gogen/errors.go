package gogen

import "errors"

// ErrGenerateGoCode is returned when Go code generation cannot produce a valid file.
var ErrGenerateGoCode = errors.New("gogen: generate go code failure")
