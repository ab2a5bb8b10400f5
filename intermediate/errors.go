package intermediate

import "errors"

// Sentinel errors
var (
	// ErrUnknownTagKind is a programming error: the kind is fixed at registration.
	ErrUnknownTagKind      = errors.New("unknown tag kind")
	ErrInvalidDescriptor   = errors.New("invalid tag descriptor")
	ErrDuplicateToken      = errors.New("duplicate tag token")
	ErrUnknownTag          = errors.New("no tag registered for marker token")
	ErrReservedSequence    = errors.New("source contains a reserved marker sequence")
	ErrUnclosedBlock       = errors.New("unclosed block")
	ErrUnexpectedDirective = errors.New("unexpected directive")
	ErrNestedDirective     = errors.New("directive tag nested inside another tag")
	ErrNegativeIndent      = errors.New("indentation level below zero")
)
