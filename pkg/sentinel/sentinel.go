package sentinel

import "errors"

// Sentinel errors shared by repositories and services. Stores return these
// (optionally wrapped) and the HTTP layer maps them to status codes.
//
// - ErrNotFound: entity or reference code does not exist
// - ErrConflict: write would break a uniqueness or pairing rule
// - ErrInvalidState: entity is in the wrong state for the operation
// - ErrInvalidInput: request data breaks a domain invariant
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
)
