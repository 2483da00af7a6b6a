package state

import "errors"

// Sentinel errors for state mutation and persistence failures. Callers match
// with errors.Is and translate to narrative refusals or operation failures.
var (
	// ErrInvalidTransition indicates a rejected state transition: the target
	// area is unknown, not reachable from the current area, gated by a
	// missing item, or a combat transition was attempted in the wrong mode.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrItemNotFound indicates the named item is absent from the inventory.
	ErrItemNotFound = errors.New("item not found")

	// ErrSaveNotFound indicates no snapshot exists for the session.
	ErrSaveNotFound = errors.New("save not found")

	// ErrSaveCorrupted indicates a snapshot exists but cannot be decoded or
	// fails validation.
	ErrSaveCorrupted = errors.New("save corrupted")
)
