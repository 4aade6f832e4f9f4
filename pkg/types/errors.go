package types

import "errors"

// Pack errors.
var (
	ErrInvalidEntry      = errors.New("invalid entry")
	ErrAttributeNotFound = errors.New("attribute not found")
	ErrExhaustedIDSpace  = errors.New("entry id space exhausted")
	ErrUnknownEntryType  = errors.New("unknown entry type")
	ErrInvalidPayload    = errors.New("invalid serialized pack")
)

// Archive errors.
var (
	ErrArchiveDetached = errors.New("archive is detached")
	ErrAlreadyAttached = errors.New("archive is already attached")
	ErrNotFound        = errors.New("pack not found")
	ErrInvalidID       = errors.New("invalid pack ID")
	ErrInvalidData     = errors.New("invalid pack record")
	ErrInvalidFilter   = errors.New("invalid filter value type")
)
