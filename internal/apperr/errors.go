// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	// ErrNotFound means no record has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrStorageUnavailable means the backing store could not be read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrCorruptStore means the backing store holds content that is not a note array.
	ErrCorruptStore = errors.New("corrupt store")
)
