// Package repo holds the errors shared by the typed repositories.
package repo

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrPersist means the backing store refused or failed the write. The
	// store has already logged the cause.
	ErrPersist = errors.New("could not persist record")
)
