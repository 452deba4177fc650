package store

import (
	"errors"
	"io/fs"
)

var (
	ErrLockTimeout = errors.New("store: timed out waiting for file lock")
	ErrDuplicateID = errors.New("store: record id already exists")
	ErrNotFound    = errors.New("store: record not found")
	ErrDecode      = errors.New("store: file is not a JSON array of objects")
)

// Classify maps an internal failure to a short label used in logs and metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, fs.ErrPermission):
		return "permission"
	default:
		return "io"
	}
}
