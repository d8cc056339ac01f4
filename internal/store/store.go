// Package store defines the errors shared by every repository
// implementation. Implementations live in memstore (single process, tests)
// and mongostore (production).
package store

import "errors"

var (
	// ErrNotFound means the requested document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict means a guarded write lost a race: the version or state it
	// was conditioned on has changed. Callers re-read and re-apply.
	ErrConflict = errors.New("store: conflict")
	// ErrDuplicate means a unique key is already taken.
	ErrDuplicate = errors.New("store: duplicate key")
)
