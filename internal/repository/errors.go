package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQL, NoSQL, etc.)
// from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict is returned by ConditionalUpdate when the record changed
// since the caller read it.
var ErrVersionConflict = errors.New("record version changed")

// ErrSeatOccupied is returned by ConditionalUpdate when another registration
// holds the requested seat at write time.
var ErrSeatOccupied = errors.New("seat occupied by another registration")

// ErrEmptyPatch is returned when a patch carries no change.
var ErrEmptyPatch = errors.New("patch has no changes")

// ErrInvalidPatch is returned when a patch both assigns and unassigns.
var ErrInvalidPatch = errors.New("patch cannot assign and unassign at once")
