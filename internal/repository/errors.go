// Package repository provides generic, soft-delete aware persistence over
// gorm plus the per-entity queries the services need.
package repository

import "errors"

// ErrNotFound is returned when no live record matches the request.
var ErrNotFound = errors.New("record not found")

// ErrUnknownField is returned when a filter or update names a column the
// entity does not have.
var ErrUnknownField = errors.New("unknown field")

// ErrSoftDeleteUnsupported is returned by soft delete and restore on entities
// without a deletion marker.
var ErrSoftDeleteUnsupported = errors.New("soft delete not supported")
