// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the record is already in the requested state, or was
// changed by a concurrent request.
var ErrConflict = errors.New("conflict: record already in requested state")

// ErrValidation indicates malformed caller input.
var ErrValidation = errors.New("validation failed")
