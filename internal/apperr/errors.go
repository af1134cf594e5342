// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrStaleLine means the targeted line no longer matches what was parsed.
	ErrStaleLine = errors.New("line changed since it was parsed")
	// ErrInvalidSpan means a ticket block span is out of bounds or inverted.
	ErrInvalidSpan = errors.New("invalid block span")
	// ErrStatusNotFound means a ticket block has no status field to rewrite.
	ErrStatusNotFound = errors.New("status field not found")
	ErrInvalidStatus  = errors.New("invalid ticket status")
)
