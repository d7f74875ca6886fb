// Package apperr holds the sentinel errors shared across devnotes packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrCorrupt       = errors.New("corrupt slot content")
	ErrMissingStore  = errors.New("workspace not available in this scope")
	ErrAlreadyExists = errors.New("already exists")
)
