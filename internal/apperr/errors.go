// Package apperr holds the sentinel errors shared across QuickNote packages.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidName      = errors.New("invalid note name")
	ErrDirectoryMissing = errors.New("directory missing")
	ErrCanceled         = errors.New("canceled")
)
