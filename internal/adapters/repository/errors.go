package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrRunExists    = errors.New("run already published")
	ErrInvalidRun   = errors.New("invalid run")
)
