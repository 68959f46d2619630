package config

import "errors"

// Load and Validate wrap one of these so callers can tell a missing or
// unreadable source apart from a value that is out of range.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
