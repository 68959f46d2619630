package app

import "errors"

// Run-level failures. Per-player problems are never errors; they become issues on the record.
var (
	ErrInvalidRequest  = errors.New("invalid run request")
	ErrReferenceTables = errors.New("invalid reference tables")
	ErrInvalidLeague   = errors.New("invalid league settings")
	ErrInvalidWeights  = errors.New("invalid composite weights")
	ErrRunCancelled    = errors.New("run cancelled")
	ErrPublish         = errors.New("publish failed")
)
