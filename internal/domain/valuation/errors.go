package valuation

import "errors"

var (
	// ErrInvalidWeights is returned when composite weights are unknown, negative or do not sum to 1.
	ErrInvalidWeights = errors.New("invalid composite weights")
	// ErrInvalidLeague is returned for league settings that cannot price a pool.
	ErrInvalidLeague = errors.New("invalid league settings")
)
