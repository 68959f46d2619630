package dedupe

// Option applies a configuration option to the in-memory guard.
type Option func(*inMemoryGuard)

// WithCapacity pre-sizes the seen set for an expected number of keys.
func WithCapacity(n int) Option {
	return func(g *inMemoryGuard) {
		if n > 0 {
			g.hint = n
		}
	}
}
