package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithTopCacheSize sets how many leading entries of each run are cached at publish time.
func WithTopCacheSize(n int) Option {
	return func(s *TreapStore) {
		if n >= 0 {
			s.topCacheSize = n
		}
	}
}
