// Package dedupe guards a run against processing the same player key twice.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/valuator/internal/domain/model"
)

// Guard records seen player keys so each key is processed at most once per run.
type Guard interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key model.PlayerKey) bool

	// Size returns the number of distinct keys recorded.
	Size() int64
}

// inMemoryGuard implements Guard with a mutex-protected set. It never evicts: a run must see
// every duplicate.
type inMemoryGuard struct {
	mu   sync.Mutex
	seen map[model.PlayerKey]struct{}
	hint int
	size atomic.Int64
}

// NewInMemoryGuard creates an empty guard.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{}
	for _, opt := range opts {
		opt(g)
	}
	g.seen = make(map[model.PlayerKey]struct{}, g.hint)
	return g
}

// SeenAndRecord atomically checks if key was seen and records it if not.
func (g *inMemoryGuard) SeenAndRecord(_ context.Context, key model.PlayerKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[key]; ok {
		return true
	}
	g.seen[key] = struct{}{}
	g.size.Add(1)
	return false
}

// Size returns the number of recorded keys.
func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}

// Split keeps the first input of every player key in order and returns the later
// occurrences as duplicates.
func Split(ctx context.Context, g Guard, players []model.PlayerInput) (kept, duplicates []model.PlayerInput) {
	for _, p := range players {
		if g.SeenAndRecord(ctx, p.Key()) {
			duplicates = append(duplicates, p)
			continue
		}
		kept = append(kept, p)
	}
	return kept, duplicates
}
