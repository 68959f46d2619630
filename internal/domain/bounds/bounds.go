// Package bounds clamps component outputs to their declared ranges and counts every clamp.
package bounds

import (
	"math"
	"sort"
	"sync"
)

// Count is the number of clamps applied to one component field.
type Count struct {
	Component string
	Field     string
	N         int
}

type key struct {
	component string
	field     string
}

// Tally counts clamps across a run. A nil *Tally clamps without counting.
type Tally struct {
	mu     sync.Mutex
	counts map[key]int
}

// NewTally creates an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[key]int)}
}

// Clamp limits v to [lo, hi]. A non-finite v maps to lo. Both cases are counted.
func (t *Tally) Clamp(component, field string, v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v) || math.IsInf(v, -1):
		t.Add(component, field, 1)
		return lo
	case math.IsInf(v, 1):
		t.Add(component, field, 1)
		return hi
	case v < lo:
		t.Add(component, field, 1)
		return lo
	case v > hi:
		t.Add(component, field, 1)
		return hi
	}
	return v
}

// Score clamps to the 0-100 score range.
func (t *Tally) Score(component, field string, v float64) float64 {
	return t.Clamp(component, field, v, 0, 100)
}

// Probability clamps to [0,1].
func (t *Tally) Probability(component, field string, v float64) float64 {
	return t.Clamp(component, field, v, 0, 1)
}

// Add records n clamps.
func (t *Tally) Add(component, field string, n int) {
	if t == nil || n <= 0 {
		return
	}
	t.mu.Lock()
	t.counts[key{component, field}] += n
	t.mu.Unlock()
}

// Snapshot returns the counts ordered by component, then field.
func (t *Tally) Snapshot() []Count {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	out := make([]Count, 0, len(t.counts))
	for k, n := range t.counts {
		out = append(out, Count{Component: k.component, Field: k.field, N: n})
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Component != out[j].Component {
			return out[i].Component < out[j].Component
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// Total returns the number of clamps recorded.
func (t *Tally) Total() int {
	n := 0
	for _, c := range t.Snapshot() {
		n += c.N
	}
	return n
}
