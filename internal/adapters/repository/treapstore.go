package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then key ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the ranking from best to worst.
// A run's treap is built once at publish and never mutated afterwards.

// scoreScale controls fixed-point scaling from float64.
const scoreScale = 1_000_000_000

const defaultTopCacheSize = 100

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return scoreFP(math.MinInt64)
	}
	scaled := x * scoreScale
	if scaled >= float64(math.MaxInt64) {
		return scoreFP(math.MaxInt64)
	}
	if scaled <= float64(math.MinInt64) {
		return scoreFP(math.MinInt64)
	}
	return scoreFP(math.Round(scaled))
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// treap node
type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// keyPriority derives the heap priority from the key so the same run always builds the same tree.
func keyPriority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func insert(n *node, id string, score scoreFP) *node {
	if n == nil {
		return &node{id: id, score: score, prio: keyPriority(id), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// countAbove returns how many nodes score strictly higher than score.
func countAbove(n *node, score scoreFP) int {
	if n == nil {
		return 0
	}
	if n.score > score {
		return nsize(n.left) + 1 + countAbove(n.right, score)
	}
	return countAbove(n.left, score)
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, keys map[string]model.PlayerKey, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, keys, out)
	if len(*out) < limit {
		*out = append(*out, Entry{Key: keys[n.id], Score: toFloat(n.score)})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, keys, out)
	}
}

// snapshot is the immutable state of one published run.
type snapshot struct {
	meta         model.RunMeta
	root         *node
	keys         map[string]model.PlayerKey
	records      map[string]model.ProjectionRecord
	trajectories map[string]model.TrajectoryRecord
	topCache     []Entry
}

// TreapStore keeps published runs in memory.
type TreapStore struct {
	mu           sync.RWMutex
	runs         map[string]*snapshot
	topCacheSize int

	latest atomic.Pointer[snapshot]
	closed atomic.Bool
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		runs:         make(map[string]*snapshot),
		topCacheSize: defaultTopCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish implements Store.Publish. The snapshot is built outside the lock and swapped in.
func (s *TreapStore) Publish(ctx context.Context, run Run) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryPublishLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return fmt.Errorf("%w: store closed", ErrInvalidRun)
	}
	if run.Meta.RunID == "" {
		metrics.RecordErrorByComponent("repository", "invalid_run")
		return fmt.Errorf("%w: empty run id", ErrInvalidRun)
	}

	snap, err := s.build(run)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_run")
		return err
	}

	s.mu.Lock()
	if _, ok := s.runs[run.Meta.RunID]; ok {
		s.mu.Unlock()
		metrics.RecordErrorByComponent("repository", "run_exists")
		return fmt.Errorf("%w: %s", ErrRunExists, run.Meta.RunID)
	}
	s.runs[run.Meta.RunID] = snap
	s.latest.Store(snap)
	s.mu.Unlock()

	metrics.UpdateRepositoryRecords(len(snap.records))
	return nil
}

func (s *TreapStore) build(run Run) (*snapshot, error) {
	snap := &snapshot{
		meta:         run.Meta,
		keys:         make(map[string]model.PlayerKey, len(run.Records)),
		records:      make(map[string]model.ProjectionRecord, len(run.Records)),
		trajectories: make(map[string]model.TrajectoryRecord, len(run.Trajectories)),
	}
	for _, rec := range run.Records {
		key := rec.Key()
		id := key.String()
		if _, dup := snap.records[id]; dup {
			return nil, fmt.Errorf("%w: duplicate record %s", ErrInvalidRun, id)
		}
		snap.keys[id] = key
		snap.records[id] = rec
		snap.root = insert(snap.root, id, toFixedPoint(rec.Score()))
	}
	for _, tr := range run.Trajectories {
		key := model.PlayerKey{PlayerID: tr.PlayerID, Domain: tr.Domain}
		snap.trajectories[key.String()] = tr
	}

	snap.topCache = make([]Entry, 0, min(s.topCacheSize, len(snap.records)))
	collectTopN(snap.root, s.topCacheSize, snap.keys, &snap.topCache)
	rankEntries(snap.topCache, 1)
	return snap, nil
}

func (s *TreapStore) run(runID string) (*snapshot, error) {
	s.mu.RLock()
	snap, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}
	return snap, nil
}

// Latest implements Store.Latest.
func (s *TreapStore) Latest(_ context.Context) (model.RunMeta, error) {
	snap := s.latest.Load()
	if snap == nil {
		return model.RunMeta{}, fmt.Errorf("%w: no published run", ErrNotFound)
	}
	return snap.meta, nil
}

// Record implements Store.Record.
func (s *TreapStore) Record(_ context.Context, runID string, key model.PlayerKey) (model.ProjectionRecord, error) {
	snap, err := s.run(runID)
	if err != nil {
		return model.ProjectionRecord{}, err
	}
	rec, ok := snap.records[key.String()]
	if !ok {
		return model.ProjectionRecord{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return rec, nil
}

// Trajectory implements Store.Trajectory.
func (s *TreapStore) Trajectory(_ context.Context, runID string, key model.PlayerKey) (model.TrajectoryRecord, error) {
	snap, err := s.run(runID)
	if err != nil {
		return model.TrajectoryRecord{}, err
	}
	tr, ok := snap.trajectories[key.String()]
	if !ok {
		return model.TrajectoryRecord{}, fmt.Errorf("%w: trajectory %s", ErrNotFound, key)
	}
	return tr, nil
}

// Rank implements Store.Rank in O(log n) expected time.
func (s *TreapStore) Rank(_ context.Context, runID string, key model.PlayerKey) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	snap, err := s.run(runID)
	if err != nil {
		return Entry{}, err
	}
	rec, ok := snap.records[key.String()]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	score := toFixedPoint(rec.Score())
	return Entry{Rank: countAbove(snap.root, score) + 1, Key: key, Score: toFloat(score)}, nil
}

// TopN implements Store.TopN; requests within the cached prefix are served from it.
func (s *TreapStore) TopN(_ context.Context, runID string, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	snap, err := s.run(runID)
	if err != nil {
		return nil, err
	}

	if n <= len(snap.topCache) || len(snap.topCache) == len(snap.records) {
		out := make([]Entry, min(n, len(snap.topCache)))
		copy(out, snap.topCache)
		return out, nil
	}
	out := make([]Entry, 0, min(n, len(snap.records)))
	collectTopN(snap.root, n, snap.keys, &out)
	rankEntries(out, 1)
	return out, nil
}

// Count implements Store.Count.
func (s *TreapStore) Count(_ context.Context, runID string) (int, error) {
	snap, err := s.run(runID)
	if err != nil {
		return 0, err
	}
	return len(snap.records), nil
}

// Close marks the store closed; later publishes fail. Published runs stay readable.
func (s *TreapStore) Close() error {
	s.closed.Store(true)
	return nil
}
