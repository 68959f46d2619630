// Package repository publishes runs and serves their records ranked by composite value.
package repository

import (
	"context"

	"github.com/okian/valuator/internal/domain/model"
)

// Entry is one ranked row of a published run.
type Entry struct {
	Rank  int
	Key   model.PlayerKey
	Score float64
}

// Run is everything a single inference run publishes.
type Run struct {
	Meta         model.RunMeta
	Records      []model.ProjectionRecord
	Trajectories []model.TrajectoryRecord
}

// Store holds published runs. Runs are immutable: a run is visible in full or not at all,
// and a second publish of the same run id fails with ErrRunExists.
type Store interface {
	// Publish stores run atomically.
	Publish(ctx context.Context, run Run) error

	// Latest returns the metadata of the most recently published run.
	// Returns ErrNotFound if nothing was published yet.
	Latest(ctx context.Context) (model.RunMeta, error)

	// Record returns the projection record for key in run runID.
	Record(ctx context.Context, runID string, key model.PlayerKey) (model.ProjectionRecord, error)

	// Trajectory returns the trajectory for key in run runID.
	Trajectory(ctx context.Context, runID string, key model.PlayerKey) (model.TrajectoryRecord, error)

	// Rank returns the rank and score of key. Records sharing a score share a rank.
	Rank(ctx context.Context, runID string, key model.PlayerKey) (Entry, error)

	// TopN returns the top-n entries ordered by score desc, then key asc.
	TopN(ctx context.Context, runID string, n int) ([]Entry, error)

	// Count returns the number of records in run runID.
	Count(ctx context.Context, runID string) (int, error)

	Close() error
}

// rankEntries assigns competition ranks to entries already in rank order: equal scores share
// a rank and the next distinct score ranks by position.
func rankEntries(entries []Entry, firstRank int) {
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = firstRank + i
	}
}
