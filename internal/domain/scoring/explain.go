package scoring

import (
	"math"
	"sort"

	"github.com/okian/valuator/internal/domain/model"
)

type contribution struct {
	model.Contribution
	decl int
}

// topK returns the k largest contributions by magnitude; ties keep declaration order.
// Zero contributions are dropped.
func topK(cs []contribution, k int) []model.Contribution {
	kept := make([]contribution, 0, len(cs))
	for _, c := range cs {
		if c.Value != 0 {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		ai, aj := math.Abs(kept[i].Value), math.Abs(kept[j].Value)
		if ai != aj {
			return ai > aj
		}
		return kept[i].decl < kept[j].decl
	})
	if k > 0 && len(kept) > k {
		kept = kept[:k]
	}
	out := make([]model.Contribution, len(kept))
	for i, c := range kept {
		out[i] = c.Contribution
	}
	return out
}
