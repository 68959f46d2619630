package types

import "github.com/okian/valuator/internal/domain/model"

// volume stats add up across stints like counting stats do.
var volume = map[string]bool{"pa": true, "ab": true, "ip": true, "g": true, "gs": true}

type seasonKey struct {
	season int
	domain model.Domain
}

// MergeSeasons folds season lines that share a season and domain into one line, so a player
// traded mid-season is weighted once. Counting and volume stats are summed. Rate stats are
// averaged weighted by each line's playing time, or equally when a line has none. Merged
// lines take the position of their first stint. The input is returned unchanged when no
// season repeats.
func MergeSeasons(in model.PlayerInput) model.PlayerInput {
	groups := make(map[seasonKey][]int, len(in.Seasons))
	order := make([]seasonKey, 0, len(in.Seasons))
	for i, s := range in.Seasons {
		k := seasonKey{season: s.Season, domain: s.Domain}
		if k.domain == "" {
			k.domain = in.Domain
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	if len(order) == len(in.Seasons) {
		return in
	}

	merged := make([]model.SeasonStatLine, 0, len(order))
	for _, k := range order {
		idx := groups[k]
		if len(idx) == 1 {
			merged = append(merged, in.Seasons[idx[0]])
			continue
		}
		lines := make([]model.SeasonStatLine, len(idx))
		for i, j := range idx {
			lines[i] = in.Seasons[j]
		}
		merged = append(merged, mergeLines(k.domain, lines))
	}
	out := in
	out.Seasons = merged
	return out
}

func mergeLines(d model.Domain, lines []model.SeasonStatLine) model.SeasonStatLine {
	pt := PlayingTimeStat(d)
	out := model.SeasonStatLine{
		PlayerID: lines[0].PlayerID,
		Season:   lines[0].Season,
		Domain:   lines[0].Domain,
		Stats:    make(map[string]float64),
	}
	weightSum := make(map[string]float64)
	for _, l := range lines {
		w := 1.0
		if v, ok := l.Stats[pt]; ok && v > 0 && Finite(v) {
			w = v
		}
		for name, v := range l.Stats {
			if !Finite(v) {
				continue
			}
			if s, ok := Lookup(d, name); (ok && s.Counting) || volume[name] {
				out.Stats[name] += v
				continue
			}
			out.Stats[name] += w * v
			weightSum[name] += w
		}
	}
	for name, w := range weightSum {
		out.Stats[name] /= w
	}
	return out
}
