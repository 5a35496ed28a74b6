package inference

import (
	"sort"
	"strings"
)

// rankFromScores orders candidates by score, highest first. Candidates
// absent from scores get 0; ties keep vocabulary order. Scores are matched
// case-insensitively and unknown labels are dropped, so the result always
// contains each candidate exactly once.
func rankFromScores(candidates []string, scores map[string]float64, model string) *Ranking {
	byKey := make(map[string]float64, len(scores))
	for label, score := range scores {
		byKey[strings.ToLower(strings.TrimSpace(label))] = score
	}

	type scored struct {
		label string
		score float64
	}
	items := make([]scored, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, scored{label: c, score: byKey[key]})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })

	r := &Ranking{
		Labels: make([]string, len(items)),
		Scores: make([]float64, len(items)),
		Model:  model,
	}
	for i, it := range items {
		r.Labels[i] = it.label
		r.Scores[i] = it.score
	}
	return r
}
