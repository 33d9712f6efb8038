package common

import (
	"sort"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// suggestThreshold is the minimum normalized Levenshtein similarity a candidate needs
// to be offered as a "did you mean" suggestion.
const suggestThreshold = 0.5

// Suggest returns the candidate closest to name, or "" if none is similar enough.
// Ties resolve to the lexically smallest candidate so the result is deterministic.
//
// Parameters:
//   - name: the misspelled name
//   - candidates: the names that would have been accepted
//
// Returns:
//   - string: the best match, or "" when no candidate reaches the similarity threshold
func Suggest(name string, candidates []string) string {
	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.Strings(sorted)

	lev := metrics.NewLevenshtein()
	lev.CaseSensitive = false

	best, bestScore := "", 0.0
	for _, c := range sorted {
		if c == name {
			continue
		}
		score := strutil.Similarity(name, c, lev)
		if score >= suggestThreshold && score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}
