package compiler

import (
	"strings"

	"github.com/hbollon/go-edlib"
)

// closestName returns the candidate with the smallest edit distance to name,
// or "" when nothing is close enough. A candidate that differs from name only
// in case is always the best match.
func closestName(name string, candidates []string) string {
	if name == "" {
		return ""
	}
	limit := max(1, len(name)/3)
	best, bestDist := "", limit+1
	for _, c := range candidates {
		if c == name {
			continue
		}
		d := edlib.OSADamerauLevenshteinDistance(name, c)
		if strings.EqualFold(name, c) {
			d = 0
		}
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
