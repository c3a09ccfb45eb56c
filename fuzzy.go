package brandsim

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Partial-match scaling, applied when one identifier is much longer than the
// other (e.g. "paypal" inside "paypal-login-secure").
const (
	partialMinLenRatio = 1.5
	partialLongRatio   = 8
	partialScale       = 0.9
	partialLongScale   = 0.6
)

// MatchScore rates how alike two brand identifiers are on a 0–100 scale.
// It is the better of the whole-string Indel ratio and a scaled best-window
// ratio when the lengths differ a lot.
func MatchScore(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	if a == b {
		return 100
	}

	score := indelRatio(ra, rb)

	short, long := ra, rb
	if len(short) > len(long) {
		short, long = long, short
	}
	lenRatio := float64(len(long)) / float64(len(short))
	if lenRatio < partialMinLenRatio {
		return score
	}
	scale := partialScale
	if lenRatio >= partialLongRatio {
		scale = partialLongScale
	}

	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		if r := indelRatio(short, long[i:i+len(short)]); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return max(score, best*scale)
}

// indelRatio is 100·(1 − indel/(len(a)+len(b))), where the indel distance
// counts insertions and deletions only: len(a)+len(b)−2·LCS.
func indelRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	return 100 * float64(2*lcsLen(a, b)) / float64(total)
}

// lcsLen is the length of the longest common subsequence of a and b.
func lcsLen(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := range a {
		for j := range b {
			switch {
			case a[i] == b[j]:
				cur[j+1] = prev[j] + 1
			case prev[j+1] >= cur[j]:
				cur[j+1] = prev[j+1]
			default:
				cur[j+1] = cur[j]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// EditDistance is the Levenshtein distance between two lowercased
// identifiers: how many single-character edits a look-alike is away.
func EditDistance(a, b string) int {
	return fuzzy.LevenshteinDistance(strings.ToLower(a), strings.ToLower(b))
}

// FuzzyMatch returns the known identifier closest to candidate and its score.
// ok is false when known is empty or the best score is below threshold; a
// score equal to threshold matches. Ties go to the lexically first identifier.
func FuzzyMatch(candidate string, known []string, threshold float64) (match string, score float64, ok bool) {
	if candidate == "" || len(known) == 0 {
		return "", 0, false
	}
	sorted := append([]string(nil), known...)
	sort.Strings(sorted)

	bestScore := -1.0
	for _, k := range sorted {
		if s := MatchScore(candidate, k); s > bestScore {
			match, bestScore = k, s
		}
	}
	if bestScore < threshold {
		return match, bestScore, false
	}
	return match, bestScore, true
}
