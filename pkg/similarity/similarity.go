// Package similarity implements string distance scoring for fuzzy matching
package similarity

// EditDistance computes the Levenshtein distance between two strings using
// two rolling rows, so memory stays proportional to the shorter input.
func EditDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)

	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	if len(r1) > len(r2) {
		r1, r2 = r2, r1
	}

	prev := make([]int, len(r1)+1)
	curr := make([]int, len(r1)+1)

	for i := 0; i <= len(r1); i++ {
		prev[i] = i
	}

	for j := 1; j <= len(r2); j++ {
		curr[0] = j
		for i := 1; i <= len(r1); i++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[i] = min(
				prev[i]+1,
				curr[i-1]+1,
				prev[i-1]+cost,
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r1)]
}

// Ratio scores two strings on a 0 to 100 scale.
// Identical strings score 100, two empty strings score 100, and a single
// empty string scores 0.
func Ratio(s1, s2 string) float64 {
	if s1 == s2 {
		return 100
	}

	len1 := len([]rune(s1))
	len2 := len([]rune(s2))
	maxLen := max(len1, len2)
	if maxLen == 0 {
		return 100
	}
	if len1 == 0 || len2 == 0 {
		return 0
	}

	distance := EditDistance(s1, s2)
	score := (1 - float64(distance)/float64(maxLen)) * 100

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
