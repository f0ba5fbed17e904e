package policy

// Match reports whether candidate matches pattern. Patterns support two
// metacharacters: '*' matches zero or more characters and '?' matches
// exactly one. Matching is case-sensitive and anchored, the whole
// candidate must be consumed.
func Match(pattern, candidate string) bool {
	var p, c int
	star := -1
	backtrack := 0

	for c < len(candidate) {
		switch {
		case p < len(pattern) && (pattern[p] == candidate[c] || pattern[p] == '?'):
			p++
			c++
		case p < len(pattern) && pattern[p] == '*':
			// Remember the star so we can widen its span if the
			// remainder fails to match.
			star = p
			backtrack = c
			p++
		case star >= 0:
			backtrack++
			p = star + 1
			c = backtrack
		default:
			return false
		}
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// MatchAny returns the first pattern that matches candidate. The matched
// pattern is reported back for evaluation traces.
func MatchAny(patterns []string, candidate string) (string, bool) {
	for _, pattern := range patterns {
		if Match(pattern, candidate) {
			return pattern, true
		}
	}
	return "", false
}
