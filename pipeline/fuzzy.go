package pipeline

import "strings"

// FuzzyMatch reports whether query matches text. Matching cascades:
// plain case-insensitive substring first, then substring after
// stripping non-alphanumerics from both sides, then an in-order
// subsequence check so dropped characters ("mtlsa" for "Metalsa")
// still hit. An empty query matches everything.
func FuzzyMatch(text, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	t := strings.ToLower(text)
	if strings.Contains(t, q) {
		return true
	}
	ct, cq := cleanAlnum(t), cleanAlnum(q)
	if cq != "" && strings.Contains(ct, cq) {
		return true
	}
	return isSubsequence(ct, cq)
}

// isSubsequence reports whether every rune of q appears in t in order.
func isSubsequence(t, q string) bool {
	if q == "" {
		return false
	}
	i := 0
	qr := []rune(q)
	for _, r := range t {
		if r == qr[i] {
			i++
			if i == len(qr) {
				return true
			}
		}
	}
	return false
}

func cleanAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
