package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuzzyMatch(t *testing.T) {
	cases := []struct {
		text, query string
		want        bool
	}{
		{"Metalsa", "", true},
		{"Metalsa", "metalsa", true},
		{"Metalsa", "METAL", true},
		{"Metal-SA Corp.", "metalsa", true}, // matches after punctuation strip
		{"Metalsa", "mtlsa", true},          // in-order subsequence
		{"Metalsa", "mtls", true},
		{"Metalsa", "xyz", false},
		{"Metalsa", "asltem", false}, // right letters, wrong order
		{"", "a", false},
		{"Acme 500 Press", "a500p", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FuzzyMatch(c.text, c.query), "text=%q query=%q", c.text, c.query)
	}
}

func TestIsSubsequence(t *testing.T) {
	assert.True(t, isSubsequence("metalsa", "mtlsa"))
	assert.False(t, isSubsequence("metalsa", "mx"))
	assert.False(t, isSubsequence("metalsa", ""))
}
