package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeywords(t *testing.T) {
	table := []struct {
		name     string
		text     string
		limit    int
		expected []string
	}{
		{
			name:     "frequency order and short tokens dropped",
			text:     "AI AI writing writing writing community",
			limit:    DefaultKeywordLimit,
			expected: []string{"writing", "community"},
		},
		{
			name:     "stopwords never appear",
			text:     "the the the the your your your book",
			limit:    DefaultKeywordLimit,
			expected: []string{"book"},
		},
		{
			name:     "ties keep first appearance",
			text:     "zeta alpha zeta alpha beta",
			limit:    DefaultKeywordLimit,
			expected: []string{"zeta", "alpha", "beta"},
		},
		{
			name:     "hyphenated words and digits",
			text:     "self-publishing 2024 self-publishing co-author",
			limit:    DefaultKeywordLimit,
			expected: []string{"self-publishing", "co-author"},
		},
		{
			name:     "limit",
			text:     "one two three four",
			limit:    2,
			expected: []string{"one", "two"},
		},
		{
			name:     "empty",
			text:     "",
			limit:    DefaultKeywordLimit,
			expected: []string{},
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, Keywords(test.text, test.limit))
		})
	}
}
