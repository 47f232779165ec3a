package profile

import (
	"regexp"
	"sort"
	"strings"
)

const DefaultKeywordLimit = 12

var keywordToken = regexp.MustCompile(`[a-z][a-z-]+`)

var stopwords = map[string]bool{
	"a": true, "and": true, "are": true, "be": true, "for": true,
	"from": true, "in": true, "of": true, "on": true, "or": true,
	"the": true, "this": true, "to": true, "with": true, "you": true,
	"your": true, "their": true, "we": true, "us": true, "our": true,
	"it": true, "that": true, "as": true, "by": true, "an": true,
	"at": true, "will": true,
}

// Keywords returns up to limit of the most frequent words in text, ties keep
// the order in which the words first appeared. Stopwords and words shorter
// than 3 letters never appear.
func Keywords(text string, limit int) []string {
	type entry struct {
		word  string
		count int
	}

	var entries []entry
	index := map[string]int{}
	for _, token := range keywordToken.FindAllString(strings.ToLower(text), -1) {
		if stopwords[token] || len(token) < 3 {
			continue
		}
		i, ok := index[token]
		if !ok {
			index[token] = len(entries)
			entries = append(entries, entry{word: token, count: 1})
			continue
		}
		entries[i].count++
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].count > entries[j].count
	})

	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.word)
	}
	return out
}
