package extract

import (
	"github.com/chrisw65/market-profile/internal/skool/loader"
	"github.com/chrisw65/market-profile/internal/skool/rawrecord"
)

var (
	communityArrayKeys = []string{"posts", "items", "feed", "data"}
	ldNestedArrayKeys  = []string{"data", "payload", "result", "collection"}
)

// Community returns the raw post records of a community feed page in source
// order. Page props may hold either a bare array or an object wrapping one
// under "items". Every structured-data array contributes its objects, as do
// the arrays nested in structured-data objects.
func Community(payload loader.Payload) []rawrecord.Record {
	posts := []rawrecord.Record{}

	pageProps, ok := PageProps(payload.NextData)
	if ok {
		for _, key := range communityArrayKeys {
			posts = append(posts, rawrecord.Items(pageProps[key])...)
		}
	}

	for _, block := range payload.LdJSON {
		switch v := block.(type) {
		case []any:
			posts = append(posts, rawrecord.Objects(v)...)
		case map[string]any:
			for _, key := range ldNestedArrayKeys {
				arr, ok := arrayUnder(v, key)
				if ok {
					posts = append(posts, rawrecord.Objects(arr)...)
				}
			}
		}
	}

	return posts
}
