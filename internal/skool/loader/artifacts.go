package loader

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseLdJSON decodes each structured-data block. Blocks that fail to decode
// or decode to a falsy value (null, false, 0, "") are dropped.
func ParseLdJSON(blocks []string) []any {
	out := []any{}
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		var value any
		err := json.Unmarshal([]byte(block), &value)
		if err != nil {
			continue
		}
		if isFalsy(value) {
			continue
		}
		out = append(out, value)
	}
	return out
}

func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	}
	return false
}

// ParseHTML pulls the hydration state and the structured-data blocks out of
// already rendered markup. A missing or malformed hydration script yields a
// nil NextData rather than an error.
func ParseHTML(html string) (Payload, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Payload{}, fmt.Errorf("parse html: %w", err)
	}

	payload := Payload{HTML: html}

	nextData := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text())
	if nextData != "" {
		var value any
		err = json.Unmarshal([]byte(nextData), &value)
		if err == nil {
			payload.NextData = value
		}
	}

	var blocks []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, s.Text())
	})
	payload.LdJSON = ParseLdJSON(blocks)

	return payload, nil
}
