// Package slug canonicalizes community identifiers into a single path segment.
package slug

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const baseUrl = "https://www.skool.com"

// Normalize turns a raw identifier (a path, an encoded URL, a bare slug) into
// the first path segment it names. "" means the input was empty or invalid.
// Normalize never fails and Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	current := raw
	for {
		next := normalizeOnce(current)
		// every pass that changes the string makes it shorter, so this terminates
		if next == current {
			return next
		}
		current = next
	}
}

func normalizeOnce(raw string) string {
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	first, _, _ := strings.Cut(decoded, "/")
	first = strings.TrimRight(first, "/")
	return strings.TrimSpace(first)
}

// URL builds the address of a community page, suffix is appended as a path
// segment (leading slashes are ignored). It returns "" when the slug is invalid.
func URL(raw, suffix string) string {
	normalized := Normalize(raw)
	if normalized == "" {
		return ""
	}
	suffix = strings.TrimLeft(suffix, "/")
	if suffix == "" {
		return fmt.Sprintf("%s/%s", baseUrl, normalized)
	}
	return fmt.Sprintf("%s/%s/%s", baseUrl, normalized, suffix)
}

var validSlug = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validate checks that a normalized slug is safe to accept from an API caller.
func Validate(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	if len(slug) > 100 {
		return fmt.Errorf("slug must be less than 100 characters")
	}
	if !validSlug.MatchString(slug) {
		return fmt.Errorf("slug must contain only letters, numbers, hyphens, and underscores")
	}
	return nil
}
