package domain

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// displayNamePolicy strips every tag; provider nicknames are plain text.
var displayNamePolicy = bluemonday.StrictPolicy()

// CleanDisplayName removes markup and surrounding space from a provider name hint.
// Entities escaped by the sanitizer are decoded again so "O'Neil" survives.
func CleanDisplayName(raw string) string {
	return strings.TrimSpace(html.UnescapeString(displayNamePolicy.Sanitize(raw)))
}

// SafePhotoURL returns raw when it is an absolute http(s) URL, else ""
func SafePhotoURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return raw
}
