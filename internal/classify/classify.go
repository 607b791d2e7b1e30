package classify

import (
	"strings"

	"github.com/dmehra-dev/pigeon/internal/models"
	"mvdan.cc/xurls/v2"
)

// relaxed also recognizes scheme-less URLs like "example.com/x",
// matching how chat clients usually linkify bare domains.
var relaxed = xurls.Relaxed()

// Classify tags outgoing text with a content type before submission.
// It returns ContentTypeLink only when the trimmed input is exactly one
// recognized URL; a URL mixed with prose, multiple URLs, or no URL at all
// classify as plain text. Classification is total: any input, however
// malformed, degrades to text rather than failing.
func Classify(text string) models.ContentType {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.ContentTypeText
	}

	// FindString returns the first URL found anywhere in the input; the
	// result counts as a link only if that match spans the whole input.
	if match := relaxed.FindString(trimmed); match == trimmed {
		return models.ContentTypeLink
	}
	return models.ContentTypeText
}
