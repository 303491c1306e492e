package orchestrator

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https://[^\s<>"']+`)

// ExtractPreviewURL finds the first https URL in text whose host looks like a
// deployment preview (the word "preview" in the hostname). It returns the
// URL, the text with the URL removed and whitespace collapsed, and whether a
// preview URL was found.
func ExtractPreviewURL(text string) (previewURL, stripped string, found bool) {
	for _, candidate := range urlPattern.FindAllString(text, -1) {
		trimmed := strings.TrimRight(candidate, ".,;:)")
		parsed, err := url.Parse(trimmed)
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(parsed.Hostname()), "preview") {
			continue
		}

		// Remove the full match, trailing punctuation included, so no
		// orphaned punctuation is left in the displayed text.
		stripped = strings.Replace(text, candidate, "", 1)
		stripped = collapseSpaces(stripped)
		return trimmed, stripped, true
	}
	return "", text, false
}

// collapseSpaces tidies the hole left by a removed URL without disturbing
// line structure.
func collapseSpaces(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
