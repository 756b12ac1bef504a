package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^\w-]+`)

// Slugify lower-cases name, turns spaces into dashes and drops anything else
// that is not a word character or dash.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	return nonSlugChars.ReplaceAllString(s, "")
}

// SlugCandidate returns base for the first attempt and base-N afterwards,
// starting at 2.
func SlugCandidate(base string, attempt int) string {
	if attempt < 2 {
		return base
	}
	return base + "-" + strconv.Itoa(attempt)
}
