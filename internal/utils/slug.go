package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	slugSuffixLength = 5
	slugMaxBase      = 100
)

var (
	nonWordRegex = regexp.MustCompile(`[^\w ]+`)
	spacesRegex  = regexp.MustCompile(` +`)
)

// Slug derives a URL-safe identifier from a title plus a random suffix.
// The suffix, not the title, is what keeps two same-titled items apart.
func Slug(title string) string {
	base := strings.ToLower(title)
	base = strings.Join(strings.Fields(base), " ")
	base = nonWordRegex.ReplaceAllString(base, "")
	base = strings.TrimSpace(spacesRegex.ReplaceAllString(base, " "))
	base = strings.ReplaceAll(base, " ", "-")

	if len(base) > slugMaxBase {
		base = strings.TrimRight(base[:slugMaxBase], "-_")
	}
	if base == "" {
		base = "article"
	}

	suffix, err := RandomString(slugSuffixLength)
	if err != nil {
		clock := strconv.FormatInt(time.Now().UnixNano(), 36)
		suffix = clock[len(clock)-slugSuffixLength:]
	}

	return base + "-" + suffix
}
