package scraper

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// minFragmentRunes is the shortest fragment kept, shorter ones are captions and labels
const minFragmentRunes = 20

var blankLineRegex = regexp.MustCompile(`\n\s*\n`)

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func keepFragment(text string) bool {
	return utf8.RuneCountInString(text) > minFragmentRunes && !isBoilerplate(text)
}

// fragments walks paragraphs, list items and table rows of the container
// so list and table structure survives as line prefixes.
func fragments(container *goquery.Selection) []string {
	var out []string

	container.Find("p, li, tr").Each(func(_ int, s *goquery.Selection) {
		var text string

		switch goquery.NodeName(s) {
		case "p":
			// the enclosing item or row already carries this text
			if s.ParentsFiltered("li, tr").Length() > 0 {
				return
			}
			text = collapseSpace(s.Text())
			if !keepFragment(text) {
				return
			}
		case "li":
			if s.Find("li").Length() > 0 {
				return
			}
			text = collapseSpace(s.Text())
			if !keepFragment(text) {
				return
			}
			text = "- " + text
		case "tr":
			var cells []string
			s.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
				if c := collapseSpace(cell.Text()); c != "" {
					cells = append(cells, c)
				}
			})
			text = strings.Join(cells, " | ")
			if !keepFragment(text) {
				return
			}
		default:
			return
		}

		out = append(out, text)
	})

	return out
}

// rawFragments splits the container's text on blank lines, used when no
// structured element survived filtering
func rawFragments(container *goquery.Selection) []string {
	var out []string
	for _, chunk := range blankLineRegex.Split(container.Text(), -1) {
		text := collapseSpace(chunk)
		if keepFragment(text) {
			out = append(out, text)
		}
	}
	return out
}

// truncateRunes caps s at max runes without splitting a multi-byte character
func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
