package ai

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	controlCharRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	scriptBlockRegex = regexp.MustCompile(`(?is)<(script|iframe|object|embed|style)[^>]*>.*?</(script|iframe|object|embed|style)>`)
	dangerousTag     = regexp.MustCompile(`(?i)</?(script|iframe|object|embed|link|meta|style)[^>]*>`)
	inlineStyleRegex = regexp.MustCompile(`(?i)\s(style|on[a-z]+)="[^"]*"`)
	tagRegex         = regexp.MustCompile(`<[^>]*>`)
	blockSplitRegex  = regexp.MustCompile(`\n\s*\n+`)
	sentenceRegex    = regexp.MustCompile(`[^.!?]+[.!?]+`)
	listMarkerRegex  = regexp.MustCompile(`^([1-9]\.|-\s|•\s)`)
)

type PostProcessor struct {
	maxExcerptLength  int
	minContentLength  int
	sentencesPerBlock int
	maxHeadingLength  int
	minHeadingLength  int
}

func NewPostProcessor() *PostProcessor {
	return &PostProcessor{
		maxExcerptLength:  160,
		minContentLength:  50,
		sentencesPerBlock: 3,
		maxHeadingLength:  100,
		minHeadingLength:  5,
	}
}

// ProcessDraft validates and cleans a model-written draft in place
func (p *PostProcessor) ProcessDraft(d *Draft) error {
	d.Title = p.cleanText(html.UnescapeString(tagRegex.ReplaceAllString(d.Title, "")))
	if d.Title == "" {
		return fmt.Errorf("missing required field: title")
	}

	d.Content = p.cleanHTML(d.Content)
	if utf8.RuneCountInString(PlainText(d.Content)) < p.minContentLength {
		return fmt.Errorf("content too short, minimum %d characters required", p.minContentLength)
	}
	d.Content = p.ForceHTML(d.Content)

	d.Excerpt = p.cleanText(PlainText(d.Excerpt))
	if d.Excerpt == "" {
		d.Excerpt = p.cleanText(PlainText(d.Content))
	}
	if utf8.RuneCountInString(d.Excerpt) > p.maxExcerptLength {
		d.Excerpt = string([]rune(d.Excerpt)[:p.maxExcerptLength-3]) + "..."
	}

	return nil
}

// cleanText removes unwanted characters and normalizes whitespace
func (p *PostProcessor) cleanText(s string) string {
	s = controlCharRegex.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// cleanHTML strips executable and embedded markup and inline styling
func (p *PostProcessor) cleanHTML(content string) string {
	content = scriptBlockRegex.ReplaceAllString(content, "")
	content = dangerousTag.ReplaceAllString(content, "")
	content = inlineStyleRegex.ReplaceAllString(content, "")
	content = controlCharRegex.ReplaceAllString(content, "")

	// Normalize line endings
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.TrimSpace(content)
}

// ForceHTML turns a plain-text answer into paragraphs, subheadings and
// lists. Content that already carries <p> markup is returned unchanged.
func (p *PostProcessor) ForceHTML(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if strings.Contains(content, "<p>") && strings.Contains(content, "</p>") {
		return content
	}

	blocks := blockSplitRegex.Split(content, -1)
	if len(blocks) <= 1 {
		blocks = p.groupSentences(content)
	}

	formatted := make([]string, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		formatted = append(formatted, p.formatBlock(block))
	}
	return strings.Join(formatted, "\n\n")
}

func (p *PostProcessor) groupSentences(content string) []string {
	spans := sentenceRegex.FindAllStringIndex(content, -1)
	if len(spans) == 0 {
		return []string{content}
	}

	sentences := make([]string, 0, len(spans)+1)
	for _, span := range spans {
		sentences = append(sentences, strings.TrimSpace(content[span[0]:span[1]]))
	}
	// keep a trailing fragment without terminal punctuation
	if tail := strings.TrimSpace(content[spans[len(spans)-1][1]:]); tail != "" {
		sentences = append(sentences, tail)
	}

	var blocks []string
	var current []string
	for _, s := range sentences {
		current = append(current, s)
		if len(current) >= p.sentencesPerBlock {
			blocks = append(blocks, strings.Join(current, " "))
			current = nil
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, " "))
	}
	return blocks
}

func (p *PostProcessor) formatBlock(block string) string {
	if listMarkerRegex.MatchString(block) {
		var items strings.Builder
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(listMarkerRegex.ReplaceAllString(strings.TrimSpace(line), ""))
			if line != "" {
				items.WriteString("<li>" + line + "</li>")
			}
		}
		return "<ul>" + items.String() + "</ul>"
	}

	if p.looksLikeHeading(block) {
		return "<h2>" + block + "</h2>"
	}
	return "<p>" + strings.Join(strings.Fields(block), " ") + "</p>"
}

// looksLikeHeading matches short capitalized lines without a final period
func (p *PostProcessor) looksLikeHeading(block string) bool {
	n := utf8.RuneCountInString(block)
	if n >= p.maxHeadingLength || n <= p.minHeadingLength {
		return false
	}
	if strings.HasSuffix(block, ".") || strings.Contains(block, "\n") {
		return false
	}
	first, _ := utf8.DecodeRuneInString(block)
	return unicode.IsUpper(first)
}

// PlainText strips markup and collapses whitespace
func PlainText(s string) string {
	s = tagRegex.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
