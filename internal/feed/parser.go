package feed

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/bilgisen/autopress/internal/models"
	"github.com/mmcdole/gofeed"
)

const untitled = "Untitled"

// Parser turns raw syndication documents into normalized article summaries
type Parser struct {
	htmlTagRegex  *regexp.Regexp
	imageSrcRegex *regexp.Regexp
	now           func() time.Time
}

func NewParser() *Parser {
	return &Parser{
		htmlTagRegex:  regexp.MustCompile(`<[^>]*>`),
		imageSrcRegex: regexp.MustCompile(`<img[^>]+src="([^">]+)"`),
		now:           time.Now,
	}
}

// CleanHTML removes HTML tags and normalizes whitespace
func (p *Parser) CleanHTML(input string) string {
	// Remove HTML tags
	cleaned := p.htmlTagRegex.ReplaceAllString(input, " ")
	// Unescape HTML entities
	cleaned = html.UnescapeString(cleaned)
	// Normalize whitespace
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return strings.TrimSpace(cleaned)
}

// Parse decodes an RSS, Atom or JSON feed document published by src
func (p *Parser) Parse(body []byte, src models.FeedDescriptor) ([]models.ArticleSummary, error) {
	// gofeed parsers keep per-document state, so each call gets its own
	doc, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", src.ID, err)
	}

	articles := make([]models.ArticleSummary, 0, len(doc.Items))
	for _, item := range doc.Items {
		if item == nil {
			continue
		}
		articles = append(articles, p.normalize(item, src))
	}
	return articles, nil
}

func (p *Parser) normalize(item *gofeed.Item, src models.FeedDescriptor) models.ArticleSummary {
	title := p.CleanHTML(item.Title)
	if title == "" {
		title = untitled
	}

	content := item.Content
	if strings.TrimSpace(content) == "" {
		content = item.Description
	}

	snippet := p.CleanHTML(item.Description)
	if snippet == "" {
		snippet = p.CleanHTML(item.Content)
	}

	published := p.now()
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	categories := item.Categories
	if categories == nil {
		categories = []string{}
	}

	return models.ArticleSummary{
		Title:        title,
		Link:         strings.TrimSpace(item.Link),
		RawContent:   content,
		Snippet:      snippet,
		PublishedAt:  published,
		Categories:   categories,
		Creator:      creatorOf(item, src.Name),
		LeadImage:    p.extractImage(item),
		SourceFeedID: src.ID,
		SourceName:   src.Name,
	}
}

func creatorOf(item *gofeed.Item, fallback string) string {
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			return strings.TrimSpace(a.Name)
		}
	}
	if item.DublinCoreExt != nil {
		for _, c := range item.DublinCoreExt.Creator {
			if strings.TrimSpace(c) != "" {
				return strings.TrimSpace(c)
			}
		}
	}
	return fallback
}

// extractImage tries structured media fields, then enclosures, then an
// <img> in the entry HTML. First match wins.
func (p *Parser) extractImage(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail", "group"} {
			for _, ext := range media[name] {
				if url := ext.Attrs["url"]; url != "" {
					return url
				}
				// media:group wraps media:content children
				for _, child := range ext.Children["content"] {
					if url := child.Attrs["url"]; url != "" {
						return url
					}
				}
			}
		}
	}

	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && (enc.Type == "" || strings.HasPrefix(enc.Type, "image/")) {
			return enc.URL
		}
	}

	for _, markup := range []string{item.Content, item.Description} {
		if m := p.imageSrcRegex.FindStringSubmatch(markup); m != nil {
			return m[1]
		}
	}

	return ""
}
