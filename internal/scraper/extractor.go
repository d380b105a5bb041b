package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bilgisen/autopress/internal/logger"
	"github.com/bilgisen/autopress/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/go-shiori/go-readability"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxChars = 15000
)

// Options tunes the extractor
type Options struct {
	Timeout  time.Duration
	MaxChars int
}

// Extractor recovers the readable article from a news page
type Extractor struct {
	client   *resty.Client
	maxChars int
}

func NewExtractor(opts Options) *Extractor {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = defaultMaxChars
	}

	return &Extractor{
		client: resty.New().
			SetTimeout(opts.Timeout).
			SetHeader("User-Agent", browserUserAgent).
			SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8").
			SetHeader("Accept-Language", "id-ID,id;q=0.9,en;q=0.8"),
		maxChars: opts.MaxChars,
	}
}

// Extract fetches pageURL and extracts it. It never returns an error;
// a page that cannot be retrieved yields models.FailedExtraction().
func (e *Extractor) Extract(ctx context.Context, pageURL string) models.ExtractedContent {
	log := logger.Component("scraper")
	start := time.Now()

	body, err := e.fetch(ctx, pageURL)
	if err != nil {
		log.Warn().
			Err(err).
			Str("url", pageURL).
			Dur("duration", time.Since(start)).
			Msg("Failed to fetch article page")
		return models.FailedExtraction()
	}

	result := e.ExtractHTML(pageURL, body)
	log.Info().
		Str("url", pageURL).
		Str("status", string(result.Status)).
		Int("chars", len([]rune(result.BodyText))).
		Dur("duration", time.Since(start)).
		Msg("Extracted article")
	return result
}

func (e *Extractor) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid article url %q", pageURL)
	}

	resp, err := e.client.R().
		SetContext(ctx).
		Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), pageURL)
	}
	return resp.Body(), nil
}

// ExtractHTML runs the extraction rules over an already retrieved page.
// pageURL is used to resolve relative image sources.
func (e *Extractor) ExtractHTML(pageURL string, body []byte) models.ExtractedContent {
	base, err := url.Parse(pageURL)
	if err != nil {
		return models.FailedExtraction()
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.FailedExtraction()
	}

	doc.Find(strings.Join(noiseSelectors, ", ")).Remove()

	container := findContainer(doc)

	result := models.ExtractedContent{
		Title:     findTitle(doc),
		LeadImage: findImage(doc, container, base),
		Author:    findAuthor(doc),
	}
	if result.Author == "" {
		result.Author = readabilityByline(body, base)
	}

	parts := fragments(container)
	if len(parts) == 0 {
		parts = rawFragments(container)
	}

	result.BodyText = truncateRunes(strings.Join(parts, "\n\n"), e.maxChars)
	if result.BodyText == "" {
		result.Status = models.ExtractionEmpty
	} else {
		result.Status = models.ExtractionOK
	}
	return result
}

func findTitle(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		if title := collapseSpace(doc.Find(sel).First().Text()); title != "" {
			return title
		}
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if title := collapseSpace(og); title != "" {
			return title
		}
	}
	return collapseSpace(doc.Find("title").First().Text())
}

func findContainer(doc *goquery.Document) *goquery.Selection {
	for _, sel := range contentSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			return found.First()
		}
	}
	return doc.Find("body")
}

func findImage(doc *goquery.Document, container *goquery.Selection, base *url.URL) string {
	for _, sel := range metaImageSelectors {
		if content, ok := doc.Find(sel).Attr("content"); ok {
			if src := resolveImage(base, content); src != "" {
				return src
			}
		}
	}

	candidates := make([]*goquery.Selection, 0, len(siteImageSelectors)+2)
	for _, sel := range siteImageSelectors {
		candidates = append(candidates, doc.Find(sel))
	}
	candidates = append(candidates, container.Find("img"), doc.Find("img"))

	for _, imgs := range candidates {
		var found string
		imgs.EachWithBreak(func(_ int, img *goquery.Selection) bool {
			found = resolveImage(base, imageSource(img))
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// imageSource prefers lazy-load attributes, which hold the real image
// while src points at a placeholder
func imageSource(img *goquery.Selection) string {
	for _, attr := range lazySourceAttrs {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			if strings.Contains(attr, "srcset") {
				return firstSrcsetURL(v)
			}
			return v
		}
	}
	src, _ := img.Attr("src")
	return src
}

func firstSrcsetURL(srcset string) string {
	first := strings.TrimSpace(strings.Split(srcset, ",")[0])
	if fields := strings.Fields(first); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func resolveImage(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || isPlaceholder(raw) {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func findAuthor(doc *goquery.Document) string {
	if meta, ok := doc.Find(`meta[name="author"]`).Attr("content"); ok {
		if author := collapseSpace(meta); author != "" {
			return author
		}
	}
	for _, sel := range authorSelectors {
		if author := collapseSpace(doc.Find(sel).First().Text()); author != "" {
			return author
		}
	}
	return ""
}

func readabilityByline(body []byte, base *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), base)
	if err != nil {
		return ""
	}
	return collapseSpace(article.Byline)
}
