package scraper

import "strings"

// noiseSelectors are removed from the page before any rule runs
var noiseSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	"nav", "header", "footer", "aside",
	".advertisement", ".ads", ".ad-container", "#ads",
	".social-share", ".share-buttons", ".share-box",
	".related-articles", ".baca-juga", ".read-also", ".related-news",
	".tags", ".topics", ".breadcrumb",
	".author-bio", ".author-info", ".date", ".timestamp",
	".comment-section", "#comments",
	".newsletter", ".subscription",
	".copyright", ".disclaimer",
	".promo", ".banner",
}

// titleSelectors are tried before the og:title and <title> fallbacks
var titleSelectors = []string{
	"h1.title",
	"h1.article-title",
	"h1",
}

var metaImageSelectors = []string{
	`meta[property="og:image"]`,
	`meta[name="og:image"]`,
	`meta[name="twitter:image"]`,
	`meta[property="twitter:image"]`,
}

// siteImageSelectors cover outlets that keep the lead image outside <article>
var siteImageSelectors = []string{
	".detail__media-image img", // detik
	".photo__img img",          // kompas
	".article-img img",
}

// lazySourceAttrs are checked before src
var lazySourceAttrs = []string{
	"data-src",
	"data-lazy-src",
	"data-original",
	"data-srcset",
	"srcset",
}

var placeholderMarkers = []string{
	"placeholder",
	"blank.gif",
	"spacer.gif",
	"pixel.gif",
	"pixel.png",
	"1x1",
	"lazy.gif",
	"loading.gif",
}

var authorSelectors = []string{
	".author",
	".detail__author",
	`[rel="author"]`,
	".byline",
	`[itemprop="author"]`,
}

// contentSelectors locate the article container, most specific first
var contentSelectors = []string{
	".detail__body-text", // detik
	".read__content",     // kompas
	".detail-text",       // cnn indonesia
	".article-content",
	".post-content",
	".entry-content",
	".content-detail",
	"article",
	"main",
	"#content",
	".content",
}

// boilerplatePhrases disqualify a fragment wherever they appear
var boilerplatePhrases = []string{
	"baca juga",
	"read also",
	"copyright",
	"halaman selanjutnya",
	"scroll to continue",
	"next page",
}

func isPlaceholder(src string) bool {
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "data:") {
		return true
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isBoilerplate(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
