package models

import "time"

// FeedDescriptor is one entry of the feed catalog
type FeedDescriptor struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	URL      string `json:"url" yaml:"url"`
	Category string `json:"category" yaml:"category"`
	Country  string `json:"country" yaml:"country"`
}

// ArticleSummary is a single syndication entry normalized across feed formats
type ArticleSummary struct {
	Title        string    `json:"title"`
	Link         string    `json:"link"`
	RawContent   string    `json:"rawContent"`
	Snippet      string    `json:"snippet"`
	PublishedAt  time.Time `json:"publishedAt"`
	Categories   []string  `json:"categories"`
	Creator      string    `json:"creator"`
	LeadImage    string    `json:"leadImage,omitempty"`
	SourceFeedID string    `json:"sourceFeedId"`
	SourceName   string    `json:"sourceName"`
}

// ExtractionStatus tells a successful extraction apart from the two failure shapes
type ExtractionStatus string

const (
	// ExtractionOK means a non-empty body was recovered
	ExtractionOK ExtractionStatus = "ok"
	// ExtractionEmpty means the page was retrieved but held no usable article text
	ExtractionEmpty ExtractionStatus = "empty"
	// ExtractionFailed means the page could not be retrieved or parsed
	ExtractionFailed ExtractionStatus = "failed"
)

// FailedExtractionTitle is the placeholder title of a failed extraction
const FailedExtractionTitle = "Failed to extract"

// ExtractedContent is the result of scraping one article page
type ExtractedContent struct {
	Title     string           `json:"title"`
	BodyText  string           `json:"bodyText"`
	LeadImage string           `json:"leadImage,omitempty"`
	Author    string           `json:"author,omitempty"`
	Status    ExtractionStatus `json:"status"`
}

// OK reports whether the extraction produced article text
func (c ExtractedContent) OK() bool {
	return c.Status == ExtractionOK && c.BodyText != ""
}

// FailedExtraction returns the sentinel value for an extraction that could not run
func FailedExtraction() ExtractedContent {
	return ExtractedContent{Title: FailedExtractionTitle, Status: ExtractionFailed}
}
