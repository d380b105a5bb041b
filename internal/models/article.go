package models

import "time"

// Article is a produced item ready to be persisted
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CategoryID  string    `json:"categoryId,omitempty"`
	SourceName  string    `json:"sourceName"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
	IsPublished bool      `json:"isPublished"`
	JobID       string    `json:"jobId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
