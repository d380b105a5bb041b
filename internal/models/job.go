package models

import "time"

// JobKind selects where a job takes its material from
type JobKind string

const (
	// JobKindTheme generates articles from a theme
	JobKindTheme JobKind = "theme"
	// JobKindFeed rewrites fresh articles taken from syndication feeds
	JobKindFeed JobKind = "feed"
)

// RunStatus is the last observed state of a job
type RunStatus string

const (
	RunStatusIdle       RunStatus = "idle"
	RunStatusGenerating RunStatus = "generating"
	RunStatusSuccess    RunStatus = "success"
	RunStatusFailed     RunStatus = "failed"
)

// SourceConfig holds what a job reads and how its output should be written
type SourceConfig struct {
	Theme                 string   `json:"theme,omitempty" validate:"max=500"`
	FeedIDs               []string `json:"feedIds,omitempty"`
	Style                 string   `json:"style" validate:"omitempty,oneof=Formal Santai Investigatif Provokatif Inspiratif"`
	Model                 string   `json:"model" validate:"omitempty,oneof='Breaking News' 'Feature Story' Opinion Interview Editorial"`
	Language              string   `json:"language" validate:"omitempty,oneof=id en"`
	GenerateImage         bool     `json:"generateImage"`
	ShowSourceAttribution bool     `json:"showSourceAttribution"`
}

// JobRecord is one configured recurring acquisition task
type JobRecord struct {
	ID                 string       `json:"id"`
	TaskKey            string       `json:"taskKey"`
	Name               string       `json:"name" validate:"required,max=200"`
	Kind               JobKind      `json:"kind" validate:"oneof=theme feed"`
	Source             SourceConfig `json:"sourceConfig"`
	TargetCategoryID   string       `json:"targetCategoryId,omitempty"`
	ItemsPerRun        int          `json:"itemsPerRun" validate:"min=1,max=20"`
	IsActive           bool         `json:"isActive"`
	IsPublishByDefault bool         `json:"isPublishByDefault"`
	LastRunAt          *time.Time   `json:"lastRunAt,omitempty"`
	LastRunStatus      RunStatus    `json:"lastRunStatus"`
	TotalRuns          int          `json:"totalRuns"`
	TotalItemsProduced int          `json:"totalItemsProduced"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// RunCompletion is what a finished run writes back to its job record
type RunCompletion struct {
	FinishedAt    time.Time
	Status        RunStatus
	ItemsProduced int
}

// RunResultStatus is the outcome of a single generation iteration
type RunResultStatus string

const (
	// RunResultSuccess means the item was produced and persisted
	RunResultSuccess RunResultStatus = "success"
	// RunResultFailed means the item was produced but could not be persisted
	RunResultFailed RunResultStatus = "failed"
	// RunResultError means no item could be produced
	RunResultError RunResultStatus = "error"
)

// RunResult is the per-iteration outcome of a job run
type RunResult struct {
	Status       RunResultStatus `json:"status"`
	ProducedID   string          `json:"producedId,omitempty"`
	Title        string          `json:"title,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}
