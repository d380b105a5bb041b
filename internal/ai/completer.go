package ai

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the model answered with no text
var ErrEmptyCompletion = errors.New("no content in response")

// Prompt is a single system + user exchange with a chat model
type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Completer sends a prompt to a text model and returns its raw answer
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}
