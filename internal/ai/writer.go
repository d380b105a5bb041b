package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bilgisen/autopress/internal/logger"
)

var (
	titleTagRegex   = regexp.MustCompile(`(?is)\[TITLE\](.*?)\[/TITLE\]`)
	excerptTagRegex = regexp.MustCompile(`(?is)\[EXCERPT\](.*?)\[/EXCERPT\]`)
	contentTagRegex = regexp.MustCompile(`(?is)\[CONTENT\](.*?)\[/CONTENT\]`)
	fencedJSONRegex = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
)

// Draft is a model-written article ready to be persisted
type Draft struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Content string `json:"content"`
}

// GenerateRequest asks for a new article written from a theme
type GenerateRequest struct {
	Theme    string
	Category string
	Style    string
	Model    string
	Language string
}

// RewriteRequest asks for a source article reported anew
type RewriteRequest struct {
	Title      string
	Content    string
	SourceName string
	Language   string
}

// Writer produces article drafts through a chat model
type Writer struct {
	llm  Completer
	post *PostProcessor
}

func NewWriter(llm Completer) *Writer {
	return &Writer{
		llm:  llm,
		post: NewPostProcessor(),
	}
}

// GenerateArticle writes a new article about req.Theme
func (w *Writer) GenerateArticle(ctx context.Context, req GenerateRequest) (*Draft, error) {
	answer, err := w.llm.Complete(ctx, BuildGeneratePrompt(req))
	if err != nil {
		return nil, fmt.Errorf("error calling text model: %w", err)
	}

	var draft Draft
	if err := json.Unmarshal([]byte(cleanJSONResponse(answer)), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if err := w.post.ProcessDraft(&draft); err != nil {
		return nil, fmt.Errorf("invalid draft: %w", err)
	}
	return &draft, nil
}

// RewriteArticle reports a source article anew
func (w *Writer) RewriteArticle(ctx context.Context, req RewriteRequest) (*Draft, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("source content is required")
	}

	answer, err := w.llm.Complete(ctx, BuildRewritePrompt(req))
	if err != nil {
		return nil, fmt.Errorf("error calling text model: %w", err)
	}

	draft := parseTaggedDraft(answer, req.Title)
	if err := w.post.ProcessDraft(draft); err != nil {
		return nil, fmt.Errorf("invalid draft: %w", err)
	}
	return draft, nil
}

// ImagePrompt asks the model for a text-to-image prompt. It never fails;
// a generic editorial prompt is used when the model does not answer.
func (w *Writer) ImagePrompt(ctx context.Context, title, content string) string {
	fallback := fmt.Sprintf("Editorial illustration of %s, photorealistic, 8k", title)

	answer, err := w.llm.Complete(ctx, BuildImagePrompt(title, PlainText(content)))
	if err != nil {
		logger.Component("ai").Warn().
			Err(err).
			Str("title", title).
			Msg("Failed to generate image prompt, using fallback")
		return fallback
	}

	prompt := strings.Trim(strings.TrimSpace(answer), `"'`)
	if prompt == "" {
		return fallback
	}
	return prompt
}

// parseTaggedDraft reads the [TITLE]/[EXCERPT]/[CONTENT] answer format. A
// fenced JSON block is accepted next, and as a last resort the whole
// answer becomes the content under the original title.
func parseTaggedDraft(answer, originalTitle string) *Draft {
	draft := &Draft{
		Title:   tagValue(titleTagRegex, answer),
		Excerpt: tagValue(excerptTagRegex, answer),
		Content: tagValue(contentTagRegex, answer),
	}

	if draft.Content == "" {
		if m := fencedJSONRegex.FindStringSubmatch(answer); m != nil {
			var fenced Draft
			if err := json.Unmarshal([]byte(m[1]), &fenced); err == nil && fenced.Content != "" {
				draft = &fenced
			}
		}
	}

	if draft.Content == "" {
		logger.Component("ai").Warn().Msg("Answer tags missing, falling back to raw response")
		draft = &Draft{
			Title:   originalTitle,
			Excerpt: truncate(originalTitle, 160),
			Content: strings.TrimSpace(answer),
		}
	}

	if draft.Title == "" {
		draft.Title = originalTitle
	}
	if draft.Excerpt == "" {
		draft.Excerpt = truncate(draft.Title, 160)
	}
	return draft
}

func tagValue(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around JSON.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
