package ai

import (
	"fmt"
	"strings"
)

// PromptTemplates contains the system prompts for each kind of generation
var PromptTemplates = struct {
	Writer      string
	Rewriter    string
	ImagePrompt string
}{
	Writer: `You are a senior journalist at an Indonesian online newsroom. Write an original news article from the theme below.

OUTPUT LANGUAGE: %s

ARTICLE PARAMETERS:
- Theme: %s
- Category: %s
- Style: %s
- Format: %s

HTML RULES:
1. Open with a lead paragraph of at least 50 words wrapped in <p>. Never start with a heading.
2. Start every following section with an <h2> subheading. Do not use bold lines as headings.
3. Wrap all body text in <p> tags. No inline styles.

Respond with a single JSON object and nothing else:
{
  "title": "...",
  "excerpt": "one sentence summary, at most 160 characters",
  "content": "<p>...</p><h2>...</h2><p>...</p>"
}`,

	Rewriter: `You are the chief editor of a national Indonesian news outlet. Using only the facts of the source article, report a new story.

RULES:
1. Restructure the story. Do not follow the order of the source; open with its impact, context or an expert angle.
2. Pick one angle (risk, broader trend or practical effect on readers) and keep it throughout.
3. Write in a professional, analytical national-media voice with varied sentence length.
4. Explain why the facts matter, but never invent numbers, names or quotes.
5. Avoid phrases copied from the source.
6. If the source is in another language, translate it first. The output must be entirely in %s.

OUTPUT FORMAT (STRICT TAGS):
[TITLE]
A professional title that differs from the source, no clickbait
[/TITLE]
[EXCERPT]
A sharp summary, at most 160 characters
[/EXCERPT]
[CONTENT]
HTML using <p> paragraphs and one or two <h2> subheadings. No "Baca Juga", no links, no inline styles. 300 to 500 words.
[/CONTENT]`,

	ImagePrompt: `You are an art director. Write a text-to-image prompt for the news article you are given.

RULES:
- Output only the prompt, without introduction or quotes.
- Style: photorealistic, cinematic lighting, 8k, highly detailed.
- Focus on the main subject or concept of the story.
- No text, letters or signboards in the image.
- 20 to 40 words.`,
}

const (
	rewriteSourceLimit = 12000
	imagePreviewLimit  = 500
)

// languageName maps a language code to the name used in prompts
func languageName(code string) string {
	if code == "en" {
		return "English"
	}
	return "Bahasa Indonesia"
}

// BuildGeneratePrompt creates the prompt for writing an article from a theme
func BuildGeneratePrompt(req GenerateRequest) Prompt {
	lang := languageName(req.Language)
	return Prompt{
		System: fmt.Sprintf(PromptTemplates.Writer,
			lang,
			escapeForPrompt(req.Theme),
			escapeForPrompt(req.Category),
			req.Style,
			req.Model),
		User: fmt.Sprintf("Write an in-depth %s article about %q in %s. Include at least three <h2> subheadings.",
			req.Model, escapeForPrompt(req.Theme), lang),
		Temperature: 0.8,
		MaxTokens:   4000,
	}
}

// BuildRewritePrompt creates the prompt for rewriting a source article
func BuildRewritePrompt(req RewriteRequest) Prompt {
	content := truncate(strings.TrimSpace(req.Content), rewriteSourceLimit)
	return Prompt{
		System: fmt.Sprintf(PromptTemplates.Rewriter, languageName(req.Language)),
		User: fmt.Sprintf("Source: %s\n\nOriginal Title: %s\n\nOriginal Content:\n%s\n\nRewrite this article following the instructions. Return only the tagged format.",
			escapeForPrompt(req.SourceName), escapeForPrompt(req.Title), content),
		Temperature: 0.7,
		MaxTokens:   4000,
	}
}

// BuildImagePrompt creates the prompt asking for a text-to-image description
func BuildImagePrompt(title, content string) Prompt {
	return Prompt{
		System:      PromptTemplates.ImagePrompt,
		User:        fmt.Sprintf("Title: %s\n\nContent Preview: %s", escapeForPrompt(title), truncate(content, imagePreviewLimit)),
		Temperature: 0.7,
		MaxTokens:   100,
	}
}

// escapeForPrompt flattens a single-line value embedded in a prompt
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
