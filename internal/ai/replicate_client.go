package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	replicateBaseURL      = "https://api.replicate.com/v1"
	defaultReplicateModel = "black-forest-labs/flux-schnell"
)

// ReplicateClient runs text-to-image predictions on Replicate
type ReplicateClient struct {
	client  *resty.Client
	model   string
	baseURL string
}

type replicateInput struct {
	Prompt        string `json:"prompt"`
	AspectRatio   string `json:"aspect_ratio"`
	OutputFormat  string `json:"output_format"`
	GoFast        bool   `json:"go_fast"`
	Megapixels    string `json:"megapixels"`
	NumOutputs    int    `json:"num_outputs"`
	OutputQuality int    `json:"output_quality"`
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

func NewReplicateClient(token, model string) *ReplicateClient {
	if model == "" {
		model = defaultReplicateModel
	}
	return &ReplicateClient{
		client: resty.New().
			SetTimeout(90*time.Second).
			SetAuthToken(token).
			SetHeader("Content-Type", "application/json"),
		model:   model,
		baseURL: replicateBaseURL,
	}
}

// Generate runs one prediction and returns the URL of the produced image
func (r *ReplicateClient) Generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s/predictions", r.baseURL, r.model)

	var prediction replicatePrediction
	resp, err := r.client.R().
		SetContext(ctx).
		// ask the API to hold the connection until the prediction settles
		SetHeader("Prefer", "wait").
		SetBody(map[string]any{
			"input": replicateInput{
				Prompt:        prompt,
				AspectRatio:   "16:9",
				OutputFormat:  "webp",
				GoFast:        true,
				Megapixels:    "1",
				NumOutputs:    1,
				OutputQuality: 90,
			},
		}).
		SetResult(&prediction).
		Post(url)

	if err != nil {
		return "", fmt.Errorf("replicate request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("replicate API error: %d %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	switch prediction.Status {
	case "succeeded":
		if image := firstOutput(prediction.Output); image != "" {
			return image, nil
		}
		return "", fmt.Errorf("prediction %s succeeded without output", prediction.ID)
	case "starting", "processing":
		return "", fmt.Errorf("prediction %s still %s", prediction.ID, prediction.Status)
	default:
		return "", fmt.Errorf("prediction %s %s: %v", prediction.ID, prediction.Status, prediction.Error)
	}
}

// firstOutput accepts both the list and the single string output shapes
func firstOutput(raw json.RawMessage) string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	return ""
}

// Illustrator generates a lead image for an article
type Illustrator struct {
	prompts *Writer
	images  *ReplicateClient
}

func NewIllustrator(prompts *Writer, images *ReplicateClient) *Illustrator {
	return &Illustrator{prompts: prompts, images: images}
}

// Illustrate derives a prompt from the article and renders it
func (i *Illustrator) Illustrate(ctx context.Context, title, content string) (string, error) {
	prompt := i.prompts.ImagePrompt(ctx, title, content)
	return i.images.Generate(ctx, prompt)
}
