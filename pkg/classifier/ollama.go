package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/agrovision/cattle-analyzer/pkg/types"
)

// classifyPrompt instructs the vision model to return a strict JSON
// classification.
const classifyPrompt = `You are a livestock species classifier.

Look at the image and decide whether it shows a cow, a water buffalo, or
neither.

Return JSON only:
{
  "type": "Cow" | "Buffalo" | "None",
  "confidence": 0.0
}

HARD RULES
- confidence is in [0,1].
- Use "None" when no cow or buffalo is clearly visible.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// OllamaClassifier classifies images with a remote Ollama vision model.
type OllamaClassifier struct {
	client *api.Client
	model  string
}

// NewOllamaClassifier creates a classifier talking to the given Ollama
// server URL.
func NewOllamaClassifier(ollamaURL, model string) (*OllamaClassifier, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &OllamaClassifier{
		client: api.NewClient(baseURL, http.DefaultClient),
		model:  model,
	}, nil
}

// Classify sends the image to the vision model and parses its JSON answer.
// Unparseable answers fall back to a low-confidence None rather than an
// error.
func (c *OllamaClassifier) Classify(ctx context.Context, img image.Image) (types.Classification, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 120*time.Second)
		defer cancel()
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return types.Classification{}, fmt.Errorf("failed to encode image for model: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: classifyPrompt,
				Images:  []api.ImageData{api.ImageData(buf.Bytes())},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return types.Classification{}, fmt.Errorf("ollama chat error: %v", err)
	}
	if responseContent == "" {
		return types.Classification{}, fmt.Errorf("empty response from ollama")
	}

	return parseClassification(responseContent), nil
}

// parseClassification extracts the classification from the model response,
// falling back to a conservative None on anything unparseable.
func parseClassification(raw string) types.Classification {
	raw = sanitizeModelJSON(raw)

	fallback := types.Classification{Type: types.AnimalNone, Confidence: 0.1}
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return fallback
	}

	var parsed struct {
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return fallback
	}

	cls := types.Classification{
		Type:       animalTypeFromLabel(strings.TrimSpace(parsed.Type)),
		Confidence: parsed.Confidence,
	}
	if cls.Confidence < 0 {
		cls.Confidence = 0
	}
	if cls.Confidence > 1 {
		cls.Confidence = 1
	}
	return cls
}

// sanitizeModelJSON removes code fences, comments, and trailing commas from
// a model's JSON response.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	// Remove /* ... */ block comments
	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")

	// Remove // line/inline comments
	reLine := regexp.MustCompile(`(?m)^\s*//.*$`)
	raw = reLine.ReplaceAllString(raw, "")
	reInline := regexp.MustCompile(`(?m)//.*$`)
	raw = reInline.ReplaceAllString(raw, "")

	// Remove trailing commas before } or ]
	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
