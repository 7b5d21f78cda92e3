package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"resumebox/internal/config"
)

const analysisPrompt = `You are a resume reviewer. Analyze the resume below and respond with a single JSON object using exactly these keys:
{
  "contact_name": string,
  "contact_email": string,
  "contact_phone": string,
  "skills": [string],
  "quality_score": integer 0-100,
  "ats_score": integer 0-100,
  "aesthetic_score": integer 0-100,
  "recommendations": [string]
}
If a screenshot of the first page is attached, use it to judge the aesthetic score. Respond with JSON only.

Resume text:
`

// GeminiAnalyzer implements Analyzer against the Gemini API.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnalyzer creates a Gemini-backed analyzer.
func NewGeminiAnalyzer(ctx context.Context, cfg config.AIConfig) (*GeminiAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiAnalyzer{client: client, model: cfg.Model}, nil
}

// Analyze sends the resume text (plus an optional first-page screenshot) to the
// model and decodes the structured JSON response.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, text string, firstPageJPEG []byte) (*Analysis, error) {
	model := a.client.GenerativeModel(a.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	parts := []genai.Part{genai.Text(analysisPrompt + text)}
	if len(firstPageJPEG) > 0 {
		parts = append(parts, genai.ImageData("jpeg", firstPageJPEG))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generate analysis: %w", err)
	}

	raw, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return parseAnalysis(raw)
}

// Close releases resources held by the client.
func (a *GeminiAnalyzer) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from a Gemini API response.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

// parseAnalysis decodes the model output, tolerating markdown code fences.
func parseAnalysis(raw string) (*Analysis, error) {
	cleaned := cleanJSONBlock(raw)

	var analysis Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &analysis, nil
}

// cleanJSONBlock removes markdown code block wrappers from JSON.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
