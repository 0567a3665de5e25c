package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"rental_valuation/pkg/core/apperr"
)

// DefaultGeminiModel is used when neither the provider nor the call names one.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements Provider for Google's Gemini models.
type GeminiProvider struct {
	APIKey string
	Model  string
}

// Ensure interface compliance
var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a provider. An empty key is reported per call as
// a configuration error so the server can still start.
func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{APIKey: apiKey}
}

// GenerateResponse sends a generateContent request using the official GenAI SDK.
// API errors are returned unwrapped-compatible (genai.APIError stays in the
// chain) so Classify can read the HTTP code.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	if p.APIKey == "" {
		return "", apperr.Configuration("Gemini APIキーが設定されていません")
	}

	model := p.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	if val := ModelOption(options); val != "" {
		model = val
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create GenAI client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}
	if strings.Contains(strings.ToLower(prompt), "json") {
		config.ResponseMIMEType = "application/json"
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini %s generation failed: %w", model, err)
	}
	return result.Text(), nil
}
