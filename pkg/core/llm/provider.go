package llm

import (
	"context"
)

// Provider is the text-completion capability. options may carry "model" to
// select a model identifier for this call.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)

func (f ProviderFunc) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	return f(ctx, prompt, systemPrompt, options)
}

// ModelOption reads the "model" option.
func ModelOption(options map[string]interface{}) string {
	if val, ok := options["model"].(string); ok {
		return val
	}
	return ""
}
