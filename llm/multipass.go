package llm

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/alexschlessinger/companion/messages"
)

var _ LLM = (*MultiPass)(nil)

// Providers lists the model prefixes MultiPass understands
var Providers = []string{"anthropic", "openai", "gemini", "ollama"}

// MultiPass routes requests to different LLM providers based on model prefix
type MultiPass struct {
	apiKeys map[string]string

	// factory builds the provider client; swapped in tests
	factory func(provider, apiKey, baseURL string) (LLM, error)
}

// EnvVarForProvider returns the environment variable holding the provider's key
func EnvVarForProvider(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

// SplitModel parses "provider/model" into its lower-cased provider and model name
func SplitModel(model string) (provider, name string, err error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("model must include provider prefix (e.g., 'openai/gpt-4.1', 'anthropic/claude-sonnet-4-20250514'), got %q", model)
	}
	return strings.ToLower(parts[0]), parts[1], nil
}

// NewMultiPass creates a new multi-provider router keyed by provider name
func NewMultiPass(apiKeys map[string]string) *MultiPass {
	return &MultiPass{
		apiKeys: apiKeys,
		factory: newProvider,
	}
}

func newProvider(provider, apiKey, baseURL string) (LLM, error) {
	switch provider {
	case "openai":
		return NewOpenAIClient(apiKey, baseURL), nil
	case "anthropic":
		return NewAnthropicClient(apiKey), nil
	case "gemini":
		return NewGeminiClient(apiKey), nil
	case "ollama":
		return NewOllamaClient(baseURL, apiKey), nil
	default:
		return nil, fmt.Errorf("unknown provider %q, valid providers: %s", provider, strings.Join(Providers, ", "))
	}
}

// errorStream returns a closed channel carrying a single error event
func errorStream(err error) <-chan *messages.StreamEvent {
	ch := make(chan *messages.StreamEvent, 1)
	ch <- &messages.StreamEvent{Type: messages.EventTypeError, Error: err}
	close(ch)
	return ch
}

// ChatCompletionStream routes the request to the appropriate provider. The
// caller's request is not modified.
func (m *MultiPass) ChatCompletionStream(ctx context.Context, req *CompletionRequest) <-chan *messages.StreamEvent {
	provider, model, err := SplitModel(req.Model)
	if err != nil {
		return errorStream(err)
	}

	if !slices.Contains(Providers, provider) {
		return errorStream(fmt.Errorf("unknown provider %q, valid providers: %s", provider, strings.Join(Providers, ", ")))
	}

	routed := *req
	routed.Model = model

	// Populate or validate API key (ollama can be keyless)
	if routed.APIKey == "" {
		routed.APIKey = m.apiKeys[provider]
		if routed.APIKey == "" && provider != "ollama" {
			return errorStream(fmt.Errorf("missing API key for provider %q, set %s", provider, EnvVarForProvider(provider)))
		}
	}

	client, err := m.factory(provider, routed.APIKey, routed.BaseURL)
	if err != nil {
		return errorStream(err)
	}
	return client.ChatCompletionStream(ctx, &routed)
}
