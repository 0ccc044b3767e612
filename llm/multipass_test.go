package llm

import (
	"context"
	"testing"

	"github.com/alexschlessinger/companion/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstError(t *testing.T, ch <-chan *messages.StreamEvent) error {
	t.Helper()
	for ev := range ch {
		if ev.Type == messages.EventTypeError {
			return ev.Error
		}
	}
	return nil
}

func TestSplitModel(t *testing.T) {
	provider, model, err := SplitModel("Anthropic/claude-sonnet-4-20250514")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", provider)
	assert.Equal(t, "claude-sonnet-4-20250514", model)

	// Only the first slash separates the provider
	_, model, err = SplitModel("ollama/library/llama3")
	require.NoError(t, err)
	assert.Equal(t, "library/llama3", model)

	for _, bad := range []string{"", "gpt-4.1", "/gpt", "openai/"} {
		_, _, err := SplitModel(bad)
		assert.Error(t, err, bad)
	}
}

func TestMultiPassRejectsBadModels(t *testing.T) {
	m := NewMultiPass(map[string]string{"openai": "k"})

	err := firstError(t, m.ChatCompletionStream(context.Background(), &CompletionRequest{Model: "gpt-4.1"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider prefix")

	err = firstError(t, m.ChatCompletionStream(context.Background(), &CompletionRequest{Model: "mystery/model"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestMultiPassMissingKey(t *testing.T) {
	m := NewMultiPass(nil)

	err := firstError(t, m.ChatCompletionStream(context.Background(), &CompletionRequest{Model: "anthropic/claude"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestMultiPassRoutes(t *testing.T) {
	fake := &scriptedLLM{events: []*messages.StreamEvent{complete("ok")}}
	var gotProvider, gotKey, gotURL string

	m := NewMultiPass(map[string]string{"openai": "sk-test"})
	m.factory = func(provider, apiKey, baseURL string) (LLM, error) {
		gotProvider, gotKey, gotURL = provider, apiKey, baseURL
		return fake, nil
	}

	req := &CompletionRequest{Model: "openai/gpt-4.1", BaseURL: "http://proxy"}
	msg, err := Complete(context.Background(), m, req)
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)

	assert.Equal(t, "openai", gotProvider)
	assert.Equal(t, "sk-test", gotKey)
	assert.Equal(t, "http://proxy", gotURL)
	assert.Equal(t, "gpt-4.1", fake.got.Model)
	// caller's request keeps its prefix
	assert.Equal(t, "openai/gpt-4.1", req.Model)
	assert.Empty(t, req.APIKey)
}

func TestMultiPassOllamaKeyless(t *testing.T) {
	fake := &scriptedLLM{events: []*messages.StreamEvent{complete("ok")}}
	m := NewMultiPass(nil)
	m.factory = func(provider, apiKey, baseURL string) (LLM, error) {
		assert.Equal(t, "ollama", provider)
		assert.Empty(t, apiKey)
		return fake, nil
	}

	_, err := Complete(context.Background(), m, &CompletionRequest{Model: "ollama/llama3"})
	assert.NoError(t, err)
}
