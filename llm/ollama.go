package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexschlessinger/companion/llm/streaming"
	"github.com/alexschlessinger/companion/messages"
	ollamaapi "github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// DefaultOllamaURL is used when no base URL is configured
const DefaultOllamaURL = "http://localhost:11434"

var _ LLM = (*OllamaClient)(nil)

type OllamaClient struct {
	client *ollamaapi.Client
}

// authTransport adds Bearer token authentication to HTTP requests
type authTransport struct {
	Token string
	Base  http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.Token)
	return t.Base.RoundTrip(req)
}

func NewOllamaClient(baseURL string, apiKey string) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		zap.S().Warnw("ollama_invalid_url", "url", baseURL, "error", err)
		u, _ = url.Parse(DefaultOllamaURL)
	}

	// Hosted Ollama endpoints take a bearer token; local ones need nothing
	httpClient := http.DefaultClient
	if apiKey != "" {
		httpClient = &http.Client{
			Transport: &authTransport{
				Token: apiKey,
				Base:  http.DefaultTransport,
			},
		}
		zap.S().Debugw("ollama_bearer_auth_enabled")
	}

	return &OllamaClient{
		client: ollamaapi.NewClient(u, httpClient),
	}
}

// ChatCompletionStream implements the event-based streaming interface
func (o *OllamaClient) ChatCompletionStream(ctx context.Context, req *CompletionRequest) <-chan *messages.StreamEvent {
	streamCore := streaming.NewStreamingCore(ctx, "ollama")

	go func() {
		defer streamCore.Close()

		if err := o.streamCompletion(ctx, req, streamCore); err != nil {
			streamCore.EmitError(err)
		}
	}()

	return streamCore.Events()
}

func (o *OllamaClient) streamCompletion(ctx context.Context, req *CompletionRequest, streamCore *streaming.StreamingCore) error {
	stream := true
	chatReq := &ollamaapi.ChatRequest{
		Model:    req.Model,
		Messages: MessagesToOllama(req.System, req.Messages),
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}

	zap.S().Debugw("ollama_chat_started", "model", req.Model)

	// Reasoning models inline <think> blocks in content; those never reach the user
	var filter ThinkBlockFilter
	state := streamCore.State()

	err := o.client.Chat(ctx, chatReq, func(resp ollamaapi.ChatResponse) error {
		if text, _ := filter.ProcessChunk(resp.Message.Content); text != "" {
			streamCore.EmitContent(text)
		}
		if resp.Done {
			state.SetTokenUsage(resp.PromptEvalCount, resp.EvalCount)
			state.SetStopReason(mapOllamaDoneReason(resp.DoneReason))
		}
		return nil
	})
	if err != nil {
		zap.S().Debugw("ollama_chat_error", "error", err)
		return fmt.Errorf("ollama chat failed: %w", err)
	}

	// Flush a trailing partial tag that never became a think block
	if rest := filter.Flush(); rest != "" {
		streamCore.EmitContent(rest)
	}

	streamCore.Complete()
	return nil
}

func mapOllamaDoneReason(reason string) messages.StopReason {
	if reason == "length" {
		return messages.StopReasonMaxTokens
	}
	return messages.StopReasonEndTurn
}

// MessagesToOllama converts the system prompt and history to Ollama format
func MessagesToOllama(system string, msgs []messages.ChatMessage) []ollamaapi.Message {
	out := make([]ollamaapi.Message, 0, len(msgs)+1)
	if system != "" {
		out = append(out, ollamaapi.Message{Role: messages.MessageRoleSystem, Content: system})
	}
	for _, msg := range msgs {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		out = append(out, ollamaapi.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}
