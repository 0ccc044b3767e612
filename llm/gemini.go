package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexschlessinger/companion/llm/streaming"
	"github.com/alexschlessinger/companion/messages"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var _ LLM = (*GeminiClient)(nil)

type GeminiClient struct {
	apiKey string
}

func NewGeminiClient(apiKey string) *GeminiClient {
	if apiKey == "" {
		zap.S().Debugw("gemini_missing_api_key")
	}
	return &GeminiClient{apiKey: apiKey}
}

// ChatCompletionStream implements the event-based streaming interface
func (g *GeminiClient) ChatCompletionStream(ctx context.Context, req *CompletionRequest) <-chan *messages.StreamEvent {
	streamCore := streaming.NewStreamingCore(ctx, "gemini")

	go func() {
		defer streamCore.Close()

		if err := g.streamCompletion(ctx, req, streamCore); err != nil {
			streamCore.EmitError(err)
		}
	}()

	return streamCore.Events()
}

func (g *GeminiClient) streamCompletion(ctx context.Context, req *CompletionRequest, streamCore *streaming.StreamingCore) error {
	if g.apiKey == "" {
		return errors.New("gemini API key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("failed to create gemini client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	zap.S().Debugw("gemini_streaming_started", "model", req.Model)

	state := streamCore.State()
	for resp, err := range client.Models.GenerateContentStream(ctx, req.Model, MessagesToGeminiContent(req.Messages), config) {
		if err != nil {
			zap.S().Debugw("gemini_stream_error", "error", err)
			return fmt.Errorf("error during streaming: %w", err)
		}

		// Usage is reported on every chunk, keep the latest
		if resp.UsageMetadata != nil {
			state.SetTokenUsage(
				int(resp.UsageMetadata.PromptTokenCount),
				int(resp.UsageMetadata.CandidatesTokenCount),
			)
		}
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			state.SetStopReason(mapGeminiFinishReason(resp.Candidates[0].FinishReason))
		}

		streamCore.EmitContent(resp.Text())
	}

	streamCore.Complete()
	return nil
}

// mapGeminiFinishReason converts Gemini's finish reason to our normalized type
func mapGeminiFinishReason(fr genai.FinishReason) messages.StopReason {
	switch fr {
	case genai.FinishReasonMaxTokens:
		return messages.StopReasonMaxTokens
	case genai.FinishReasonSafety, genai.FinishReasonRecitation,
		genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII:
		return messages.StopReasonContentFilter
	default:
		return messages.StopReasonEndTurn
	}
}

// MessagesToGeminiContent converts the history to Gemini contents. Gemini
// calls the assistant role "model".
func MessagesToGeminiContent(msgs []messages.ChatMessage) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range msgs {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		switch msg.Role {
		case messages.MessageRoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case messages.MessageRoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		}
	}
	return contents
}
