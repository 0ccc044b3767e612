package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alexschlessinger/companion/llm/streaming"
	"github.com/alexschlessinger/companion/messages"
	ai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var _ LLM = (*OpenAIClient)(nil)

type OpenAIClient struct {
	ClientConfig ai.ClientConfig
	Client       *ai.Client
}

// NewOpenAIClient accepts an optional baseURL for OpenAI-compatible servers
func NewOpenAIClient(apiKey string, baseURL string) *OpenAIClient {
	cfg := ai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		ClientConfig: cfg,
		Client:       ai.NewClientWithConfig(cfg),
	}
}

// ChatCompletionStream implements the event-based streaming interface
func (o *OpenAIClient) ChatCompletionStream(ctx context.Context, req *CompletionRequest) <-chan *messages.StreamEvent {
	streamCore := streaming.NewStreamingCore(ctx, "openai")

	go func() {
		defer streamCore.Close()

		if err := o.streamCompletion(ctx, req, streamCore); err != nil {
			streamCore.EmitError(err)
		}
	}()

	return streamCore.Events()
}

func (o *OpenAIClient) streamCompletion(ctx context.Context, req *CompletionRequest, streamCore *streaming.StreamingCore) error {
	zap.S().Debugw("openai_completion_started", "model", req.Model)

	ccr := ai.ChatCompletionRequest{
		MaxCompletionTokens: req.MaxTokens,
		Model:               req.Model,
		Messages:            MessagesToOpenAI(req.System, req.Messages),
		Temperature:         req.Temperature,
		Stream:              true,
		StreamOptions: &ai.StreamOptions{
			IncludeUsage: true, // Include token usage in final chunk
		},
	}

	stream, err := o.Client.CreateChatCompletionStream(ctx, ccr)
	if err != nil {
		zap.S().Debugw("openai_stream_creation_failed", "error", err)
		return fmt.Errorf("failed to create chat completion stream: %w", err)
	}
	defer stream.Close()

	state := streamCore.State()
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			zap.S().Debugw("openai_stream_error", "error", err)
			return fmt.Errorf("error during streaming: %w", err)
		}

		if response.Usage != nil {
			state.SetTokenUsage(response.Usage.PromptTokens, response.Usage.CompletionTokens)
		}

		if len(response.Choices) > 0 {
			choice := response.Choices[0]
			if choice.FinishReason != "" {
				state.SetStopReason(mapOpenAIFinishReason(choice.FinishReason))
			}
			streamCore.EmitContent(choice.Delta.Content)
		}
	}

	streamCore.Complete()
	return nil
}

// mapOpenAIFinishReason converts OpenAI's finish reason to our normalized type
func mapOpenAIFinishReason(fr ai.FinishReason) messages.StopReason {
	switch fr {
	case ai.FinishReasonLength:
		return messages.StopReasonMaxTokens
	case ai.FinishReasonContentFilter:
		return messages.StopReasonContentFilter
	default:
		return messages.StopReasonEndTurn
	}
}

// MessagesToOpenAI converts the system prompt and history to OpenAI format
func MessagesToOpenAI(system string, msgs []messages.ChatMessage) []ai.ChatCompletionMessage {
	result := make([]ai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		result = append(result, ai.ChatCompletionMessage{
			Role:    ai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range msgs {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		result = append(result, ai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return result
}
