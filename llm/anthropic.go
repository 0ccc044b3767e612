package llm

import (
	"context"
	"strings"

	"github.com/alexschlessinger/companion/llm/streaming"
	"github.com/alexschlessinger/companion/messages"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"go.uber.org/zap"
)

var _ LLM = (*AnthropicClient)(nil)

type AnthropicClient struct {
	client anthropic.Client
}

func NewAnthropicClient(apiKey string, opts ...option.RequestOption) *AnthropicClient {
	if apiKey == "" {
		zap.S().Debugw("anthropic_missing_api_key")
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
	}
}

// buildRequestParams creates the Anthropic API request parameters
func (a *AnthropicClient) buildRequestParams(req *CompletionRequest) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages:    MessagesToAnthropicParams(req.Messages),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: req.System,
			},
		}
	}

	return params
}

// ChatCompletionStream implements the event-based streaming interface
func (a *AnthropicClient) ChatCompletionStream(ctx context.Context, req *CompletionRequest) <-chan *messages.StreamEvent {
	streamCore := streaming.NewStreamingCore(ctx, "anthropic")

	go func() {
		defer streamCore.Close()

		zap.S().Debugw("anthropic_streaming_started", "model", req.Model)

		stream := a.client.Messages.NewStreaming(ctx, a.buildRequestParams(req))
		defer stream.Close()

		a.processStream(stream, streamCore)
	}()

	return streamCore.Events()
}

// processStream handles the main stream processing logic
func (a *AnthropicClient) processStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], streamCore *streaming.StreamingCore) {
	state := streamCore.State()

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case string(constant.ValueOf[constant.MessageStart]()):
			state.SetInputTokens(int(event.AsMessageStart().Message.Usage.InputTokens))

		case string(constant.ValueOf[constant.ContentBlockDelta]()):
			if text := event.AsContentBlockDelta().Delta.Text; text != "" {
				streamCore.EmitContent(text)
			}

		case string(constant.ValueOf[constant.MessageDelta]()):
			msgDelta := event.AsMessageDelta()
			state.SetStopReason(mapAnthropicStopReason(msgDelta.Delta.StopReason))
			state.SetOutputTokens(int(msgDelta.Usage.OutputTokens))
		}
	}

	if err := stream.Err(); err != nil {
		streamCore.EmitError(err)
		return
	}

	streamCore.Complete()
}

// mapAnthropicStopReason converts Anthropic's stop reason to our normalized type
func mapAnthropicStopReason(sr anthropic.StopReason) messages.StopReason {
	switch sr {
	case "max_tokens":
		return messages.StopReasonMaxTokens
	case "refusal":
		return messages.StopReasonContentFilter
	default:
		return messages.StopReasonEndTurn
	}
}

// MessagesToAnthropicParams converts the turn history to Anthropic message
// parameters. System messages travel in the request's System field and
// blank messages are dropped.
func MessagesToAnthropicParams(msgs []messages.ChatMessage) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, msg := range msgs {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		switch msg.Role {
		case messages.MessageRoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case messages.MessageRoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return out
}
