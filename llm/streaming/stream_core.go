package streaming

import (
	"context"

	"github.com/alexschlessinger/companion/messages"
	"go.uber.org/zap"
)

// StreamingCore provides common streaming functionality for all providers.
// It accumulates state and owns the event channel handed back to callers.
type StreamingCore struct {
	state    *StreamState
	events   chan *messages.StreamEvent
	ctx      context.Context
	provider string
}

// NewStreamingCore creates a new streaming coordinator. The caller must
// call Close when the provider goroutine finishes.
func NewStreamingCore(ctx context.Context, provider string) *StreamingCore {
	return &StreamingCore{
		state:    NewStreamState(),
		events:   make(chan *messages.StreamEvent, 10),
		ctx:      ctx,
		provider: provider,
	}
}

// Events returns the receive side of the event channel
func (sc *StreamingCore) Events() <-chan *messages.StreamEvent {
	return sc.events
}

// State returns the current streaming state (for provider access)
func (sc *StreamingCore) State() *StreamState {
	return sc.state
}

// Close closes the event channel
func (sc *StreamingCore) Close() {
	close(sc.events)
}

func (sc *StreamingCore) send(event *messages.StreamEvent) bool {
	select {
	case <-sc.ctx.Done():
		return false
	case sc.events <- event:
		return true
	}
}

// EmitContent sends a content chunk and accumulates it
func (sc *StreamingCore) EmitContent(content string) {
	if content == "" {
		return
	}
	if sc.send(&messages.StreamEvent{Type: messages.EventTypeContent, Content: content}) {
		sc.state.AppendContent(content)
	}
}

// EmitError sends an error event
func (sc *StreamingCore) EmitError(err error) {
	zap.S().Debugw("streaming_error", "provider", sc.provider, "error", err)
	sc.send(&messages.StreamEvent{Type: messages.EventTypeError, Error: err})
}

// Complete sends the final accumulated message
func (sc *StreamingCore) Complete() {
	content, stop, input, output := sc.state.Snapshot()
	if stop == "" {
		stop = messages.StopReasonEndTurn
	}

	msg := &messages.ChatMessage{
		Role:       messages.MessageRoleAssistant,
		Content:    content,
		StopReason: stop,
	}
	msg.SetTokenUsage(input, output)

	if sc.send(&messages.StreamEvent{Type: messages.EventTypeComplete, Message: msg}) {
		sc.logCompletionDetails(msg)
	}
}

// logCompletionDetails logs streaming completion information for debugging
func (sc *StreamingCore) logCompletionDetails(msg *messages.ChatMessage) {
	contentPreview := msg.Content
	if len(contentPreview) > 200 {
		contentPreview = contentPreview[:200] + "..."
	}

	zap.S().Debugw("streaming_completed",
		"provider", sc.provider,
		"content_preview", contentPreview,
		"content_length", len(msg.Content),
		"stop_reason", msg.StopReason,
		"input_tokens", msg.GetInputTokens(),
		"output_tokens", msg.GetOutputTokens(),
	)
}
