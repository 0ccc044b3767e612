package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexschlessinger/companion/messages"
)

// ErrEmptyResponse is returned when a provider completes without any text
var ErrEmptyResponse = errors.New("empty response from model")

// Complete drains a completion stream into the final assistant message.
// Provider errors, cancellation and empty replies are returned as errors.
func Complete(ctx context.Context, client LLM, req *CompletionRequest) (*messages.ChatMessage, error) {
	// Cancelling on return unblocks the provider goroutine if we stop reading early
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var streamed strings.Builder
	var final *messages.ChatMessage

	for event := range client.ChatCompletionStream(ctx, req) {
		switch event.Type {
		case messages.EventTypeContent:
			streamed.WriteString(event.Content)
		case messages.EventTypeComplete:
			final = event.Message
		case messages.EventTypeError:
			return nil, event.Error
		}
	}

	if final == nil {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("completion aborted: %w", err)
		}
		return nil, fmt.Errorf("completion stream closed without result")
	}

	// Use streamed content if the final message did not carry it
	if final.Content == "" {
		final.Content = streamed.String()
	}
	if strings.TrimSpace(final.Content) == "" {
		return nil, ErrEmptyResponse
	}
	return final, nil
}
