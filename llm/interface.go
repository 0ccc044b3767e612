package llm

import (
	"context"
	"time"

	"github.com/alexschlessinger/companion/messages"
)

// LLM interface defines the contract for language model implementations
type LLM interface {
	// Event-based streaming method. The channel is closed once the
	// completion finishes, fails or ctx is cancelled.
	ChatCompletionStream(context.Context, *CompletionRequest) <-chan *messages.StreamEvent
}

// CompletionRequest contains all parameters for a completion request
type CompletionRequest struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	Temperature float32
	Model       string
	MaxTokens   int
	System      string                 // System instructions for this turn
	Messages    []messages.ChatMessage // Message history, user and assistant only
}
