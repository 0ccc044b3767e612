package streaming

import (
	"sync"

	"github.com/alexschlessinger/companion/messages"
)

// StreamState holds the common state during streaming for all providers.
// It provides thread-safe access to streaming state that accumulates across chunks.
type StreamState struct {
	ResponseContent string              // Accumulated text content
	StopReason      messages.StopReason // Reason for completion
	InputTokens     int                 // Token count for prompt
	OutputTokens    int                 // Token count for completion

	mu sync.Mutex
}

// NewStreamState creates a new StreamState
func NewStreamState() *StreamState {
	return &StreamState{}
}

// AppendContent safely appends content to the response
func (s *StreamState) AppendContent(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResponseContent += content
}

// SetTokenUsage safely sets token counts
func (s *StreamState) SetTokenUsage(input, output int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InputTokens = input
	s.OutputTokens = output
}

// SetInputTokens updates only the prompt token count
func (s *StreamState) SetInputTokens(input int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InputTokens = input
}

// SetOutputTokens updates only the completion token count
func (s *StreamState) SetOutputTokens(output int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OutputTokens = output
}

// SetStopReason safely sets the stop reason
func (s *StreamState) SetStopReason(reason messages.StopReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopReason = reason
}

// Snapshot returns a copy of the accumulated fields (for the final message and logging)
func (s *StreamState) Snapshot() (content string, stop messages.StopReason, input, output int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ResponseContent, s.StopReason, s.InputTokens, s.OutputTokens
}
