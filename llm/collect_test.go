package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexschlessinger/companion/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM replays a fixed list of events
type scriptedLLM struct {
	events []*messages.StreamEvent
	block  bool // wait for cancellation after the scripted events
	got    *CompletionRequest
}

func (s *scriptedLLM) ChatCompletionStream(ctx context.Context, req *CompletionRequest) <-chan *messages.StreamEvent {
	s.got = req
	ch := make(chan *messages.StreamEvent)
	go func() {
		defer close(ch)
		for _, ev := range s.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
		if s.block {
			<-ctx.Done()
		}
	}()
	return ch
}

func content(text string) *messages.StreamEvent {
	return &messages.StreamEvent{Type: messages.EventTypeContent, Content: text}
}

func complete(text string) *messages.StreamEvent {
	return &messages.StreamEvent{
		Type:    messages.EventTypeComplete,
		Message: &messages.ChatMessage{Role: messages.MessageRoleAssistant, Content: text},
	}
}

func TestCompleteReturnsFinalMessage(t *testing.T) {
	client := &scriptedLLM{events: []*messages.StreamEvent{content("hel"), content("lo"), complete("hello")}}

	msg, err := Complete(context.Background(), client, &CompletionRequest{Model: "x"})
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, messages.MessageRoleAssistant, msg.Role)
	assert.Equal(t, "x", client.got.Model)
}

func TestCompleteFallsBackToStreamedContent(t *testing.T) {
	client := &scriptedLLM{events: []*messages.StreamEvent{content("hi "), content("there"), complete("")}}

	msg, err := Complete(context.Background(), client, &CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hi there", msg.Content)
}

func TestCompleteErrorEvent(t *testing.T) {
	boom := errors.New("boom")
	client := &scriptedLLM{events: []*messages.StreamEvent{
		content("partial"),
		{Type: messages.EventTypeError, Error: boom},
	}}

	_, err := Complete(context.Background(), client, &CompletionRequest{})
	assert.ErrorIs(t, err, boom)
}

func TestCompleteEmptyReply(t *testing.T) {
	client := &scriptedLLM{events: []*messages.StreamEvent{content("  \n"), complete("")}}

	_, err := Complete(context.Background(), client, &CompletionRequest{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestCompleteClosedWithoutResult(t *testing.T) {
	client := &scriptedLLM{events: []*messages.StreamEvent{content("dangling")}}

	_, err := Complete(context.Background(), client, &CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without result")
}

func TestCompleteTimeout(t *testing.T) {
	client := &scriptedLLM{block: true}

	start := time.Now()
	_, err := Complete(context.Background(), client, &CompletionRequest{Timeout: 20 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
