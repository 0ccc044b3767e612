package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexschlessinger/companion/internal/metrics"
	"github.com/alexschlessinger/companion/llm"
	"github.com/alexschlessinger/companion/messages"
	"github.com/alexschlessinger/companion/prompt"
	"github.com/alexschlessinger/companion/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM answers every request with reply, or fails with err
type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	delay time.Duration
	reqs  []*llm.CompletionRequest
}

func (f *fakeLLM) ChatCompletionStream(ctx context.Context, req *llm.CompletionRequest) <-chan *messages.StreamEvent {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	ch := make(chan *messages.StreamEvent, 2)
	go func() {
		defer close(ch)
		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return
			}
		}
		if f.err != nil {
			ch <- &messages.StreamEvent{Type: messages.EventTypeError, Error: f.err}
			return
		}
		ch <- &messages.StreamEvent{Type: messages.EventTypeContent, Content: f.reply}
		ch <- &messages.StreamEvent{
			Type:    messages.EventTypeComplete,
			Message: &messages.ChatMessage{Role: messages.MessageRoleAssistant, Content: f.reply},
		}
	}()
	return ch
}

func (f *fakeLLM) last() *llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func newService(client llm.LLM, opts ...Option) (*Service, *sessions.SyncMapSessionStore) {
	store := sessions.NewSyncMapSessionStore(sessions.DefaultConfig())
	return NewService(store, client, Config{Model: "anthropic/test", MaxTokens: 256}, opts...), store
}

func TestHandleTurnSuccess(t *testing.T) {
	client := &fakeLLM{reply: "I hear you 💙"}
	svc, store := newService(client)
	id := store.Create()

	reply, err := svc.HandleTurn(context.Background(), id, "rough day at work", "moderate")
	require.NoError(t, err)
	assert.Equal(t, "I hear you 💙", reply)

	history, err := store.History(id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, messages.MessageRoleUser, history[0].Role)
	assert.Equal(t, "rough day at work", history[0].Content)
	assert.Equal(t, messages.MessageRoleAssistant, history[1].Role)
	assert.Equal(t, "I hear you 💙", history[1].Content)

	req := client.last()
	assert.Equal(t, "anthropic/test", req.Model)
	assert.Equal(t, 256, req.MaxTokens)
	assert.Equal(t, DefaultTimeout, req.Timeout)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.System, prompt.ModeBlock(prompt.ModeModerate))
}

func TestHandleTurnUsesNameAndHighStress(t *testing.T) {
	client := &fakeLLM{reply: "breathe with me"}
	svc, store := newService(client)
	id := store.Create()
	require.NoError(t, store.SetPreferredName(id, "Alex"))

	_, err := svc.HandleTurn(context.Background(), id, "everything is falling apart", "high")
	require.NoError(t, err)

	system := client.last().System
	assert.Contains(t, system, "Alex")
	assert.Equal(t, 1, strings.Count(system, prompt.ModeBlock(prompt.ModeHigh)))
	assert.NotContains(t, system, prompt.ModeBlock(prompt.ModeModerate))
	assert.NotContains(t, system, prompt.ModeBlock(prompt.ModeCalm))
}

func TestHandleTurnUpstreamFailureKeepsUserMessage(t *testing.T) {
	client := &fakeLLM{err: errors.New("provider exploded: secret detail")}
	svc, store := newService(client)
	id := store.Create()

	_, err := svc.HandleTurn(context.Background(), id, "hello?", "low")
	require.ErrorIs(t, err, ErrUpstreamFailure)
	assert.NotContains(t, err.Error(), "secret detail")

	history, err := store.History(id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, messages.MessageRoleUser, history[0].Role)
}

func TestHandleTurnEmptyReplyIsFailure(t *testing.T) {
	svc, store := newService(&fakeLLM{reply: "   "})
	id := store.Create()

	_, err := svc.HandleTurn(context.Background(), id, "hi", "")
	require.ErrorIs(t, err, ErrUpstreamFailure)

	history, _ := store.History(id)
	assert.Len(t, history, 1)
}

func TestHandleTurnTimeout(t *testing.T) {
	store := sessions.NewSyncMapSessionStore(sessions.DefaultConfig())
	svc := NewService(store, &fakeLLM{reply: "late", delay: time.Second}, Config{Timeout: 20 * time.Millisecond})
	id := store.Create()

	_, err := svc.HandleTurn(context.Background(), id, "hi", "low")
	require.ErrorIs(t, err, ErrUpstreamFailure)

	history, _ := store.History(id)
	assert.Len(t, history, 1)
}

func TestHandleTurnUnknownSession(t *testing.T) {
	client := &fakeLLM{reply: "hi"}
	svc, store := newService(client)

	_, err := svc.HandleTurn(context.Background(), "session_missing", "hello", "low")
	require.ErrorIs(t, err, sessions.ErrNotFound)
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, client.reqs)
}

func TestHandleTurnInvalidInput(t *testing.T) {
	client := &fakeLLM{reply: "hi"}
	svc, store := newService(client)
	id := store.Create()

	for _, tc := range []struct{ id, msg string }{
		{"", "hello"},
		{id, ""},
		{id, "   \n"},
		{"  ", "hello"},
	} {
		_, err := svc.HandleTurn(context.Background(), tc.id, tc.msg, "low")
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	history, _ := store.History(id)
	assert.Empty(t, history)
	assert.Empty(t, client.reqs)
}

func TestHandleTurnSendsWindowedHistory(t *testing.T) {
	client := &fakeLLM{reply: "ok"}
	svc, store := newService(client)
	id := store.Create()

	for range 15 {
		_, err := svc.HandleTurn(context.Background(), id, "again", "low")
		require.NoError(t, err)
	}
	// 14 earlier pairs + this user message, trimmed to the window
	assert.Len(t, client.last().Messages, sessions.DefaultMaxHistory)
	assert.Equal(t, messages.MessageRoleUser, client.last().Messages[sessions.DefaultMaxHistory-1].Role)
}

func TestHandleTurnConcurrentSameSession(t *testing.T) {
	svc, store := newService(&fakeLLM{reply: "ok", delay: 5 * time.Millisecond})
	id := store.Create()

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.HandleTurn(context.Background(), id, "hi", "low")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Turns never interleave: roles strictly alternate
	history, _ := store.History(id)
	require.Len(t, history, 10)
	for i, msg := range history {
		want := messages.MessageRoleUser
		if i%2 == 1 {
			want = messages.MessageRoleAssistant
		}
		assert.Equal(t, want, msg.Role, "message %d", i)
	}
}

func TestHandleTurnRecordsMetrics(t *testing.T) {
	m := metrics.NewMetrics()
	svc, store := newService(&fakeLLM{reply: "ok"}, WithMetrics(m))
	id := store.Create()

	_, err := svc.HandleTurn(context.Background(), id, "feeling great", "low")
	require.NoError(t, err)
	_, err = svc.HandleTurn(context.Background(), "nope", "hi", "low")
	require.Error(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, fam := range families {
		if fam.GetName() != "companion_turns_total" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			counts[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, counts[metrics.OutcomeOK])
	assert.Equal(t, 1.0, counts[metrics.OutcomeNotFound])
}
