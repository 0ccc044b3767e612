// Package conversation runs a single chat turn: it records the user
// message, composes the stress-adapted system prompt, asks the model for a
// reply and records the reply.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexschlessinger/companion/internal/metrics"
	"github.com/alexschlessinger/companion/llm"
	"github.com/alexschlessinger/companion/messages"
	"github.com/alexschlessinger/companion/mood"
	"github.com/alexschlessinger/companion/prompt"
	"github.com/alexschlessinger/companion/sessions"
	"go.uber.org/zap"
)

var (
	// ErrInvalidInput is returned for an empty session id or message
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamFailure hides whatever went wrong talking to the model
	ErrUpstreamFailure = errors.New("upstream failure")
)

// DefaultTimeout bounds a completion call when none is configured
const DefaultTimeout = 60 * time.Second

// Config carries the completion parameters used for every turn
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	BaseURL     string
}

// Service orchestrates chat turns. It is safe for concurrent use.
type Service struct {
	store      sessions.SessionStore
	client     llm.LLM
	config     Config
	composer   *prompt.Composer
	classifier *mood.Classifier
	metrics    *metrics.Metrics
}

// Option configures a Service
type Option func(*Service)

// WithComposer replaces the default prompt composer
func WithComposer(c *prompt.Composer) Option {
	return func(s *Service) { s.composer = c }
}

// WithClassifier replaces the default mood classifier
func WithClassifier(c *mood.Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

// WithMetrics records turn outcomes, latency and mood scores
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store sessions.SessionStore, client llm.LLM, config Config, opts ...Option) *Service {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	s := &Service{
		store:      store,
		client:     client,
		config:     config,
		composer:   prompt.NewComposer(true),
		classifier: mood.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleTurn records message in the session, asks the model for a reply and
// records that reply. stressLabel is the raw label sent by the client.
//
// Unknown sessions fail with sessions.ErrNotFound before anything changes.
// When the model fails the user message stays in history and
// ErrUpstreamFailure is returned.
func (s *Service) HandleTurn(ctx context.Context, sessionID, message, stressLabel string) (string, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(message) == "" {
		s.metrics.Turn(metrics.OutcomeInvalid)
		return "", fmt.Errorf("%w: session id and message are required", ErrInvalidInput)
	}

	unlock, err := s.store.LockTurn(sessionID)
	if err != nil {
		s.metrics.Turn(metrics.OutcomeNotFound)
		return "", err
	}
	defer unlock()

	if err := s.store.Append(sessionID, messages.MessageRoleUser, message); err != nil {
		s.metrics.Turn(metrics.OutcomeNotFound)
		return "", err
	}
	s.metrics.Mood(s.classifier.Analyze(message))

	name, _, err := s.store.PreferredName(sessionID)
	if err != nil {
		return "", err
	}
	history, err := s.store.History(sessionID)
	if err != nil {
		return "", err
	}

	req := &llm.CompletionRequest{
		Model:       s.config.Model,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
		Timeout:     s.config.Timeout,
		BaseURL:     s.config.BaseURL,
		System:      s.composer.ComposeTurn(name, stressLabel, history),
		Messages:    history,
	}

	zap.S().Debugw("turn_started",
		"session_id", sessionID,
		"stress_label", stressLabel,
		"history_len", len(history),
		"message", message,
	)

	start := time.Now()
	reply, err := llm.Complete(ctx, s.client, req)
	s.metrics.Upstream(time.Since(start))
	if err != nil {
		zap.S().Warnw("turn_upstream_failed", "session_id", sessionID, "model", s.config.Model, "error", err)
		s.metrics.Turn(metrics.OutcomeUpstream)
		return "", ErrUpstreamFailure
	}

	if err := s.store.Append(sessionID, messages.MessageRoleAssistant, reply.Content); err != nil {
		// Session deleted while the model was answering
		s.metrics.Turn(metrics.OutcomeNotFound)
		return "", err
	}

	zap.S().Debugw("turn_completed",
		"session_id", sessionID,
		"stop_reason", reply.StopReason,
		"input_tokens", reply.GetInputTokens(),
		"output_tokens", reply.GetOutputTokens(),
		"elapsed", time.Since(start),
	)
	s.metrics.Turn(metrics.OutcomeOK)
	return reply.Content, nil
}
