// Package server exposes the companion over HTTP+JSON.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/alexschlessinger/companion/conversation"
	"github.com/alexschlessinger/companion/export"
	"github.com/alexschlessinger/companion/internal/metrics"
	"github.com/alexschlessinger/companion/prompt"
	"github.com/alexschlessinger/companion/sessions"
	"github.com/alexschlessinger/companion/stats"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 64 << 10

// Client-facing error messages
const (
	msgNotFound = "Session not found"
	msgUpstream = "I had trouble responding. Can you try again?"
	msgInvalid  = "Please provide both message and sessionId"
)

// Options wires the server to its collaborators
type Options struct {
	Addr     string
	Store    sessions.SessionStore
	Service  *conversation.Service
	Stats    *stats.Aggregator
	Metrics  *metrics.Metrics
	Validate *Validator
	// Now stamps transcript exports; defaults to time.Now
	Now func() time.Time
}

// Server is the companion HTTP server
type Server struct {
	options Options
	server  *http.Server
	handler http.Handler
}

// New builds the routes. Store, Service and Stats are required.
func New(options Options) (*Server, error) {
	if options.Store == nil || options.Service == nil || options.Stats == nil {
		return nil, errors.New("server: store, service and stats are required")
	}
	if options.Validate == nil {
		v, err := NewValidator()
		if err != nil {
			return nil, err
		}
		options.Validate = v
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	s := &Server{options: options}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("POST /api/session/new", s.handleNewSession)
	mux.HandleFunc("POST /api/preferences/{sessionId}", s.handlePreferences)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/conversation/{sessionId}", s.handleHistory)
	mux.HandleFunc("DELETE /api/conversation/{sessionId}", s.handleClear)
	mux.HandleFunc("GET /api/export/{sessionId}", s.handleExport)
	mux.HandleFunc("GET /api/stats/{sessionId}", s.handleStats)
	if options.Metrics != nil {
		mux.Handle("GET /metrics", options.Metrics.Handler())
	}

	s.handler = withRequestID(withAccessLog(withCORS(mux)))
	s.server = &http.Server{
		Addr:              options.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped router
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on Addr and serves until Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.options.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.options.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	zap.S().Infow("server_started", "addr", ln.Addr().String())

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	zap.S().Infow("server_shutting_down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	zap.S().Infow("server_stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Debugw("response_encode_failed", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto status codes and client-safe messages
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, msgUpstream
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		status, msg = http.StatusNotFound, msgNotFound
	case errors.Is(err, conversation.ErrInvalidInput):
		status, msg = http.StatusBadRequest, msgInvalid
	case errors.Is(err, ErrBadRequest):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, conversation.ErrUpstreamFailure):
	default:
		zap.S().Errorw("request_failed", "request_id", RequestID(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// readBody reads a bounded request body
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrBadRequest)
	}
	return body, nil
}

func (s *Server) refreshActive() {
	s.options.Metrics.SetActive(s.options.Store.Len())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Mental Health Companion API is running! 💙",
	})
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	id := s.options.Store.Create()
	s.options.Metrics.SessionCreated()
	s.refreshActive()

	writeJSON(w, http.StatusOK, map[string]string{
		"sessionId": id,
		"message":   "New session created! Ready to chat.",
	})
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sessionId")

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := s.options.Validate.Preferences(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// A blank name leaves any stored name untouched
	name := strings.TrimSpace(req.Name)
	if name != "" {
		err = s.options.Store.SetPreferredName(id, name)
	} else if !s.options.Store.Exists(id) {
		err = fmt.Errorf("%w: %s", sessions.ErrNotFound, id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Name saved",
		"name":    name,
	})
}

type chatResponse struct {
	Reply       string `json:"reply"`
	StressLevel string `json:"stressLevel"`
	SessionID   string `json:"sessionId"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := s.options.Validate.Chat(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	reply, err := s.options.Service.HandleTurn(r.Context(), req.SessionID, req.Message, req.StressLevel)
	if err != nil {
		writeError(w, r, err)
		return
	}

	label := req.StressLevel
	if strings.TrimSpace(label) == "" {
		label = prompt.UnknownStress
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Reply:       reply,
		StressLevel: label,
		SessionID:   req.SessionID,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sessionId")
	history, err := s.options.Store.History(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": id,
		"history":   history,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sessionId")
	if err := s.options.Store.Delete(id); err != nil {
		writeError(w, r, err)
		return
	}
	s.refreshActive()
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Conversation cleared",
		"sessionId": id,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sessionId")
	history, err := s.options.Store.History(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, _, err := s.options.Store.PreferredName(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Render(&buf, export.Transcript{
		UserName: name,
		Date:     s.options.Now(),
		Messages: history,
	}); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out, err := s.options.Stats.Compute(r.PathValue("sessionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
