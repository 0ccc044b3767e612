package sessions

import (
	"fmt"
	"sync"
	"time"

	"github.com/alexschlessinger/companion/messages"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

var _ SessionStore = (*SyncMapSessionStore)(nil)

// sessionIDPrefix marks ids handed out by this store
const sessionIDPrefix = "session_"

// LocalSession implements an in-memory session
type LocalSession struct {
	id      string
	history []messages.ChatMessage
	prefs   *Preferences
	created time.Time
	last    time.Time
	mu      sync.RWMutex

	// turn is held for the duration of a chat turn, independent of mu so
	// history stays readable while a completion is in flight
	turn sync.Mutex
}

// SyncMapSessionStore implements a thread-safe in-memory session store
type SyncMapSessionStore struct {
	sync.Map
	config *SessionConfig
	now    func() time.Time
	newID  func() (string, error)
}

// Option customizes a SyncMapSessionStore
type Option func(*SyncMapSessionStore)

// WithClock overrides the time source, used by tests exercising expiry
func WithClock(now func() time.Time) Option {
	return func(s *SyncMapSessionStore) {
		s.now = now
	}
}

// WithIDGenerator overrides session id generation
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *SyncMapSessionStore) {
		s.newID = gen
	}
}

// NewSyncMapSessionStore creates a new thread-safe in-memory session store
func NewSyncMapSessionStore(config *SessionConfig, opts ...Option) *SyncMapSessionStore {
	// Use defaults if none provided
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxHistory <= 0 {
		config.MaxHistory = DefaultMaxHistory
	}

	store := &SyncMapSessionStore{
		config: config,
		now:    time.Now,
		newID:  func() (string, error) { return gonanoid.New() },
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// generateID returns a prefixed random id, falling back to a uuid if the
// nanoid source fails
func (s *SyncMapSessionStore) generateID() string {
	id, err := s.newID()
	if err != nil || id == "" {
		zap.S().Warnw("session_id_generation_failed", "error", err)
		id = uuid.NewString()
	}
	return sessionIDPrefix + id
}

// Create allocates a fresh session
func (s *SyncMapSessionStore) Create() string {
	now := s.now()
	for {
		id := s.generateID()
		session := &LocalSession{
			id:      id,
			created: now,
			last:    now,
		}
		if _, loaded := s.LoadOrStore(id, session); !loaded {
			zap.S().Debugw("session_created", "session_id", id)
			return id
		}
		zap.S().Debugw("session_id_collision", "session_id", id)
	}
}

// load returns the live session for id
func (s *SyncMapSessionStore) load(id string) (*LocalSession, error) {
	value, ok := s.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return value.(*LocalSession), nil
}

// Append adds a message to the session history
func (s *SyncMapSessionStore) Append(id, role, content string) error {
	if !messages.ValidRole(role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	session, err := s.load(id)
	if err != nil {
		return err
	}

	now := s.now()
	session.mu.Lock()
	defer session.mu.Unlock()

	session.history = append(session.history, messages.ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	session.history = TrimHistory(session.history, s.config.MaxHistory)
	session.last = now
	return nil
}

// History returns a copy of the session history
func (s *SyncMapSessionStore) History(id string) ([]messages.ChatMessage, error) {
	session, err := s.load(id)
	if err != nil {
		return nil, err
	}

	session.mu.RLock()
	defer session.mu.RUnlock()
	return CopyHistory(session.history), nil
}

// SetPreferredName stores the display name, creating preferences if absent
func (s *SyncMapSessionStore) SetPreferredName(id, name string) error {
	session, err := s.load(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.prefs == nil {
		session.prefs = &Preferences{}
	}
	session.prefs.Name = name
	session.last = s.now()
	return nil
}

// PreferredName returns the stored display name
func (s *SyncMapSessionStore) PreferredName(id string) (string, bool, error) {
	session, err := s.load(id)
	if err != nil {
		return "", false, err
	}

	session.mu.RLock()
	defer session.mu.RUnlock()

	if session.prefs == nil || session.prefs.Name == "" {
		return "", false, nil
	}
	return session.prefs.Name, true, nil
}

// Delete removes a session
func (s *SyncMapSessionStore) Delete(id string) error {
	if _, loaded := s.LoadAndDelete(id); !loaded {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	zap.S().Debugw("session_deleted", "session_id", id)
	return nil
}

// Exists checks if a session exists
func (s *SyncMapSessionStore) Exists(id string) bool {
	_, ok := s.Load(id)
	return ok
}

// Len returns the number of live sessions
func (s *SyncMapSessionStore) Len() int {
	n := 0
	s.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// LockTurn acquires the per-session turn lock
func (s *SyncMapSessionStore) LockTurn(id string) (func(), error) {
	session, err := s.load(id)
	if err != nil {
		return nil, err
	}
	session.turn.Lock()
	return session.turn.Unlock, nil
}

// Expire removes old sessions
func (s *SyncMapSessionStore) Expire(now time.Time) int {
	ttl := s.config.TTL
	if ttl <= 0 {
		return 0
	}

	removed := 0
	s.Range(func(key, value any) bool {
		session := value.(*LocalSession)
		session.mu.RLock()
		lastAccess := session.last
		session.mu.RUnlock()

		if now.Sub(lastAccess) > ttl {
			s.Map.Delete(key)
			removed++
		}
		return true
	})

	if removed > 0 {
		zap.S().Infow("sessions_expired", "count", removed, "ttl", ttl)
	}
	return removed
}
