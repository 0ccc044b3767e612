package sessions

import (
	"errors"
	"time"

	"github.com/alexschlessinger/companion/messages"
)

// ErrNotFound is returned for operations on a session id that is not live.
var ErrNotFound = errors.New("session not found")

// ErrInvalidRole is returned when appending a message with a role other
// than user or assistant.
var ErrInvalidRole = errors.New("invalid message role")

// Preferences hold per-session user settings. The record is created the
// first time a preference is set.
type Preferences struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// SessionStore manages the live conversation sessions of the process.
// All methods are safe for concurrent use.
type SessionStore interface {
	// Create allocates a new session with empty history and no preferences.
	Create() string
	// Append adds a message and trims history to the configured window.
	Append(id, role, content string) error
	// History returns a copy of the retained messages in order.
	History(id string) ([]messages.ChatMessage, error)
	SetPreferredName(id, name string) error
	// PreferredName reports the stored name and whether one was set.
	PreferredName(id string) (string, bool, error)
	// Delete removes the session, returning ErrNotFound if nothing was removed.
	Delete(id string) error
	Exists(id string) bool
	Len() int

	// LockTurn serializes chat turns on a single session. The returned
	// function releases the lock.
	LockTurn(id string) (func(), error)

	// Expire drops sessions idle longer than the configured TTL and
	// returns how many were removed.
	Expire(now time.Time) int
}
