package sessions

import "time"

// DefaultMaxHistory is the sliding window applied to every session history
const DefaultMaxHistory = 20

// SessionConfig holds configuration for session management
type SessionConfig struct {
	// MaxHistory is the maximum number of messages to keep in history
	MaxHistory int `yaml:"maxHistory"`

	// TTL is the duration after which inactive sessions expire
	// 0 means no expiration (infinite)
	TTL time.Duration `yaml:"ttl"`
}

// DefaultConfig returns a SessionConfig with sensible defaults
func DefaultConfig() *SessionConfig {
	return &SessionConfig{
		MaxHistory: DefaultMaxHistory,
		TTL:        0, // No expiration by default (infinite)
	}
}
