package sessions

import (
	"github.com/alexschlessinger/companion/messages"
)

// TrimHistory keeps the most recent maxHistory messages, dropping the oldest first.
// A maxHistory of 0 or less disables trimming.
func TrimHistory(history []messages.ChatMessage, maxHistory int) []messages.ChatMessage {
	if maxHistory <= 0 || len(history) <= maxHistory {
		return history
	}

	// Shift the retained tail down so the backing array does not grow unbounded
	n := copy(history, history[len(history)-maxHistory:])
	clear(history[n:])
	return history[:n]
}

// CopyHistory creates a defensive copy of the history slice
func CopyHistory(history []messages.ChatMessage) []messages.ChatMessage {
	result := make([]messages.ChatMessage, len(history))
	copy(result, history)
	return result
}
