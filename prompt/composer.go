package prompt

import (
	"fmt"
	"strings"

	"github.com/alexschlessinger/companion/messages"
)

// StressMode selects the response policy block of the system prompt
type StressMode string

const (
	ModeHigh     StressMode = "high"
	ModeModerate StressMode = "moderate"
	ModeCalm     StressMode = "calm"
)

// DefaultName stands in for the user when no preferred name is set
const DefaultName = "friend"

// UnknownStress is reported when the client did not send a stress label
const UnknownStress = "unknown"

// ParseStressMode maps a client label onto a mode. Anything other than
// high or moderate is calm.
func ParseStressMode(label string) StressMode {
	switch StressMode(strings.ToLower(strings.TrimSpace(label))) {
	case ModeHigh:
		return ModeHigh
	case ModeModerate:
		return ModeModerate
	default:
		return ModeCalm
	}
}

// ModeBlock returns the response policy block for mode
func ModeBlock(mode StressMode) string {
	switch mode {
	case ModeHigh:
		return highStressBlock
	case ModeModerate:
		return moderateStressBlock
	default:
		return calmBlock
	}
}

// Persona returns the persona and boundary block addressed to name
func Persona(name string) string {
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	return strings.ReplaceAll(personaTemplate, nameToken, name)
}

// Compose builds the system prompt: the persona block followed by exactly
// one mode block.
func Compose(name string, mode StressMode) string {
	var b strings.Builder
	b.WriteString(Persona(name))
	b.WriteString("\n\n")
	b.WriteString(ModeBlock(mode))
	return b.String()
}

// Composer adds per-turn context around Compose
type Composer struct {
	// RecentContext appends the last RecentWindow messages once the history
	// holds at least MinHistory messages
	RecentContext bool
	RecentWindow  int
	MinHistory    int
}

// NewComposer returns a Composer with the recent-context block enabled
func NewComposer(recentContext bool) *Composer {
	return &Composer{
		RecentContext: recentContext,
		RecentWindow:  6,
		MinHistory:    4,
	}
}

// ComposeTurn builds the system prompt for one chat turn. label is the raw
// stress label from the client; history is the retained window including
// the current user message.
func (c *Composer) ComposeTurn(name, label string, history []messages.ChatMessage) string {
	var b strings.Builder
	b.WriteString(Persona(name))

	if strings.TrimSpace(label) == "" {
		label = UnknownStress
	}
	fmt.Fprintf(&b, "\n\nCURRENT CONTEXT:\n- Stress level detected: %s", label)

	if c.RecentContext && c.RecentWindow > 0 && len(history) >= c.MinHistory {
		recent := history[max(0, len(history)-c.RecentWindow):]
		speaker := name
		if strings.TrimSpace(speaker) == "" {
			speaker = "User"
		}
		b.WriteString("\n\nRECENT CONVERSATION CONTEXT:\n")
		for _, msg := range recent {
			who := "You"
			if msg.Role == messages.MessageRoleUser {
				who = speaker
			}
			fmt.Fprintf(&b, "%s: %s\n", who, msg.Content)
		}
	}

	b.WriteString("\n\n")
	b.WriteString(ModeBlock(ParseStressMode(label)))
	return b.String()
}
