package sessions

import (
	"fmt"
	"testing"

	"github.com/alexschlessinger/companion/messages"
	"github.com/stretchr/testify/assert"
)

func numbered(n int) []messages.ChatMessage {
	history := make([]messages.ChatMessage, n)
	for i := range history {
		history[i] = messages.ChatMessage{Role: messages.MessageRoleUser, Content: fmt.Sprintf("m%d", i)}
	}
	return history
}

func TestTrimHistory(t *testing.T) {
	tests := []struct {
		name       string
		history    []messages.ChatMessage
		maxHistory int
		wantLen    int
		wantFirst  string
	}{
		{name: "no limit", history: numbered(30), maxHistory: 0, wantLen: 30, wantFirst: "m0"},
		{name: "under limit", history: numbered(5), maxHistory: 20, wantLen: 5, wantFirst: "m0"},
		{name: "at limit", history: numbered(20), maxHistory: 20, wantLen: 20, wantFirst: "m0"},
		{name: "one over", history: numbered(21), maxHistory: 20, wantLen: 20, wantFirst: "m1"},
		{name: "far over", history: numbered(50), maxHistory: 20, wantLen: 20, wantFirst: "m30"},
		{name: "empty", history: nil, maxHistory: 20, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrimHistory(tt.history, tt.maxHistory)
			assert.Len(t, got, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, got[0].Content)
				assert.Equal(t, tt.history[len(tt.history)-1].Content, got[len(got)-1].Content)
			}
		})
	}
}

func TestCopyHistoryIsIndependent(t *testing.T) {
	original := numbered(3)
	copied := CopyHistory(original)
	copied[0].Content = "changed"
	assert.Equal(t, "m0", original[0].Content)
}
