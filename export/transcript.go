// Package export renders a session as a plain-text transcript.
package export

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/alexschlessinger/companion/messages"
)

// Filename is offered to browsers downloading a transcript
const Filename = "conversation.txt"

// DateLayout formats the Date: line
const DateLayout = "1/2/2006"

const (
	assistantSpeaker = "Friend"
	userSpeaker      = "You"
)

// Transcript is everything Render needs
type Transcript struct {
	UserName string
	Date     time.Time
	Messages []messages.ChatMessage
}

var rule = strings.Repeat("=", 50)

var transcriptTmpl = template.Must(template.New("transcript").Funcs(template.FuncMap{
	"rule": func() string { return rule },
}).Parse(`Mental Health Companion - Conversation Export
Date: {{.Date}}
{{if .UserName}}User: {{.UserName}}
{{end}}
{{rule}}

{{range .Lines}}{{.Speaker}}:
{{.Content}}

{{end}}{{rule}}
End of conversation
`))

type line struct {
	Speaker string
	Content string
}

// Render writes t to w
func Render(w io.Writer, t Transcript) error {
	user := userSpeaker
	if name := strings.TrimSpace(t.UserName); name != "" {
		user = name
	}

	lines := make([]line, 0, len(t.Messages))
	for _, msg := range t.Messages {
		speaker := assistantSpeaker
		if msg.Role == messages.MessageRoleUser {
			speaker = user
		}
		lines = append(lines, line{Speaker: speaker, Content: msg.Content})
	}

	date := t.Date
	if date.IsZero() {
		date = time.Now()
	}

	err := transcriptTmpl.Execute(w, struct {
		Date     string
		UserName string
		Lines    []line
	}{
		Date:     date.Format(DateLayout),
		UserName: strings.TrimSpace(t.UserName),
		Lines:    lines,
	})
	if err != nil {
		return fmt.Errorf("render transcript: %w", err)
	}
	return nil
}
