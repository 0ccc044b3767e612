// Package stats summarizes a session: message counts and the mood timeline
// of the user's messages.
package stats

import (
	"math"
	"strings"
	"time"

	"github.com/alexschlessinger/companion/messages"
	"github.com/alexschlessinger/companion/mood"
	"github.com/alexschlessinger/companion/sessions"
)

// AnonymousName is reported when the session has no preferred name
const AnonymousName = "Anonymous"

// Direction summarizes the trend for display
type Direction string

const (
	Improving Direction = "improving"
	Declining Direction = "declining"
	Stable    Direction = "stable"
)

// trendThreshold is how far the trend must move before it stops being stable
const trendThreshold = 1

// Point is one user message on the mood timeline
type Point struct {
	MessageNumber int       `json:"messageNumber"`
	MoodScore     int       `json:"moodScore"`
	Timestamp     time.Time `json:"timestamp"`
	Band          mood.Band `json:"band"`
}

// Counts are taken over the retained window
type Counts struct {
	TotalMessages     int       `json:"totalMessages"`
	UserMessages      int       `json:"userMessages"`
	AssistantMessages int       `json:"aiMessages"`
	AverageMood       float64   `json:"averageMood"`
	Trend             int       `json:"trend"`
	Direction         Direction `json:"direction"`
}

type Stats struct {
	UserName string  `json:"userName"`
	Stats    Counts  `json:"stats"`
	Timeline []Point `json:"moodTimeline"`
}

// Aggregator computes Stats from a session store
type Aggregator struct {
	store      sessions.SessionStore
	classifier *mood.Classifier
}

// NewAggregator uses the default classifier when classifier is nil
func NewAggregator(store sessions.SessionStore, classifier *mood.Classifier) *Aggregator {
	if classifier == nil {
		classifier = mood.Default()
	}
	return &Aggregator{store: store, classifier: classifier}
}

// Compute returns sessions.ErrNotFound for unknown ids
func (a *Aggregator) Compute(sessionID string) (*Stats, error) {
	history, err := a.store.History(sessionID)
	if err != nil {
		return nil, err
	}
	name, ok, err := a.store.PreferredName(sessionID)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(name) == "" {
		name = AnonymousName
	}

	out := Summarize(history, a.classifier)
	out.UserName = name
	return out, nil
}

// Summarize builds Stats for a history without a user name
func Summarize(history []messages.ChatMessage, classifier *mood.Classifier) *Stats {
	out := &Stats{Timeline: []Point{}}
	out.Stats.TotalMessages = len(history)

	sum := 0
	for _, msg := range history {
		switch msg.Role {
		case messages.MessageRoleUser:
			out.Stats.UserMessages++
			score := classifier.Analyze(msg.Content)
			sum += score
			out.Timeline = append(out.Timeline, Point{
				MessageNumber: out.Stats.UserMessages,
				MoodScore:     score,
				Timestamp:     msg.Timestamp,
				Band:          mood.BandOf(score),
			})
		case messages.MessageRoleAssistant:
			out.Stats.AssistantMessages++
		}
	}

	out.Stats.Direction = Stable
	if n := len(out.Timeline); n > 0 {
		out.Stats.AverageMood = math.Round(float64(sum)/float64(n)*10) / 10
		if n >= 2 {
			out.Stats.Trend = out.Timeline[n-1].MoodScore - out.Timeline[0].MoodScore
		}
		switch {
		case out.Stats.Trend > trendThreshold:
			out.Stats.Direction = Improving
		case out.Stats.Trend < -trendThreshold:
			out.Stats.Direction = Declining
		}
	}
	return out
}
