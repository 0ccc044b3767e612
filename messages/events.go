package messages

// StreamEventType represents the type of streaming event
type StreamEventType string

const (
	// EventTypeContent represents incremental content being streamed
	EventTypeContent StreamEventType = "content"
	// EventTypeComplete represents the complete message
	EventTypeComplete StreamEventType = "complete"
	// EventTypeError represents an error during streaming
	EventTypeError StreamEventType = "error"
)

// StreamEvent represents a single event in the stream
type StreamEvent struct {
	Type    StreamEventType
	Content string       // For incremental content chunks
	Message *ChatMessage // For the complete message
	Error   error        // For error events
}
