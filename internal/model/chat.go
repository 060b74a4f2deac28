package model

import "time"

// ChatState is the lifecycle state of a conversational session
type ChatState string

const (
	ChatLoading   ChatState = "loading"
	ChatActive    ChatState = "active"
	ChatRecording ChatState = "recording"
	ChatSending   ChatState = "sending"
	ChatCompleted ChatState = "completed"
)

// ChatMessage is one visible transcript entry
type ChatMessage struct {
	Sender string `json:"sender"` // "user" or "bot"
	Text   string `json:"text"`
}

// ChatSession is a snapshot of a bridge session, mirrored to the
// session cache for observability. The transcript itself lives in
// memory only; losing the session loses conversational progress.
type ChatSession struct {
	ID         string        `json:"id"`
	FormID     string        `json:"formId"`
	State      ChatState     `json:"state"`
	Transcript []ChatMessage `json:"transcript"`
	StartedAt  time.Time     `json:"startedAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}
