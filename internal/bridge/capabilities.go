package bridge

import (
	"context"

	"formbridge/internal/service"
)

// AudioCapture records one user utterance. Start begins capture; Stop
// ends it and returns the raw audio bytes.
type AudioCapture interface {
	Start() error
	Stop() ([]byte, error)
}

// SpeechOutput speaks bot replies aloud. Speak blocks until playback
// finishes or ctx is done.
type SpeechOutput interface {
	Speak(ctx context.Context, text string) error
}

// Conversation is the slice of the NLP client the bridge needs
type Conversation interface {
	Start(ctx context.Context, sessionID string, labelset []string) (*service.StartResponse, error)
	SendText(ctx context.Context, sessionID, message string) (*service.MessageResponse, error)
	SendAudio(ctx context.Context, sessionID string, audio []byte) (*service.MessageResponse, error)
}
