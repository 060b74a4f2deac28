package bridge

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"formbridge/internal/cache"
	"formbridge/internal/model"
	"formbridge/internal/service"
)

var (
	// ErrBusy is returned when a turn is attempted while another is
	// still recording or sending
	ErrBusy = errors.New("chat session is busy")
	// ErrCompleted is returned for any turn after the NLP service
	// reported completion
	ErrCompleted = errors.New("chat session already completed")
	// ErrNotActive is returned for turns before Start succeeded
	ErrNotActive = errors.New("chat session not active")
)

// Session relays one respondent's conversation with the NLP service.
// The recording, sending, loading and completed flags act as a
// combined lock: a turn is rejected while any of them is set. The
// transcript lives in memory only; the service owns answer extraction
// and invokes the server callback itself when the session completes.
type Session struct {
	mu sync.Mutex

	id     string
	form   *model.Form
	nlp    Conversation
	audio  AudioCapture
	speech SpeechOutput
	cache  cache.SessionCache

	isLoading   bool
	isRecording bool
	isSending   bool
	isComplete  bool

	transcript []model.ChatMessage
	startedAt  time.Time
}

// Options carries the optional capabilities of a session. Audio and
// Speech may be nil for text-only clients; Cache may be nil in tests.
type Options struct {
	Audio  AudioCapture
	Speech SpeechOutput
	Cache  cache.SessionCache
}

// NewSession creates a session for the given form. The form must have
// at least one question.
func NewSession(form *model.Form, nlp Conversation, opts Options) (*Session, error) {
	if len(form.Labelset()) == 0 {
		return nil, errors.New("form has no questions to ask")
	}
	return &Session{
		id:        uuid.New().String(),
		form:      form,
		nlp:       nlp,
		audio:     opts.Audio,
		speech:    opts.Speech,
		cache:     opts.Cache,
		isLoading: true,
	}, nil
}

// ID returns the session identifier sent to the NLP service
func (s *Session) ID() string { return s.id }

// Start opens the NLP session and returns the service's first
// question. The sending flag is held across the NLP call so a
// concurrent Start cannot open a second session under the same id.
func (s *Session) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.isLoading || s.isSending {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.isSending = true
	s.mu.Unlock()

	start, err := s.nlp.Start(ctx, s.id, s.form.Labelset())

	s.mu.Lock()
	s.isSending = false
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.isLoading = false
	s.startedAt = time.Now()
	s.transcript = append(s.transcript, model.ChatMessage{Sender: "bot", Text: start.NextQuestion})
	s.mu.Unlock()

	s.snapshot(ctx)
	s.speak(ctx, start.NextQuestion)
	return start.NextQuestion, nil
}

// SendText relays one typed turn and returns the bot reply
func (s *Session) SendText(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", errors.New("empty message")
	}
	if err := s.beginTurn(); err != nil {
		return "", err
	}
	defer s.endTurn()

	s.appendMessage("user", text)

	reply, err := s.nlp.SendText(ctx, s.id, text)
	if err != nil {
		return "", err
	}
	return s.handleReply(ctx, reply, ""), nil
}

// StartRecording begins capturing one audio utterance
func (s *Session) StartRecording() error {
	if s.audio == nil {
		return errors.New("no audio capture configured")
	}

	s.mu.Lock()
	if s.isComplete {
		s.mu.Unlock()
		return ErrCompleted
	}
	if s.isLoading {
		s.mu.Unlock()
		return ErrNotActive
	}
	if s.isRecording || s.isSending {
		s.mu.Unlock()
		return ErrBusy
	}
	s.isRecording = true
	s.mu.Unlock()

	if err := s.audio.Start(); err != nil {
		s.mu.Lock()
		s.isRecording = false
		s.mu.Unlock()
		return err
	}
	return nil
}

// StopRecording ends capture, relays the audio and returns the bot
// reply. Empty recordings are discarded without a turn.
func (s *Session) StopRecording(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.isRecording {
		s.mu.Unlock()
		return "", errors.New("not recording")
	}
	s.isRecording = false
	s.isSending = true
	s.mu.Unlock()
	defer s.endTurn()

	audio, err := s.audio.Stop()
	if err != nil {
		return "", err
	}
	if len(audio) == 0 {
		log.Printf("chat %s: no audio data recorded", s.id)
		return "", nil
	}

	reply, err := s.nlp.SendAudio(ctx, s.id, audio)
	if err != nil {
		return "", err
	}

	transcribed := reply.TranscribedText
	if transcribed == "" {
		transcribed = "Audio Input"
	}
	return s.handleReply(ctx, reply, transcribed), nil
}

// Transcript returns a copy of the visible transcript
func (s *Session) Transcript() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Done reports whether the NLP service completed the session
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isComplete
}

// State returns the current lifecycle state
func (s *Session) State() model.ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.isComplete:
		return model.ChatCompleted
	case s.isLoading:
		return model.ChatLoading
	case s.isRecording:
		return model.ChatRecording
	case s.isSending:
		return model.ChatSending
	default:
		return model.ChatActive
	}
}

func (s *Session) beginTurn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isComplete {
		return ErrCompleted
	}
	if s.isLoading {
		return ErrNotActive
	}
	if s.isRecording || s.isSending {
		return ErrBusy
	}
	s.isSending = true
	return nil
}

func (s *Session) endTurn() {
	s.mu.Lock()
	s.isSending = false
	s.mu.Unlock()
}

// handleReply records the turn, speaks the reply and handles session
// completion. userEcho is the user-side transcript entry for audio
// turns (the transcription), empty for typed turns already appended.
func (s *Session) handleReply(ctx context.Context, reply *service.MessageResponse, userEcho string) string {
	s.mu.Lock()
	if userEcho != "" {
		s.transcript = append(s.transcript, model.ChatMessage{Sender: "user", Text: userEcho})
	}
	s.transcript = append(s.transcript, model.ChatMessage{Sender: "bot", Text: reply.BotMessage})
	completed := reply.SessionState == service.SessionStateCompleted
	if completed {
		s.isComplete = true
	}
	s.mu.Unlock()

	if completed {
		log.Printf("chat %s: session completed for form %s", s.id, s.form.ID)
		if s.cache != nil {
			if err := s.cache.Delete(ctx, s.id); err != nil {
				log.Printf("chat %s: session cache delete failed: %v", s.id, err)
			}
		}
	} else {
		s.snapshot(ctx)
	}

	s.speak(ctx, reply.BotMessage)
	return reply.BotMessage
}

func (s *Session) appendMessage(sender, text string) {
	s.mu.Lock()
	s.transcript = append(s.transcript, model.ChatMessage{Sender: sender, Text: text})
	s.mu.Unlock()
}

func (s *Session) snapshot(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	snap := &model.ChatSession{
		ID:         s.id,
		FormID:     s.form.ID,
		State:      s.stateLocked(),
		Transcript: append([]model.ChatMessage(nil), s.transcript...),
		StartedAt:  s.startedAt,
	}
	s.mu.Unlock()

	if err := s.cache.Set(ctx, snap); err != nil {
		log.Printf("chat %s: session cache write failed: %v", s.id, err)
	}
}

func (s *Session) stateLocked() model.ChatState {
	switch {
	case s.isComplete:
		return model.ChatCompleted
	case s.isLoading:
		return model.ChatLoading
	case s.isRecording:
		return model.ChatRecording
	case s.isSending:
		return model.ChatSending
	default:
		return model.ChatActive
	}
}

func (s *Session) speak(ctx context.Context, text string) {
	if s.speech == nil {
		return
	}
	if err := s.speech.Speak(ctx, text); err != nil {
		log.Printf("chat %s: speech output failed: %v", s.id, err)
	}
}
