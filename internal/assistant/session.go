// Package assistant runs the conversation between the signed-in user and the
// marine data assistant.
//
// A Session holds the transcript, the draft and the thinking flag. At most one
// reply is generated at a time; sends made while thinking are dropped. Replies
// that arrive after Cancel or after the user signs out are discarded.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/internal/core/common/validation"
	"github.com/cmlre/marine-platform/internal/core/events"
	"github.com/cmlre/marine-platform/internal/metrics"
	"github.com/cmlre/marine-platform/internal/responder"
	"github.com/cmlre/marine-platform/internal/speech"
)

const greetingFormat = "नमस्ते %s! I'm %s 🌊, your AI assistant for marine data exploration. " +
	"I can help you with data analysis, visualization, uploads, and answer questions in multiple Indian languages. " +
	"How can I assist you today?"

// UserSource reports the signed-in user. *auth.Store satisfies it.
type UserSource interface {
	User() *auth.User
}

// Speaker is the part of the speech coordinator the session drives.
type Speaker interface {
	State() speech.State
	Capabilities() speech.Capabilities
	SpeakIn(ctx context.Context, text, language string) (uint64, error)
	CancelSpeaking()
	StopListening()
}

type Config struct {
	Name            string
	ResponseTimeout time.Duration
	MaxMessageRunes int
	Now             func() time.Time
}

type Session struct {
	cfg       Config
	users     UserSource
	generator responder.Generator
	speaker   Speaker
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu         sync.Mutex
	transcript []Message
	lastID     int64
	draft      string
	thinking   bool
	greeted    bool
	request    uint64
	inflight   uint64
	cancel     context.CancelFunc
}

// NewSession wires a session. speaker may be nil when the host has no audio.
func NewSession(cfg Config, users UserSource, generator responder.Generator, speaker Speaker, m *metrics.Metrics, logger *slog.Logger) *Session {
	if cfg.Name == "" {
		cfg.Name = internal.DefaultAssistantName
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = internal.DefaultResponseTimeout
	}
	if cfg.MaxMessageRunes <= 0 {
		cfg.MaxMessageRunes = 4000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:       cfg,
		users:     users,
		generator: generator,
		speaker:   speaker,
		metrics:   m,
		logger:    logger.With("component", "assistant"),
	}
}

// Subscribe greets on session.established and tears down on session.ended.
func (s *Session) Subscribe(bus *events.EventBus) (unsubscribe func()) {
	offEstablished := bus.Subscribe(events.EventTypeSessionEstablished, func(ctx context.Context, ev events.Event) error {
		e, ok := ev.(*events.SessionEstablishedEvent)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", ev)
		}
		s.Greet(ctx, e.DisplayName, e.PreferredLanguage)
		return nil
	})
	offEnded := bus.Subscribe(events.EventTypeSessionEnded, func(ctx context.Context, ev events.Event) error {
		s.Reset(ctx)
		return nil
	})
	return func() {
		offEstablished()
		offEnded()
	}
}

// Greet appends the welcome message once per signed-in session.
func (s *Session) Greet(ctx context.Context, name, language string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.greeted {
		return false
	}
	s.greeted = true
	s.appendLocked(fmt.Sprintf(greetingFormat, name, s.cfg.Name), SenderAssistant, language)
	s.logger.InfoContext(ctx, "greeted user", "name", name)
	return true
}

// Send appends text as a user message and waits for the reply.
//
// Blank text and sends made while a reply is pending are ignored without error.
// A failed or timed out generation returns StatusFailed with an error wrapping
// internal.ErrResponseGenerationFailed and appends no assistant message.
func (s *Session) Send(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.metrics.ObserveSend("ignored")
		return Result{Status: StatusIgnored}, nil
	}
	if appErr := validation.ValidateMessageText(text, s.cfg.MaxMessageRunes); appErr != nil {
		return Result{}, appErr
	}

	user := s.currentUser()
	if user == nil {
		return Result{}, internal.ErrNotSignedIn
	}

	s.mu.Lock()
	if s.thinking {
		s.mu.Unlock()
		s.metrics.ObserveSend("ignored")
		s.logger.DebugContext(ctx, "send ignored while thinking")
		return Result{Status: StatusIgnored}, nil
	}
	req := s.appendLocked(text, SenderUser, user.PreferredLanguage)
	s.thinking = true
	s.draft = ""
	s.request++
	id := s.request
	genCtx, cancel := internal.WithTimeout(ctx, s.cfg.ResponseTimeout)
	s.inflight = id
	s.cancel = cancel
	s.mu.Unlock()

	started := time.Now()
	reply, err := s.generate(genCtx, text, user.Role)
	cancel()
	elapsed := time.Since(started)

	s.mu.Lock()
	if s.inflight != id {
		// cancelled or torn down while waiting
		s.mu.Unlock()
		s.metrics.ObserveSend("cancelled")
		s.metrics.ObserveGeneration(s.generator.Name(), "cancelled", elapsed)
		s.logger.InfoContext(ctx, "discarded reply of cancelled request", "message_id", req.ID)
		return Result{Status: StatusCancelled, Request: &req}, internal.ErrResponseCancelled
	}
	s.inflight = 0
	s.cancel = nil
	s.thinking = false

	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, context.Canceled) {
			// the caller went away
			s.metrics.ObserveSend("cancelled")
			s.metrics.ObserveGeneration(s.generator.Name(), "cancelled", elapsed)
			return Result{Status: StatusCancelled, Request: &req}, internal.ErrResponseCancelled.WithCause(err)
		}
		outcome := "failed"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		s.metrics.ObserveSend("failed")
		s.metrics.ObserveGeneration(s.generator.Name(), outcome, elapsed)
		s.logger.ErrorContext(ctx, "failed to generate response",
			"generator", s.generator.Name(),
			"message_id", req.ID,
			"outcome", outcome,
			"error", err)
		return Result{Status: StatusFailed, Request: &req}, internal.ErrResponseGenerationFailed.WithCause(err)
	}

	msg := s.appendLocked(reply, SenderAssistant, user.PreferredLanguage)
	s.mu.Unlock()

	s.metrics.ObserveSend("replied")
	s.metrics.ObserveGeneration(s.generator.Name(), "replied", elapsed)
	s.speak(ctx, msg.Text, msg.Language)
	return Result{Status: StatusReplied, Request: &req, Reply: &msg}, nil
}

// Submit sends the current draft.
func (s *Session) Submit(ctx context.Context) (Result, error) {
	return s.Send(ctx, s.Draft())
}

// generate races the collaborator against ctx so a generator that ignores
// cancellation cannot keep the session thinking.
func (s *Session) generate(ctx context.Context, text string, role auth.Role) (string, error) {
	type outcome struct {
		reply string
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		reply, err := s.generator.Generate(ctx, text, role)
		done <- outcome{reply: reply, err: err}
	}()

	select {
	case o := <-done:
		if o.err == nil && strings.TrimSpace(o.reply) == "" {
			return "", responder.ErrEmptyReply
		}
		return o.reply, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Session) speak(ctx context.Context, text, language string) {
	if s.speaker == nil || !s.speaker.Capabilities().Synthesis {
		return
	}
	if s.speaker.State() == speech.StateSpeaking {
		return
	}
	if _, err := s.speaker.SpeakIn(context.WithoutCancel(ctx), text, language); err != nil {
		s.logger.DebugContext(ctx, "reply not spoken", "error", err)
	}
}

// Cancel abandons the pending reply. It reports whether one was pending.
func (s *Session) Cancel(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.thinking {
		return false
	}
	s.abortLocked()
	s.logger.InfoContext(ctx, "pending reply cancelled")
	return true
}

func (s *Session) abortLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.inflight = 0
	s.thinking = false
}

// Reset ends the conversation for a signed-out user: the pending reply is
// dropped, speech stops, and the next session is greeted again.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	s.abortLocked()
	s.transcript = nil
	s.draft = ""
	s.greeted = false
	s.mu.Unlock()

	s.metrics.SetTranscriptLength(0)
	if s.speaker != nil {
		s.speaker.CancelSpeaking()
		s.speaker.StopListening()
	}
	s.logger.InfoContext(ctx, "conversation reset")
}

// ClearTranscript empties the history without replaying the greeting.
func (s *Session) ClearTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = nil
	s.metrics.SetTranscriptLength(0)
}

// SetDraft replaces the pending input. Recognised speech lands here.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Session) IsThinking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thinking
}

func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.transcript...)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Transcript: append([]Message{}, s.transcript...),
		IsThinking: s.thinking,
		Draft:      s.draft,
	}
}

func (s *Session) appendLocked(text string, sender Sender, language string) Message {
	s.lastID++
	msg := Message{
		ID:        s.lastID,
		Text:      text,
		Sender:    sender,
		Timestamp: s.cfg.Now(),
		Language:  language,
	}
	s.transcript = append(s.transcript, msg)
	s.metrics.SetTranscriptLength(len(s.transcript))
	return msg
}

func (s *Session) currentUser() *auth.User {
	if s.users == nil {
		return nil
	}
	return s.users.User()
}
