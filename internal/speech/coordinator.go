package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/metrics"
)

type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateSpeaking  State = "speaking"
)

// DraftSink receives recognised text. The assistant session implements it.
type DraftSink interface {
	SetDraft(text string)
}

type Voice struct {
	Rate     float64
	Pitch    float64
	Language string
}

// Status is a snapshot of the channel.
type Status struct {
	State        State        `json:"state"`
	Capabilities Capabilities `json:"capabilities"`
	Utterance    string       `json:"utterance,omitempty"`
}

// Coordinator owns the speech channel state. Listening and speaking never
// overlap: listening cancels speech, and speech is refused while listening.
type Coordinator struct {
	engine  Engine
	caps    Capabilities
	voice   Voice
	metrics *metrics.Metrics
	logger  *slog.Logger

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu     sync.Mutex
	state  State
	seq    uint64
	active uint64
	cancel context.CancelFunc
	text   string
	sink   DraftSink
	closed bool
}

func NewCoordinator(engine Engine, voice Voice, m *metrics.Metrics, logger *slog.Logger) *Coordinator {
	if engine == nil {
		engine = NullEngine{}
	}
	if voice.Rate == 0 {
		voice.Rate = internal.DefaultSpeechRate
	}
	if voice.Pitch == 0 {
		voice.Pitch = internal.DefaultSpeechPitch
	}
	if logger == nil {
		logger = slog.Default()
	}
	base, stop := context.WithCancel(context.Background())
	return &Coordinator{
		engine:  engine,
		caps:    engine.Capabilities(),
		voice:   voice,
		metrics: m,
		logger:  logger.With("component", "speech"),
		base:    base,
		stop:    stop,
		state:   StateIdle,
	}
}

// Attach sets where recognised text goes. A nil sink drops results.
func (c *Coordinator) Attach(sink DraftSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

func (c *Coordinator) Capabilities() Capabilities {
	return c.caps
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Capabilities: c.caps, Utterance: c.text}
}

// StartListening cancels any speech and begins single-shot recognition. Each
// recognised phrase replaces the attached draft. Already listening is a no-op.
func (c *Coordinator) StartListening(ctx context.Context) error {
	if !c.caps.Recognition {
		return c.unsupported("recognition")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateListening {
		c.mu.Unlock()
		return nil
	}
	c.interruptLocked()

	id, opCtx := c.beginLocked(ctx, StateListening, "")
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		err := c.engine.Listen(opCtx, func(text string) { c.recognized(id, text) })
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("recognition ended with error", "error", err)
		}
		c.finish(id)
	}()
	return nil
}

// StopListening returns to idle. It does nothing unless listening.
func (c *Coordinator) StopListening() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateListening {
		return
	}
	c.interruptLocked()
	c.transitionLocked(StateIdle)
}

// Speak plays text in the configured voice language. See SpeakIn.
func (c *Coordinator) Speak(ctx context.Context, text string) (uint64, error) {
	return c.SpeakIn(ctx, text, "")
}

// SpeakIn plays text and returns its utterance id. An empty language falls back
// to the configured voice language. It is refused while
// listening; a running utterance is cancelled and replaced.
func (c *Coordinator) SpeakIn(ctx context.Context, text, language string) (uint64, error) {
	if !c.caps.Synthesis {
		return 0, c.unsupported("synthesis")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, internal.NewValidationError("utterance text is required", internal.ErrCodeValidationFailed)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	if c.state == StateListening {
		c.mu.Unlock()
		c.metrics.ObserveSpeechRejection("listening")
		c.logger.InfoContext(ctx, "speak rejected while listening")
		return 0, internal.ErrSpeechRejected
	}
	c.interruptLocked()

	id, opCtx := c.beginLocked(ctx, StateSpeaking, text)
	if language == "" {
		language = c.voice.Language
	}
	utt := Utterance{Text: text, Rate: c.voice.Rate, Pitch: c.voice.Pitch, Language: language}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		if err := c.engine.Speak(opCtx, utt); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("speech playback failed", "utterance_id", id, "error", err)
		}
		c.finish(id)
	}()
	return id, nil
}

// CancelSpeaking drops the current utterance and returns to idle at once.
func (c *Coordinator) CancelSpeaking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSpeaking {
		return
	}
	c.interruptLocked()
	c.transitionLocked(StateIdle)
}

// Close stops both channels and waits for the engine calls to return.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.interruptLocked()
	c.transitionLocked(StateIdle)
	c.mu.Unlock()

	c.stop()
	c.wg.Wait()
}

func (c *Coordinator) beginLocked(ctx context.Context, to State, text string) (uint64, context.Context) {
	c.seq++
	opCtx, cancel := context.WithCancel(c.base)
	c.active = c.seq
	c.cancel = cancel
	c.text = text
	c.transitionLocked(to)
	c.logger.DebugContext(ctx, "speech channel started", "state", to, "op_id", c.active)
	return c.active, opCtx
}

// interruptLocked cancels whatever operation is running without changing state.
func (c *Coordinator) interruptLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	switch c.state {
	case StateListening:
		c.engine.StopListening()
	case StateSpeaking:
		c.engine.CancelSpeaking()
	}
	c.active = 0
	c.cancel = nil
	c.text = ""
}

func (c *Coordinator) transitionLocked(to State) {
	from := c.state
	c.state = to
	c.metrics.ObserveSpeechTransition(string(from), string(to))
}

func (c *Coordinator) finish(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != id {
		return
	}
	c.cancel()
	c.active = 0
	c.cancel = nil
	c.text = ""
	c.transitionLocked(StateIdle)
}

func (c *Coordinator) recognized(id uint64, text string) {
	c.mu.Lock()
	if c.active != id {
		c.mu.Unlock()
		return
	}
	sink := c.sink
	c.mu.Unlock()

	if sink != nil {
		sink.SetDraft(text)
	}
}

func (c *Coordinator) unsupported(capability string) error {
	c.metrics.ObserveSpeechRejection("unsupported")
	return internal.ErrUnsupportedCapability.WithDetails(map[string]string{"capability": capability})
}
