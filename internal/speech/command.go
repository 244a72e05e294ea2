package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
)

const (
	DefaultCommand = "espeak-ng"

	baseWordsPerMinute = 175
	basePitch          = 50
)

// CommandEngine speaks by running a text-to-speech binary (espeak, espeak-ng or say).
// It has no recognition capability.
type CommandEngine struct {
	path   string
	voice  string
	logger *slog.Logger

	mu   sync.Mutex
	proc *os.Process
}

func NewCommandEngine(binary, voice string, logger *slog.Logger) (*CommandEngine, error) {
	if binary == "" {
		binary = DefaultCommand
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("speech: %s not found: %w", binary, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandEngine{path: path, voice: voice, logger: logger}, nil
}

func (e *CommandEngine) Capabilities() Capabilities {
	return Capabilities{Synthesis: true}
}

func (e *CommandEngine) Listen(context.Context, func(string)) error {
	return ErrRecognitionUnsupported
}

func (e *CommandEngine) StopListening() {}

func (e *CommandEngine) Speak(ctx context.Context, u Utterance) error {
	cmd := exec.CommandContext(ctx, e.path, e.args(u)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", filepath.Base(e.path), err)
	}

	e.mu.Lock()
	e.proc = cmd.Process
	e.mu.Unlock()

	err := cmd.Wait()

	e.mu.Lock()
	if e.proc == cmd.Process {
		e.proc = nil
	}
	e.mu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		e.logger.Debug("tts command exited", "command", filepath.Base(e.path), "error", err)
		return err
	}
	return nil
}

func (e *CommandEngine) CancelSpeaking() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.proc != nil {
		_ = e.proc.Kill()
		e.proc = nil
	}
}

func (e *CommandEngine) args(u Utterance) []string {
	wpm := strconv.Itoa(int(baseWordsPerMinute * rateOrDefault(u.Rate)))

	if filepath.Base(e.path) == "say" {
		args := []string{"-r", wpm}
		if e.voice != "" {
			args = append(args, "-v", e.voice)
		}
		return append(args, "--", u.Text)
	}

	// espeak and espeak-ng: pitch is 0-99
	pitch := int(basePitch * rateOrDefault(u.Pitch))
	pitch = max(0, min(99, pitch))
	args := []string{"-s", wpm, "-p", strconv.Itoa(pitch)}
	switch {
	case u.Language != "":
		args = append(args, "-v", u.Language)
	case e.voice != "":
		args = append(args, "-v", e.voice)
	}
	// text starting with "-" must not be read as an option
	return append(args, "--", u.Text)
}

func rateOrDefault(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}
