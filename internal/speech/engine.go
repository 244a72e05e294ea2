// Package speech arbitrates the listening and speaking channels of the assistant.
//
// An Engine is the host's recognition and synthesis capability. The Coordinator
// wraps one Engine and keeps the two channels mutually exclusive.
package speech

import (
	"context"
	"errors"
)

var (
	ErrRecognitionUnsupported = errors.New("speech recognition not supported")
	ErrSynthesisUnsupported   = errors.New("speech synthesis not supported")
	ErrClosed                 = errors.New("speech coordinator closed")
)

// Capabilities are queried once when the coordinator is built.
type Capabilities struct {
	Recognition bool `json:"recognitionSupported"`
	Synthesis   bool `json:"synthesisSupported"`
}

type Utterance struct {
	Text     string  `json:"text"`
	Rate     float64 `json:"rate"`
	Pitch    float64 `json:"pitch"`
	Language string  `json:"language,omitempty"`
}

// Engine is the host speech collaborator.
//
// Listen and Speak block until recognition or playback ends, or ctx is cancelled.
// StopListening and CancelSpeaking must not block.
type Engine interface {
	Capabilities() Capabilities
	Listen(ctx context.Context, onResult func(text string)) error
	StopListening()
	Speak(ctx context.Context, u Utterance) error
	CancelSpeaking()
}

// NullEngine supports nothing. It backs hosts without audio.
type NullEngine struct{}

func (NullEngine) Capabilities() Capabilities { return Capabilities{} }

func (NullEngine) Listen(context.Context, func(string)) error { return ErrRecognitionUnsupported }

func (NullEngine) StopListening() {}

func (NullEngine) Speak(context.Context, Utterance) error { return ErrSynthesisUnsupported }

func (NullEngine) CancelSpeaking() {}
