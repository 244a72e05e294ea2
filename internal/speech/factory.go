package speech

import (
	"fmt"
	"log/slog"

	"github.com/cmlre/marine-platform/internal"
)

// NewEngine builds the engine named by cfg.Engine.
func NewEngine(cfg internal.SpeechConfig, logger *slog.Logger) (Engine, error) {
	switch cfg.Engine {
	case "", "none":
		return NullEngine{}, nil
	case "command":
		return NewCommandEngine(cfg.Command, cfg.Voice, logger)
	default:
		return nil, fmt.Errorf("speech: unknown engine %q", cfg.Engine)
	}
}
