// Package responder produces assistant replies. Generators are external
// collaborators of the assistant session and must honour ctx cancellation.
package responder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/auth"
)

type Generator interface {
	Generate(ctx context.Context, text string, role auth.Role) (string, error)
	// Name labels metrics and logs.
	Name() string
}

// NewGenerator builds the generator selected by cfg.Generator.
func NewGenerator(ctx context.Context, cfg internal.AssistantConfig, logger *slog.Logger) (Generator, error) {
	switch cfg.Generator {
	case "", "canned":
		return NewCanned(CannedConfig{MinLatency: cfg.MinLatency, MaxLatency: cfg.MaxLatency}, nil, logger), nil
	case "gemini":
		return NewGemini(ctx, GeminiConfig{
			APIKey:        cfg.Gemini.APIKey,
			Model:         cfg.Gemini.Model,
			AssistantName: cfg.Name,
		}, logger)
	default:
		return nil, fmt.Errorf("responder: unknown generator %q", cfg.Generator)
	}
}
