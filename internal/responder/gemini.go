package responder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/auth"
	"google.golang.org/genai"
)

var ErrEmptyReply = errors.New("model returned no text")

type GeminiConfig struct {
	APIKey        string
	Model         string
	AssistantName string
}

// contentGenerator is the part of *genai.Models the generator uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model for the reply, steering it with the user's role.
type Gemini struct {
	models contentGenerator
	model  string
	name   string
	logger *slog.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return newGemini(client.Models, cfg, logger), nil
}

func newGemini(models contentGenerator, cfg GeminiConfig, logger *slog.Logger) *Gemini {
	if cfg.Model == "" {
		cfg.Model = internal.DefaultGeminiModel
	}
	if cfg.AssistantName == "" {
		cfg.AssistantName = internal.DefaultAssistantName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{models: models, model: cfg.Model, name: cfg.AssistantName, logger: logger}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, text string, role auth.Role) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.systemPrompt(role), genai.RoleUser),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(text), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", ErrEmptyReply
	}
	g.logger.DebugContext(ctx, "gemini reply", "model", g.model, "chars", len(reply))
	return reply, nil
}

func (g *Gemini) systemPrompt(role auth.Role) string {
	surfaces := make([]string, 0)
	for _, s := range auth.VisibleSurfaces(role) {
		surfaces = append(surfaces, string(s))
	}
	return fmt.Sprintf(
		"You are %s, the marine data assistant of the CMLRE research platform. "+
			"The user has the %s role and can open these sections: %s. "+
			"Help with oceanographic data analysis, visualization, dataset uploads, species identification and reports. "+
			"Only point the user to sections they can open. Answer briefly, in the user's language; Indian languages are welcome.",
		g.name, role, strings.Join(surfaces, ", "))
}
