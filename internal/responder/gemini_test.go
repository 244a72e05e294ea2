package responder

import (
	"context"
	"errors"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"google.golang.org/genai"
)

type fakeModels struct {
	reply string
	err   error

	model  string
	prompt string
	system string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.prompt = contents[0].Parts[0].Text
	f.system = config.SystemInstruction.Parts[0].Text
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: f.reply}}}},
		},
	}, nil
}

var _ = ginkgo.Describe("Gemini", func() {
	var models *fakeModels

	ginkgo.BeforeEach(func() {
		models = &fakeModels{reply: "  Chlorophyll peaks in the monsoon.  "}
	})

	ginkgo.It("should send the text and a role-aware system instruction", func() {
		g := newGemini(models, GeminiConfig{}, logger.Discard())

		reply, err := g.Generate(context.Background(), "When does chlorophyll peak?", auth.RoleUser)

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(reply).To(gomega.Equal("Chlorophyll peaks in the monsoon."))
		gomega.Expect(models.model).To(gomega.Equal(internal.DefaultGeminiModel))
		gomega.Expect(models.prompt).To(gomega.Equal("When does chlorophyll peak?"))
		gomega.Expect(models.system).To(gomega.ContainSubstring("Samudhran"))
		gomega.Expect(models.system).To(gomega.ContainSubstring("user role"))
		gomega.Expect(models.system).NotTo(gomega.ContainSubstring("edna"))
	})

	ginkgo.It("should wrap transport failures", func() {
		models.err = errors.New("quota exceeded")
		g := newGemini(models, GeminiConfig{Model: "gemini-test"}, nil)

		_, err := g.Generate(context.Background(), "hi", auth.RoleAdmin)

		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("quota exceeded")))
		gomega.Expect(models.model).To(gomega.Equal("gemini-test"))
	})

	ginkgo.It("should treat an empty reply as a failure", func() {
		models.reply = "   "
		g := newGemini(models, GeminiConfig{}, nil)

		_, err := g.Generate(context.Background(), "hi", auth.RoleAdmin)

		gomega.Expect(err).To(gomega.MatchError(ErrEmptyReply))
	})

	ginkgo.It("should require an API key", func() {
		_, err := NewGemini(context.Background(), GeminiConfig{}, nil)
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})
