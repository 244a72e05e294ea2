package responder

import (
	"context"
	"math/rand"
	"time"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Canned", func() {
	ginkgo.It("should answer with one of the canned replies", func() {
		g := NewCanned(CannedConfig{}, rand.New(rand.NewSource(1)), logger.Discard())

		reply, err := g.Generate(context.Background(), "sea surface temperature", auth.RoleResearcher)

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(cannedReplies("sea surface temperature", auth.RoleResearcher)).To(gomega.ContainElement(reply))
	})

	ginkgo.It("should tailor replies to the role", func() {
		replies := cannedReplies("x", auth.RoleAdmin)
		gomega.Expect(replies).To(gomega.HaveLen(5))
		gomega.Expect(replies[0]).To(gomega.ContainSubstring(`"x"`))
		gomega.Expect(replies[3]).To(gomega.HavePrefix("Based on your role as admin,"))
	})

	ginkgo.It("should be deterministic for a seeded source", func() {
		a := NewCanned(CannedConfig{}, rand.New(rand.NewSource(42)), nil)
		b := NewCanned(CannedConfig{}, rand.New(rand.NewSource(42)), nil)

		for i := 0; i < 5; i++ {
			ra, err := a.Generate(context.Background(), "q", auth.RoleUser)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			rb, err := b.Generate(context.Background(), "q", auth.RoleUser)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(ra).To(gomega.Equal(rb))
		}
	})

	ginkgo.It("should wait within the configured latency", func() {
		g := NewCanned(CannedConfig{MinLatency: 20 * time.Millisecond, MaxLatency: 40 * time.Millisecond}, nil, nil)

		start := time.Now()
		_, err := g.Generate(context.Background(), "q", auth.RoleUser)

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(time.Since(start)).To(gomega.BeNumerically(">=", 20*time.Millisecond))
	})

	ginkgo.It("should stop waiting when the context is cancelled", func() {
		g := NewCanned(CannedConfig{MinLatency: time.Hour, MaxLatency: time.Hour}, nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := g.Generate(ctx, "q", auth.RoleUser)

		gomega.Expect(err).To(gomega.MatchError(context.Canceled))
	})

	ginkgo.It("should be the default generator", func() {
		g, err := NewGenerator(context.Background(), internal.AssistantConfig{}, nil)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(g.Name()).To(gomega.Equal("canned"))
	})

	ginkgo.It("should reject unknown generators", func() {
		_, err := NewGenerator(context.Background(), internal.AssistantConfig{Generator: "oracle"}, nil)
		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("unknown generator")))
	})
})
