package cmd

import (
	"bytes"
	"context"
	"strings"

	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/internal/navigation"
	"github.com/cmlre/marine-platform/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
)

var _ = Describe("Chat", func() {
	var app *application

	BeforeEach(func() {
		var err error
		app, err = newApplication(context.Background(), testConfig(":memory:"), logger.Discard(), appOptions{
			ephemeral: true,
			registry:  prometheus.NewRegistry(),
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(app.Close)
	})

	chat := func(lines ...string) string {
		var out bytes.Buffer
		gate := navigation.NewGate(auth.NewPermissionChecker(), logger.Discard())
		repl := newChatREPL(app.store, app.session, gate, strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)
		Expect(repl.run(context.Background())).To(Succeed())
		return out.String()
	}

	It("should ask for a login before sending", func() {
		out := chat("hello", "/quit")
		Expect(out).To(ContainSubstring("Not signed in."))
		Expect(out).To(ContainSubstring("Sign in first"))
		Expect(app.session.Transcript()).To(BeEmpty())
	})

	It("should greet, answer and list the role's surfaces", func() {
		out := chat(
			"/login researcher@cmlre.gov.in",
			"/nav",
			"Show me salinity trends",
			"/quit",
		)
		Expect(out).To(ContainSubstring("Signed in as researcher@cmlre.gov.in (researcher)"))
		Expect(out).To(ContainSubstring("assistant: नमस्ते researcher!"))
		Expect(out).To(ContainSubstring(string(auth.SurfaceOtolith)))
		Expect(out).NotTo(ContainSubstring(string(auth.SurfaceUserManagement)))
		Expect(strings.Count(out, "assistant: ")).To(Equal(2))
		Expect(app.session.Transcript()).To(HaveLen(3))
	})

	It("should clear the transcript and sign out", func() {
		out := chat(
			"/login admin@cmlre.gov.in",
			"/clear",
			"/logout",
			"/nav",
			"/bogus",
		)
		Expect(app.session.Transcript()).To(BeEmpty())
		Expect(app.store.User()).To(BeNil())
		Expect(out).To(ContainSubstring("Signed out."))
		Expect(out).To(ContainSubstring("Not signed in."))
		Expect(out).To(ContainSubstring("unknown command /bogus"))
	})

	It("should reject a login without an email", func() {
		Expect(chat("/login", "/quit")).To(ContainSubstring("usage: /login"))
	})
})
