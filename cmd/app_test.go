package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/internal/user"
	userPostgres "github.com/cmlre/marine-platform/internal/user/postgres"
	"github.com/cmlre/marine-platform/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
)

func testConfig(source string) *internal.Config {
	cfg := &internal.Config{
		Database: internal.DatabaseConfig{
			Driver:       "sqlite",
			Source:       source,
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Security: internal.SecurityConfig{
			JWTSecret:  strings.Repeat("k", 32),
			BCryptCost: 4,
		},
		Assistant: internal.AssistantConfig{
			MinLatency: time.Millisecond,
			MaxLatency: time.Millisecond,
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

var _ = Describe("Application", func() {
	var (
		ctx context.Context
		cfg *internal.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = testConfig(filepath.Join(GinkgoT().TempDir(), "marine.db"))
	})

	Context("with the database backends", func() {
		BeforeEach(func() {
			gormDB, db, err := openDatabase(cfg.Database, logger.Discard())
			Expect(err).NotTo(HaveOccurred())
			Expect(gormDB).NotTo(BeNil())
			DeferCleanup(db.Close)

			Expect(migrate(ctx, db.DB, cfg.Database.Driver, "", false)).To(Succeed())

			var out bytes.Buffer
			accounts := user.NewService(userPostgres.NewUserRepository(db), cfg.Security.BCryptCost, logger.Discard())
			Expect(seedDemoAccounts(ctx, accounts, &out)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Seeded admin account: admin@cmlre.gov.in"))

			out.Reset()
			Expect(seedDemoAccounts(ctx, accounts, &out)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("admin@cmlre.gov.in already exists"))

			cfg.Auth.Mode = "accounts"
			cfg.Session.Backend = "database"
		})

		It("should sign in seeded accounts and restore the session after a restart", func() {
			app, err := newApplication(ctx, cfg, logger.Discard(), appOptions{registry: prometheus.NewRegistry()})
			Expect(err).NotTo(HaveOccurred())
			Expect(app.healthChecks()).To(HaveKey("database"))

			_, err = app.store.Login(ctx, "researcher@cmlre.gov.in", "wrong-password")
			Expect(err).To(MatchError(internal.ErrInvalidCredentials))

			u, err := app.store.Login(ctx, "researcher@cmlre.gov.in", demoPassword)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Role).To(Equal(auth.RoleResearcher))
			Expect(u.Name).To(Equal("Demo Researcher"))
			Expect(app.session.Transcript()).To(HaveLen(1))
			app.Close()

			restarted, err := newApplication(ctx, cfg, logger.Discard(), appOptions{registry: prometheus.NewRegistry()})
			Expect(err).NotTo(HaveOccurred())
			defer restarted.Close()

			Expect(restarted.store.User()).NotTo(BeNil())
			Expect(restarted.store.User().Email).To(Equal("researcher@cmlre.gov.in"))
			Expect(restarted.session.Transcript()).To(HaveLen(1))
		})

		It("should roll back the latest migration", func() {
			_, db, err := openDatabase(cfg.Database, logger.Discard())
			Expect(err).NotTo(HaveOccurred())
			defer db.Close()

			Expect(migrate(ctx, db.DB, cfg.Database.Driver, "", true)).To(Succeed())

			var tables int
			Expect(db.GetContext(ctx, &tables, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'session_slots'")).To(Succeed())
			Expect(tables).To(Equal(0))
		})
	})

	It("should refuse the accounts mode without a database", func() {
		cfg.Auth.Mode = "accounts"
		_, err := newApplication(ctx, cfg, logger.Discard(), appOptions{ephemeral: true, registry: prometheus.NewRegistry()})
		Expect(err).To(MatchError(ContainSubstring("needs a database connection")))
	})

	It("should raise the write timeout above the response timeout", func() {
		cfg.Server.WriteTimeout = time.Second
		Expect(writeTimeout(cfg)).To(Equal(cfg.Assistant.ResponseTimeout + 5*time.Second))

		cfg.Server.WriteTimeout = 0
		Expect(writeTimeout(cfg)).To(BeZero())
	})
})
