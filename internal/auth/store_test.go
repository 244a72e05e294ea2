package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/core/events"
	"github.com/cmlre/marine-platform/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Session Store", func() {
	var (
		ctx  context.Context
		slot *recordingSlot
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		slot = newRecordingSlot()
	})

	ginkgo.Describe("Restore", func() {
		ginkgo.It("should start loading and finish signed out when the slot is empty", func() {
			store := newTestStore(slot, NewMockAuthenticator(), nil)
			gomega.Expect(store.IsLoading()).To(gomega.BeTrue())

			store.Restore(ctx)

			gomega.Expect(store.State()).To(gomega.Equal(State{User: nil, IsLoading: false}))
			gomega.Expect(slot.writes()).To(gomega.BeZero())
		})

		ginkgo.It("should restore a well-formed record", func() {
			raw, err := EncodeRecord(&User{ID: "7", Email: "admin@cmlre.gov.in", Name: "admin", Role: RoleAdmin, Organization: "CMLRE", PreferredLanguage: "hi"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(slot.MemorySlot.Put(ctx, internal.DefaultSlotKey, raw)).To(gomega.Succeed())

			store := newTestStore(slot, NewMockAuthenticator(), nil)
			store.Restore(ctx)

			u := store.User()
			gomega.Expect(u).ToNot(gomega.BeNil())
			gomega.Expect(u.Role).To(gomega.Equal(RoleAdmin))
			gomega.Expect(u.PreferredLanguage).To(gomega.Equal("hi"))
			gomega.Expect(store.SessionID()).ToNot(gomega.BeEmpty())
			gomega.Expect(store.IsLoading()).To(gomega.BeFalse())
		})

		ginkgo.DescribeTable("should fail open on malformed records without rewriting them",
			func(raw string) {
				gomega.Expect(slot.MemorySlot.Put(ctx, internal.DefaultSlotKey, raw)).To(gomega.Succeed())
				store := newTestStore(slot, NewMockAuthenticator(), nil)

				store.Restore(ctx)

				gomega.Expect(store.User()).To(gomega.BeNil())
				gomega.Expect(store.IsLoading()).To(gomega.BeFalse())
				gomega.Expect(slot.writes()).To(gomega.BeZero())
				stored, err := slot.MemorySlot.Get(ctx, internal.DefaultSlotKey)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(stored).To(gomega.Equal(raw))

				_, err = DecodeRecord(raw)
				gomega.Expect(errors.Is(err, internal.ErrRestoreMalformed)).To(gomega.BeTrue())
				gomega.Expect(errors.Is(err, ErrMalformedRecord)).To(gomega.BeTrue())
			},
			ginkgo.Entry("not json", "{not json"),
			ginkgo.Entry("json array", "[1,2,3]"),
			ginkgo.Entry("missing id", `{"email":"a@b.c","name":"a","role":"user"}`),
			ginkgo.Entry("unknown role", `{"id":"1","email":"a@b.c","name":"a","role":"captain"}`),
		)

		ginkgo.It("should fail open when the slot cannot be read", func() {
			slot.getErr = errors.New("disk on fire")
			store := newTestStore(slot, NewMockAuthenticator(), nil)

			store.Restore(ctx)

			gomega.Expect(store.State()).To(gomega.Equal(State{}))
		})

		ginkgo.It("should only read the slot once", func() {
			store := newTestStore(slot, NewMockAuthenticator(), nil)
			store.Restore(ctx)

			raw, _ := EncodeRecord(&User{ID: "1", Email: "x@y.com", Name: "x", Role: RoleUser})
			gomega.Expect(slot.MemorySlot.Put(ctx, internal.DefaultSlotKey, raw)).To(gomega.Succeed())
			store.Restore(ctx)

			gomega.Expect(store.User()).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("Login", func() {
		var store *Store

		ginkgo.BeforeEach(func() {
			store = newTestStore(slot, NewMockAuthenticator(), nil)
			store.Restore(ctx)
		})

		ginkgo.DescribeTable("should derive the role from the email",
			func(email string, role Role, name string) {
				u, err := store.Login(ctx, email, "whatever")

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(u.Role).To(gomega.Equal(role))
				gomega.Expect(u.Name).To(gomega.Equal(name))
				gomega.Expect(u.Organization).To(gomega.Equal("CMLRE"))
				gomega.Expect(u.PreferredLanguage).To(gomega.Equal("en"))
			},
			ginkgo.Entry("admin", "admin@cmlre.gov.in", RoleAdmin, "admin"),
			ginkgo.Entry("researcher", "researcher@cmlre.gov.in", RoleResearcher, "researcher"),
			ginkgo.Entry("plain user", "x@y.com", RoleUser, "x"),
			ginkgo.Entry("admin wins over researcher", "admin.researcher@cmlre.gov.in", RoleAdmin, "admin.researcher"),
		)

		ginkgo.It("should persist the record so a fresh store restores it", func() {
			_, err := store.Login(ctx, "researcher@cmlre.gov.in", "pw")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			fresh := newTestStore(slot, NewMockAuthenticator(), nil)
			fresh.Restore(ctx)

			gomega.Expect(fresh.User()).To(gomega.Equal(store.User()))
		})

		ginkgo.It("should clear the session and wrap LoginFailed when authentication fails", func() {
			_, err := store.Login(ctx, "user@cmlre.gov.in", "pw")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			failing := newTestStore(slot, failingAuthenticator{err: ErrInvalidCredentials}, nil)
			failing.Restore(ctx)
			gomega.Expect(failing.User()).ToNot(gomega.BeNil())

			_, err = failing.Login(ctx, "user@cmlre.gov.in", "bad")

			gomega.Expect(errors.Is(err, internal.ErrLoginFailed)).To(gomega.BeTrue())
			gomega.Expect(errors.Is(err, internal.ErrInvalidCredentials)).To(gomega.BeTrue())
			gomega.Expect(failing.State()).To(gomega.Equal(State{}))
		})

		ginkgo.It("should report LoginFailed when the record cannot be persisted", func() {
			slot.putErr = errors.New("read-only")

			_, err := store.Login(ctx, "user@cmlre.gov.in", "pw")

			gomega.Expect(errors.Is(err, internal.ErrLoginFailed)).To(gomega.BeTrue())
			gomega.Expect(store.State()).To(gomega.Equal(State{}))
		})

		ginkgo.It("should reject a login before the initial restore completes", func() {
			pending := newTestStore(slot, NewMockAuthenticator(), nil)

			_, err := pending.Login(ctx, "user@cmlre.gov.in", "pw")

			gomega.Expect(errors.Is(err, internal.ErrSessionBusy)).To(gomega.BeTrue())
			gomega.Expect(errors.Is(err, internal.ErrLoginFailed)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("concurrent operations", func() {
		var (
			store *Store
			gate  *gateAuthenticator
		)

		ginkgo.BeforeEach(func() {
			gate = newGateAuthenticator()
			store = newTestStore(slot, gate, nil)
			store.Restore(ctx)
		})

		ginkgo.It("should reject a second login while one is in flight", func() {
			done := make(chan error, 1)
			go func() {
				_, err := store.Login(ctx, "admin@cmlre.gov.in", "pw")
				done <- err
			}()
			gomega.Eventually(gate.started).Should(gomega.BeClosed())
			gomega.Expect(store.IsLoading()).To(gomega.BeTrue())

			_, err := store.Login(ctx, "user@cmlre.gov.in", "pw")
			gomega.Expect(errors.Is(err, internal.ErrSessionBusy)).To(gomega.BeTrue())

			close(gate.release)
			gomega.Eventually(done).Should(gomega.Receive(gomega.BeNil()))
			gomega.Expect(store.User().Role).To(gomega.Equal(RoleAdmin))
			gomega.Expect(store.IsLoading()).To(gomega.BeFalse())
		})

		ginkgo.It("should discard a login that completes after logout", func() {
			done := make(chan error, 1)
			go func() {
				_, err := store.Login(ctx, "admin@cmlre.gov.in", "pw")
				done <- err
			}()
			gomega.Eventually(gate.started).Should(gomega.BeClosed())

			gomega.Expect(store.Logout(ctx)).To(gomega.Succeed())
			close(gate.release)

			var err error
			gomega.Eventually(done).Should(gomega.Receive(&err))
			gomega.Expect(errors.Is(err, internal.ErrLoginSuperseded)).To(gomega.BeTrue())
			gomega.Expect(errors.Is(err, internal.ErrLoginFailed)).To(gomega.BeTrue())
			gomega.Expect(store.State()).To(gomega.Equal(State{}))
			_, getErr := slot.MemorySlot.Get(ctx, internal.DefaultSlotKey)
			gomega.Expect(getErr).To(gomega.MatchError(ErrSlotNotFound))
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("should clear the user and the slot, and a fresh restore stays signed out", func() {
			store := newTestStore(slot, NewMockAuthenticator(), nil)
			store.Restore(ctx)
			_, err := store.Login(ctx, "admin@cmlre.gov.in", "pw")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(store.Logout(ctx)).To(gomega.Succeed())

			gomega.Expect(store.User()).To(gomega.BeNil())
			gomega.Expect(store.SessionID()).To(gomega.BeEmpty())
			fresh := newTestStore(slot, NewMockAuthenticator(), nil)
			fresh.Restore(ctx)
			gomega.Expect(fresh.User()).To(gomega.BeNil())
		})

		ginkgo.It("should be idempotent", func() {
			store := newTestStore(slot, NewMockAuthenticator(), nil)
			store.Restore(ctx)

			gomega.Expect(store.Logout(ctx)).To(gomega.Succeed())
			gomega.Expect(store.Logout(ctx)).To(gomega.Succeed())
			gomega.Expect(store.State()).To(gomega.Equal(State{}))
		})
	})

	ginkgo.Describe("lifecycle events", func() {
		var (
			bus      *events.EventBus
			mu       sync.Mutex
			received []string
		)

		ginkgo.BeforeEach(func() {
			received = nil
			bus = events.NewEventBus(logger.Discard())
			record := func(_ context.Context, ev events.Event) error {
				mu.Lock()
				defer mu.Unlock()
				received = append(received, ev.EventType())
				return nil
			}
			bus.Subscribe(events.EventTypeSessionEstablished, record)
			bus.Subscribe(events.EventTypeSessionEnded, record)
		})

		ginkgo.It("should announce login, restore and logout", func() {
			store := newTestStore(slot, NewMockAuthenticator(), bus)
			store.Restore(ctx)
			_, err := store.Login(ctx, "researcher@cmlre.gov.in", "pw")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			restored := newTestStore(slot, NewMockAuthenticator(), bus)
			restored.Restore(ctx)
			gomega.Expect(store.Logout(ctx)).To(gomega.Succeed())
			gomega.Expect(store.Logout(ctx)).To(gomega.Succeed())

			mu.Lock()
			defer mu.Unlock()
			gomega.Expect(received).To(gomega.Equal([]string{
				events.EventTypeSessionEstablished,
				events.EventTypeSessionEstablished,
				events.EventTypeSessionEnded,
			}))
		})

		ginkgo.It("should end the signed-in session before another user logs in", func() {
			store := newTestStore(slot, NewMockAuthenticator(), bus)
			store.Restore(ctx)
			_, err := store.Login(ctx, "admin@cmlre.gov.in", "pw")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			first := store.SessionID()

			u, err := store.Login(ctx, "user@cmlre.gov.in", "pw")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(u.Role).To(gomega.Equal(RoleUser))
			gomega.Expect(store.SessionID()).ToNot(gomega.Equal(first))
			fresh := newTestStore(slot, NewMockAuthenticator(), nil)
			fresh.Restore(ctx)
			gomega.Expect(fresh.User().Email).To(gomega.Equal("user@cmlre.gov.in"))

			mu.Lock()
			defer mu.Unlock()
			gomega.Expect(received).To(gomega.Equal([]string{
				events.EventTypeSessionEstablished,
				events.EventTypeSessionEnded,
				events.EventTypeSessionEstablished,
			}))
		})

		ginkgo.It("should remove the previous record when a replacing login fails", func() {
			store := newTestStore(slot, NewMockAuthenticator(), bus)
			store.Restore(ctx)
			_, err := store.Login(ctx, "user@cmlre.gov.in", "pw")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = store.Login(ctx, "@bad", "pw")

			gomega.Expect(errors.Is(err, internal.ErrLoginFailed)).To(gomega.BeTrue())
			gomega.Expect(store.State()).To(gomega.Equal(State{}))
			_, getErr := slot.MemorySlot.Get(ctx, internal.DefaultSlotKey)
			gomega.Expect(getErr).To(gomega.MatchError(ErrSlotNotFound))
			fresh := newTestStore(slot, NewMockAuthenticator(), nil)
			fresh.Restore(ctx)
			gomega.Expect(fresh.User()).To(gomega.BeNil())

			mu.Lock()
			defer mu.Unlock()
			gomega.Expect(received).To(gomega.Equal([]string{
				events.EventTypeSessionEstablished,
				events.EventTypeSessionEnded,
			}))
		})
	})

	ginkgo.Describe("MockAuthenticator", func() {
		ginkgo.It("should reject an email without a local part", func() {
			_, err := NewMockAuthenticator().Authenticate(ctx, "@cmlre.gov.in", "")
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidCredentials))
		})

		ginkgo.It("should honour cancellation while simulating latency", func() {
			m := &MockAuthenticator{Delay: time.Minute}
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err := m.Authenticate(cctx, "user@cmlre.gov.in", "")
			gomega.Expect(err).To(gomega.MatchError(context.Canceled))
		})
	})
})
