package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/core/events"
	"github.com/cmlre/marine-platform/internal/metrics"
	"github.com/google/uuid"
)

// State is a point-in-time view of the session.
type State struct {
	User      *User `json:"user"`
	IsLoading bool  `json:"isLoading"`
}

type StoreConfig struct {
	SlotKey string
}

// Store owns the authentication session for the process.
//
// It starts in the loading state until Restore has read the persisted slot once.
// Only one login may be in flight; a logout during that login supersedes it and
// the late result is discarded.
type Store struct {
	slot    SlotRepository
	key     string
	authn   Authenticator
	bus     *events.EventBus
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu        sync.RWMutex
	user      *User
	sessionID string
	loading   bool
	restored  bool
	epoch     uint64
}

func NewStore(cfg StoreConfig, slot SlotRepository, authn Authenticator, bus *events.EventBus, m *metrics.Metrics, logger *slog.Logger) *Store {
	if cfg.SlotKey == "" {
		cfg.SlotKey = internal.DefaultSlotKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		slot:    slot,
		key:     cfg.SlotKey,
		authn:   authn,
		bus:     bus,
		metrics: m,
		logger:  logger.With("component", "session_store"),
		loading: true,
	}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{User: s.user.Clone(), IsLoading: s.loading}
}

// User returns a copy of the signed-in user, or nil.
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// SessionID identifies the current sign-in. It changes on every login or restore and is empty when signed out.
func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Restore reads the persisted slot once. A missing or malformed record leaves the
// session signed out and is never rewritten. Later calls are no-ops.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	if s.restored {
		s.mu.Unlock()
		return
	}
	s.restored = true
	epoch := s.epoch
	s.mu.Unlock()

	raw, err := s.slot.Get(ctx, s.key)

	var (
		restored *User
		result   string
	)
	switch {
	case errors.Is(err, ErrSlotNotFound):
		result = "absent"
	case err != nil:
		result = "error"
		s.logger.WarnContext(ctx, "session restore failed", "key", s.key, "error", err)
	default:
		u, derr := DecodeRecord(raw)
		if derr != nil {
			result = "malformed"
			s.logger.WarnContext(ctx, "session restore malformed", "key", s.key, "error", derr)
		} else {
			result = "restored"
			restored = u
		}
	}

	s.mu.Lock()
	s.loading = false
	if restored != nil && s.epoch != epoch {
		// a logout raced the read
		restored = nil
		result = "absent"
	}
	var sessionID string
	if restored != nil {
		s.user = restored
		s.sessionID = uuid.NewString()
		sessionID = s.sessionID
	}
	s.mu.Unlock()

	s.metrics.ObserveRestore(result)
	if restored != nil {
		s.logger.InfoContext(ctx, "session restored", "user_id", restored.ID, "role", restored.Role, "session_id", sessionID)
		s.publish(ctx, events.NewSessionEstablishedEvent(restored.ID, restored.Email, restored.Name, string(restored.Role), restored.PreferredLanguage, true))
	}
}

// Login authenticates and persists the resulting user. A session that is already
// signed in ends first. Every failure leaves the session signed out and wraps
// internal.ErrLoginFailed.
func (s *Store) Login(ctx context.Context, email, credential string) (*User, error) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		s.metrics.ObserveLogin("busy")
		return nil, internal.ErrSessionBusy.WithCause(internal.ErrLoginFailed)
	}
	s.loading = true
	prev := s.user
	if prev != nil {
		s.user = nil
		s.sessionID = ""
		s.epoch++
	}
	epoch := s.epoch
	s.mu.Unlock()

	if prev != nil {
		s.endReplaced(ctx, prev)
	}

	u, err := s.authn.Authenticate(ctx, email, credential)
	if err != nil {
		s.finishFailedLogin(epoch)
		s.metrics.ObserveLogin("failed")
		s.logger.WarnContext(ctx, "login failed", "email", email, "error", err)
		return nil, loginError(err)
	}

	raw, err := EncodeRecord(u)
	if err != nil {
		s.finishFailedLogin(epoch)
		s.metrics.ObserveLogin("failed")
		return nil, internal.ErrLoginFailed.WithCause(err)
	}

	if s.superseded(epoch) {
		return nil, s.supersede(ctx, email, false)
	}

	if err := s.slot.Put(ctx, s.key, raw); err != nil {
		s.finishFailedLogin(epoch)
		s.metrics.ObserveLogin("failed")
		s.logger.ErrorContext(ctx, "persist session failed", "key", s.key, "error", err)
		return nil, internal.ErrLoginFailed.WithCause(err)
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil, s.supersede(ctx, email, true)
	}
	s.user = u.Clone()
	s.sessionID = uuid.NewString()
	s.loading = false
	sessionID := s.sessionID
	s.mu.Unlock()

	s.metrics.ObserveLogin("success")
	s.logger.InfoContext(ctx, "login succeeded", "user_id", u.ID, "role", u.Role, "session_id", sessionID)
	s.publish(ctx, events.NewSessionEstablishedEvent(u.ID, u.Email, u.Name, string(u.Role), u.PreferredLanguage, false))
	return u, nil
}

func (s *Store) superseded(epoch uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch != epoch
}

// supersede finishes a login that lost the race against Logout. When the
// record already reached the slot it is removed again.
func (s *Store) supersede(ctx context.Context, email string, persisted bool) error {
	if persisted {
		if err := s.slot.Delete(context.WithoutCancel(ctx), s.key); err != nil {
			s.logger.ErrorContext(ctx, "remove superseded session record failed", "key", s.key, "error", err)
		}
	}

	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()

	s.metrics.ObserveLogin("superseded")
	s.logger.InfoContext(ctx, "login superseded by logout", "email", email)
	return internal.ErrLoginSuperseded.WithCause(internal.ErrLoginFailed)
}

// endReplaced closes the session a new login is about to replace, so a failed
// login never leaves the previous user restorable.
func (s *Store) endReplaced(ctx context.Context, prev *User) {
	if err := s.slot.Delete(ctx, s.key); err != nil {
		s.logger.ErrorContext(ctx, "remove replaced session record failed", "key", s.key, "error", err)
	}
	s.logger.InfoContext(ctx, "session replaced by new login", "user_id", prev.ID)
	s.publish(ctx, events.NewSessionEndedEvent(prev.ID, "replaced"))
}

func (s *Store) finishFailedLogin(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if s.epoch == epoch {
		s.user = nil
		s.sessionID = ""
	}
}

func loginError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return internal.ErrInvalidCredentials.WithCause(internal.ErrLoginFailed)
	case errors.Is(err, ErrUserInactive):
		return internal.ErrUserInactive.WithCause(internal.ErrLoginFailed)
	default:
		return internal.ErrLoginFailed.WithCause(err)
	}
}

// Logout clears the session immediately and removes the persisted record.
// It is idempotent and supersedes any login still in flight.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	prev := s.user
	s.user = nil
	s.sessionID = ""
	s.epoch++
	s.mu.Unlock()

	s.metrics.ObserveLogout()

	err := s.slot.Delete(ctx, s.key)
	if err != nil {
		s.logger.ErrorContext(ctx, "remove session record failed", "key", s.key, "error", err)
	}

	if prev != nil {
		s.logger.InfoContext(ctx, "logged out", "user_id", prev.ID)
		s.publish(ctx, events.NewSessionEndedEvent(prev.ID, "logout"))
	}
	return err
}

func (s *Store) publish(ctx context.Context, ev events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishSync(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "session event delivery failed", "event_type", ev.EventType(), "error", err)
	}
}
