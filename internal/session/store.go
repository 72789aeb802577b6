package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dang-doctor/doctor-fe/internal/apperr"
	"github.com/dang-doctor/doctor-fe/internal/kv"
	"github.com/dang-doctor/doctor-fe/internal/logutil"
)

// Store is the single owner of the persisted session. Mutations apply to
// memory immediately and are written to the kv store in the background; a
// newer snapshot is never overwritten by an older one.
type Store struct {
	kv        kv.Store
	logger    *slog.Logger
	idp       IdentityProvider
	issuer    TokenIssuer
	exchanger CodeExchanger
	now       func() time.Time
	skew      time.Duration

	mu      sync.RWMutex
	current *Session
	ready   bool
	version uint64

	writeMu        sync.Mutex
	writtenSession uint64
	writtenToken   uint64
	pending        sync.WaitGroup

	refresh singleflight.Group
}

// New creates a Store over store. Call Load before use.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		logger: logutil.Discard(),
		now:    time.Now,
		skew:   defaultFreshnessSkew,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted session once. A missing or unreadable blob leaves
// the store unauthenticated; either way the store is ready afterwards.
func (s *Store) Load(ctx context.Context) {
	raw, found, err := s.kv.Get(ctx, kv.SessionKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.ready = true }()

	if err != nil {
		s.logger.Warn("session load failed", "err", fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err))
		return
	}
	if !found || strings.TrimSpace(raw) == "" {
		s.current = nil
		return
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.logger.Warn("session blob is not valid JSON, starting unauthenticated", "err", err)
		s.current = nil
		return
	}
	s.current = &sess
}

// Ready reports whether Load has completed.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Current returns a copy of the session. ok is false when nobody is logged in.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return s.current.clone(), true
}

// Login authenticates with a token, or exchanges a code for one. It waits for
// the session to be written but never fails because of storage.
func (s *Store) Login(ctx context.Context, c Credentials) error {
	defer logutil.NewTimingLogger(s.logger, time.Now(), "session login")()

	token := strings.TrimSpace(c.Token)
	code := strings.TrimSpace(c.Code)
	switch {
	case token != "":
	case code != "":
		if s.exchanger == nil {
			return fmt.Errorf("%w: no code exchanger configured", ErrAuthUnavailable)
		}
		payload, err := s.exchanger.ExchangeCode(ctx, code)
		if err != nil {
			return logutil.WarnAndWrapErr(s.logger, "exchange login code", fmt.Errorf("%w: %w", ErrAuthUnavailable, err))
		}
		token = payload.Token
		c.UserID = firstNonEmpty(c.UserID, payload.UserID)
		c.FirebaseToken = firstNonEmpty(c.FirebaseToken, payload.FirebaseToken)
		c.Nickname = firstNonEmpty(c.Nickname, payload.Nickname)
	default:
		return apperr.NewValidationError("token", "a token or an authorization code is required")
	}

	next := Session{
		UserID:        strings.TrimSpace(c.UserID),
		Nickname:      strings.TrimSpace(c.Nickname),
		PrimaryToken:  token,
		FirebaseToken: strings.TrimSpace(c.FirebaseToken),
	}
	if next.FirebaseToken != "" && s.idp != nil {
		cred, err := s.idp.SignInWithCustomToken(ctx, next.FirebaseToken)
		if err != nil {
			s.logger.Warn("identity sign-in after login failed", "err", err)
		} else {
			applyCredential(&next, cred)
		}
	}

	s.mu.Lock()
	next.UpdatedAt = s.now()
	s.current = &next
	s.ready = true
	done := s.scheduleLocked(&next, &token)
	s.mu.Unlock()

	s.logger.Info("logged in", "user_id", next.UserID, "token", logutil.Redact(token))
	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}

// Logout clears the session from memory and storage. Safe to call when
// already logged out.
func (s *Store) Logout(ctx context.Context) {
	empty := ""
	s.mu.Lock()
	s.current = nil
	done := s.scheduleLocked(nil, &empty)
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// UpdateToken replaces the non-empty fields of u.
func (s *Store) UpdateToken(_ context.Context, u TokenUpdate) {
	s.mutate(func(sess *Session) {
		if v := strings.TrimSpace(u.PrimaryToken); v != "" {
			sess.PrimaryToken = v
		}
		if v := strings.TrimSpace(u.FirebaseToken); v != "" {
			sess.FirebaseToken = v
		}
	})
}

// UpdateUser replaces the non-empty fields of p.
func (s *Store) UpdateUser(_ context.Context, p UserPatch) {
	s.mutate(func(sess *Session) {
		if v := strings.TrimSpace(p.UserID); v != "" {
			sess.UserID = v
		}
		if v := strings.TrimSpace(p.Nickname); v != "" {
			sess.Nickname = v
		}
	})
}

// UpdatePreferences shallow-merges patch into the stored preferences.
func (s *Store) UpdatePreferences(_ context.Context, patch map[string]any) {
	s.mutate(func(sess *Session) {
		if sess.Preferences == nil {
			sess.Preferences = make(map[string]any, len(patch))
		}
		maps.Copy(sess.Preferences, patch)
	})
}

// Flush waits for background writes issued so far.
func (s *Store) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mutate applies fn to the session, creating one if needed, and persists the
// result.
func (s *Store) mutate(fn func(*Session)) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := Session{}
	if s.current != nil {
		next = s.current.clone()
	}
	fn(&next)
	next.UpdatedAt = s.now()
	s.current = &next
	return s.scheduleLocked(&next, nil)
}

// scheduleLocked queues a write of snapshot (nil deletes the session key) and,
// when token is non-nil, of the bare token key (empty deletes it). s.mu must
// be held.
func (s *Store) scheduleLocked(snapshot *Session, token *string) <-chan struct{} {
	s.version++
	w := write{version: s.version, token: token}
	if snapshot != nil {
		c := snapshot.clone()
		w.session = &c
	}
	done := make(chan struct{})
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer close(done)
		s.persist(w)
	}()
	return done
}

type write struct {
	version uint64
	session *Session
	token   *string
}

func (s *Store) persist(w write) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Each key is versioned on its own so a stale write cannot clobber a newer
	// one, while a newer write to one key does not drop an older write to the
	// other.
	if w.version <= s.writtenSession {
		s.logger.Debug("skipping stale session write", "version", w.version, "written", s.writtenSession)
	} else {
		s.writtenSession = w.version
		if w.session == nil {
			s.warnPersist("delete session", s.kv.Delete(ctx, kv.SessionKey))
		} else if blob, err := json.Marshal(w.session); err != nil {
			s.warnPersist("encode session", err)
		} else {
			s.warnPersist("write session", s.kv.Set(ctx, kv.SessionKey, string(blob)))
		}
	}

	if w.token == nil || w.version <= s.writtenToken {
		return
	}
	s.writtenToken = w.version
	if *w.token == "" {
		s.warnPersist("delete access token", s.kv.Delete(ctx, kv.AccessTokenKey))
	} else {
		s.warnPersist("write access token", s.kv.Set(ctx, kv.AccessTokenKey, *w.token))
	}
}

func (s *Store) warnPersist(msg string, err error) {
	if err == nil {
		return
	}
	_ = logutil.WarnAndWrapErr(s.logger, msg, fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
