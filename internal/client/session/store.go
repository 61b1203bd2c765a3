// Package session holds the process-wide session store: the single writer of
// the published user identity and the loading flag. Everything else in the
// client reads that state through Subscribe or State.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/dogstack/internal/client/backend"
	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/common"
	"github.com/dmitrijs2005/dogstack/internal/logging"
	"github.com/google/uuid"
)

// Backend is the subset of the backend client the store drives.
type Backend interface {
	OnAuthStateChange(fn backend.AuthListener) (unsubscribe func())
	GetSession(ctx context.Context) (*models.Session, error)
	GetUser(ctx context.Context) (*models.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string) (*backend.SignUpResult, error)
	ExchangeCodeForSession(ctx context.Context, rawURL string) (*models.Session, error)
	SignOut(ctx context.Context) error
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	InsertProfile(ctx context.Context, userID string) error
}

// State is one published snapshot. User is nil when nobody is signed in.
type State struct {
	User    *models.User
	Loading bool
}

// SignUpResult reports the outcome of SignUpWithEmail. SignedIn is false when
// the account still has to be confirmed through the e-mailed link.
type SignUpResult struct {
	User     models.User
	SignedIn bool
}

type subscriber struct {
	id uuid.UUID
	fn func(State)
}

// Store publishes the current user. All writes go through publish.
type Store struct {
	backend Backend
	logger  logging.Logger

	// pubMu serialises publishes so subscribers observe them in order.
	pubMu sync.Mutex

	stateMu sync.RWMutex
	state   State

	subsMu sync.Mutex
	subs   []subscriber

	restored bool
	detach   func()
}

// NewStore builds a Store in the loading state and registers it for the
// backend's auth state changes.
func NewStore(b Backend, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Store{
		backend: b,
		logger:  logger.With("component", "session"),
		state:   State{Loading: true},
	}
	s.detach = b.OnAuthStateChange(s.OnAuthStateChange)
	return s
}

// Close stops listening to the backend.
func (s *Store) Close() {
	if s.detach != nil {
		s.detach()
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return cloneState(s.state)
}

// Subscribe registers fn for every published state and returns a func that
// removes it. fn runs on the publishing goroutine and must not call back into
// the store's write operations.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	id := uuid.New()

	s.subsMu.Lock()
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// publish atomically replaces the state with update(current) and notifies
// subscribers in registration order.
func (s *Store) publish(update func(State) State) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.stateMu.Lock()
	next := cloneState(update(s.state))
	s.state = next
	s.stateMu.Unlock()

	s.subsMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(cloneState(next))
	}
}

func (s *Store) setUser(u *models.User) {
	s.publish(func(st State) State {
		st.User = u
		return st
	})
}

// Restore loads an existing session, if any, and clears the loading flag.
// Errors are logged and treated as "no session".
func (s *Store) Restore(ctx context.Context) {
	var user *models.User

	sess, err := s.backend.GetSession(ctx)
	switch {
	case err != nil:
		s.logger.Debug(ctx, "session restore failed, continuing signed out", "error", err)
	case sess != nil:
		user = project(sess)
		s.ensureUserRow(ctx, user.ID)
	}

	s.publish(func(st State) State {
		st.User = user
		if !s.restored {
			s.restored = true
			st.Loading = false
		}
		return st
	})
}

// OnAuthStateChange applies a backend auth event. It matches
// backend.AuthListener and is registered by NewStore.
func (s *Store) OnAuthStateChange(event models.AuthEvent, sess *models.Session) {
	if event == models.EventSignedOut || sess == nil {
		s.setUser(nil)
		return
	}
	s.setUser(project(sess))
}

// OnAppForegrounded re-validates the session against the backend. Anything
// short of a confirmed user signs the store out.
func (s *Store) OnAppForegrounded(ctx context.Context) {
	user, err := s.currentUser(ctx)
	if err != nil {
		s.logger.Debug(ctx, "foreground session check failed, signing out", "error", err)
		s.setUser(nil)
		return
	}
	if user == nil {
		s.logger.Debug(ctx, "session expired while in background")
	}
	s.setUser(user)
}

func (s *Store) currentUser(ctx context.Context) (*models.User, error) {
	sess, err := s.backend.GetSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	u, err := s.backend.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil || u.ID == "" {
		return nil, nil
	}
	if u.Email == "" {
		u.Email = sess.User.Email
	}
	return u, nil
}

// EnsureValidUser returns the signed-in user only when both a backend session
// and its users row exist. Otherwise it clears the published user, signs the
// backend out and returns nil.
func (s *Store) EnsureValidUser(ctx context.Context) *models.User {
	sess, err := s.backend.GetSession(ctx)
	if err != nil || sess == nil {
		s.failClosed(ctx, "no backend session", err)
		return nil
	}

	if _, err := s.backend.GetProfile(ctx, sess.User.ID); err != nil {
		s.failClosed(ctx, "no users row for session", err, "user_id", sess.User.ID)
		return nil
	}
	return project(sess)
}

func (s *Store) failClosed(ctx context.Context, reason string, cause error, args ...any) {
	args = append(args, "reason", reason)
	if cause != nil {
		args = append(args, "error", cause)
	}
	s.logger.Warn(ctx, "invalid user, signing out", args...)

	s.setUser(nil)
	if err := s.backend.SignOut(ctx); err != nil {
		s.logger.Debug(ctx, "backend sign out failed", "error", err)
	}
}

// SignInWithEmail signs in with e-mail and password and makes sure the
// users row exists.
func (s *Store) SignInWithEmail(ctx context.Context, email, password string) (*models.User, error) {
	sess, err := s.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, newAuthError("sign in", err)
	}
	u := project(sess)
	s.ensureUserRow(ctx, u.ID)
	return u, nil
}

// SignUpWithEmail registers a new account. When the backend returns a session
// straight away the users row is created here.
func (s *Store) SignUpWithEmail(ctx context.Context, email, password string) (*SignUpResult, error) {
	res, err := s.backend.SignUp(ctx, email, password)
	if err != nil {
		return nil, newAuthError("sign up", err)
	}
	out := &SignUpResult{User: res.User}
	if res.Session != nil {
		out.User = *project(res.Session)
		out.SignedIn = true
		s.ensureUserRow(ctx, out.User.ID)
	}
	return out, nil
}

// ExchangeCode completes a deep-link sign-in with the code carried by rawURL.
func (s *Store) ExchangeCode(ctx context.Context, rawURL string) (*models.User, error) {
	sess, err := s.backend.ExchangeCodeForSession(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	u := project(sess)
	s.ensureUserRow(ctx, u.ID)
	return u, nil
}

// SignOut signs out of the backend. The published user is cleared even when
// the backend call fails.
func (s *Store) SignOut(ctx context.Context) error {
	err := s.backend.SignOut(ctx)
	s.setUser(nil)
	if err != nil {
		return newAuthError("sign out", err)
	}
	return nil
}

// ensureUserRow creates the users row of userID when it does not exist yet.
// Failures are logged and never returned.
func (s *Store) ensureUserRow(ctx context.Context, userID string) {
	_, err := s.backend.GetProfile(ctx, userID)
	switch {
	case err == nil:
		return
	case !errors.Is(err, common.ErrNotFound):
		s.logger.Warn(ctx, "users row lookup failed, not creating one", "user_id", userID, "error", err)
		return
	}

	err = s.backend.InsertProfile(ctx, userID)
	switch {
	case err == nil:
		s.logger.Info(ctx, "users row created", "user_id", userID)
	case errors.Is(err, common.ErrAlreadyExists):
		s.logger.Debug(ctx, "users row created concurrently", "user_id", userID)
	default:
		s.logger.Error(ctx, "users row insert failed", "user_id", userID, "error", err)
	}
}

func project(sess *models.Session) *models.User {
	u := sess.User
	return &u
}

func cloneState(st State) State {
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}
