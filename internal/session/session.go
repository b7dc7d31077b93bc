// Package session tracks the signed-in user. It wraps the identity
// provider client, keeps a snapshot of the current user, and notifies
// subscribers on sign-in and sign-out. Absence of a user is represented,
// never raised as an error.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"docchat/internal/auth"
	"docchat/internal/idp"
)

// ErrNoUser reports that a user-scoped operation ran with nobody signed
// in. The session store itself never returns it; user-scoped services do.
var ErrNoUser = errors.New("user not authenticated")

// User is the snapshot of the signed-in identity.
type User struct {
	UID   string
	Email string
}

// Provider is the identity backend the session store delegates to.
type Provider interface {
	SignUp(ctx context.Context, email, password string) error
	SignIn(ctx context.Context, email, password string) (idp.Credentials, error)
}

// Store holds the current session. Safe for concurrent use.
type Store struct {
	provider Provider

	mu      sync.RWMutex
	user    *User
	token   string
	expiry  time.Time // zero means no known expiry
	nextSub int
	subs    map[int]func(*User)
}

func NewStore(provider Provider) *Store {
	return &Store{
		provider: provider,
		subs:     make(map[int]func(*User)),
	}
}

// CurrentUser returns the signed-in user snapshot, or ok=false when
// nobody is signed in.
func (s *Store) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Subscribe registers a callback invoked with the new user snapshot on
// sign-in and with nil on sign-out. Returns an unsubscribe function.
func (s *Store) Subscribe(fn func(*User)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SignUp registers a new account with the provider. Provider errors are
// returned verbatim.
func (s *Store) SignUp(ctx context.Context, email, password string) error {
	return s.provider.SignUp(ctx, email, password)
}

// SignIn authenticates with the provider and captures the user snapshot
// and bearer credential.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	creds, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	user := &User{UID: creds.UserID, Email: creds.Email}

	s.mu.Lock()
	s.user = user
	s.token = creds.Token
	if exp, ok := auth.TokenExpiry(creds.Token); ok {
		s.expiry = exp
	} else {
		s.expiry = time.Time{}
	}
	subs := snapshotSubs(s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(user)
	}
	return nil
}

// SignOut clears the session and notifies subscribers.
func (s *Store) SignOut() {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.expiry = time.Time{}
	subs := snapshotSubs(s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(nil)
	}
}

// Token returns the bearer credential for backend calls, or "" when no
// usable credential exists. An expired token counts as absent; the
// request then goes out unauthenticated and the server rejects it.
func (s *Store) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", nil
	}
	if !s.expiry.IsZero() && time.Now().After(s.expiry) {
		return "", nil
	}
	return s.token, nil
}

func snapshotSubs(subs map[int]func(*User)) []func(*User) {
	out := make([]func(*User), 0, len(subs))
	for _, fn := range subs {
		out = append(out, fn)
	}
	return out
}
