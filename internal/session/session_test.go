package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"docchat/internal/auth"
	"docchat/internal/idp"
)

type fakeProvider struct {
	creds     idp.Credentials
	signInErr error
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password string) error { return nil }

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (idp.Credentials, error) {
	if p.signInErr != nil {
		return idp.Credentials{}, p.signInErr
	}
	return p.creds, nil
}

func TestCurrentUserBeforeSignIn(t *testing.T) {
	s := NewStore(&fakeProvider{})
	if _, ok := s.CurrentUser(); ok {
		t.Error("expected no user before sign-in")
	}
	tok, err := s.Token(context.Background())
	if err != nil || tok != "" {
		t.Errorf("Token = (%q, %v), want empty with nil error", tok, err)
	}
}

func TestSignInCapturesSnapshot(t *testing.T) {
	s := NewStore(&fakeProvider{creds: idp.Credentials{
		Token: "tok", UserID: "u1", Email: "u1@example.com",
	}})

	if err := s.SignIn(context.Background(), "u1@example.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	user, ok := s.CurrentUser()
	if !ok {
		t.Fatal("expected a signed-in user")
	}
	if user.UID != "u1" || user.Email != "u1@example.com" {
		t.Errorf("unexpected snapshot: %+v", user)
	}
	tok, err := s.Token(context.Background())
	if err != nil || tok != "tok" {
		t.Errorf("Token = (%q, %v)", tok, err)
	}
}

func TestSignInFailureLeavesSessionEmpty(t *testing.T) {
	provErr := errors.New("Invalid credentials")
	s := NewStore(&fakeProvider{signInErr: provErr})

	if err := s.SignIn(context.Background(), "u1@example.com", "bad"); !errors.Is(err, provErr) {
		t.Fatalf("expected provider error back verbatim, got %v", err)
	}
	if _, ok := s.CurrentUser(); ok {
		t.Error("failed sign-in must not leave a user behind")
	}
}

func TestSubscriberNotifications(t *testing.T) {
	s := NewStore(&fakeProvider{creds: idp.Credentials{Token: "tok", UserID: "u1", Email: "e"}})

	var events []*User
	unsub := s.Subscribe(func(u *User) { events = append(events, u) })

	if err := s.SignIn(context.Background(), "e", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	s.SignOut()

	if len(events) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(events))
	}
	if events[0] == nil || events[0].UID != "u1" {
		t.Errorf("first notification should carry the user, got %+v", events[0])
	}
	if events[1] != nil {
		t.Errorf("sign-out notification should be nil, got %+v", events[1])
	}

	unsub()
	if err := s.SignIn(context.Background(), "e", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if len(events) != 2 {
		t.Error("unsubscribed callback still invoked")
	}
}

func TestTokenEmptyAfterSignOut(t *testing.T) {
	s := NewStore(&fakeProvider{creds: idp.Credentials{Token: "tok", UserID: "u1", Email: "e"}})
	if err := s.SignIn(context.Background(), "e", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	s.SignOut()

	tok, err := s.Token(context.Background())
	if err != nil || tok != "" {
		t.Errorf("Token after SignOut = (%q, %v), want empty", tok, err)
	}
}

func TestExpiredTokenCountsAsAbsent(t *testing.T) {
	// A real JWT that expired in the past: expiry is read client-side
	// without signature verification.
	expired, err := auth.NewAccessToken(
		uuid.New(), "u1@example.com", "secret", -time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	s := NewStore(&fakeProvider{creds: idp.Credentials{Token: expired, UserID: "u1", Email: "e"}})
	if err := s.SignIn(context.Background(), "e", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	tok, err := s.Token(context.Background())
	if err != nil || tok != "" {
		t.Errorf("Token with expired credential = (%q, %v), want empty", tok, err)
	}
	// The user snapshot survives; only the credential is withheld.
	if _, ok := s.CurrentUser(); !ok {
		t.Error("expired token should not clear the user snapshot")
	}
}
