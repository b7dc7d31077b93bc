package chatlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"docchat/internal/idp"
	"docchat/internal/models"
	"docchat/internal/session"
	"docchat/internal/store/memory"
)

// stubProvider signs anyone in with fixed credentials.
type stubProvider struct {
	creds idp.Credentials
}

func (p *stubProvider) SignUp(ctx context.Context, email, password string) error { return nil }

func (p *stubProvider) SignIn(ctx context.Context, email, password string) (idp.Credentials, error) {
	return p.creds, nil
}

func signedInSession(t *testing.T) *session.Store {
	t.Helper()
	sess := session.NewStore(&stubProvider{creds: idp.Credentials{
		Token: "test-token", UserID: "u1", Email: "u1@example.com",
	}})
	if err := sess.SignIn(context.Background(), "u1@example.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	return sess
}

func TestAppendStampsUserAndConversation(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewService(st, signedInSession(t))

	msg, err := svc.Append(context.Background(), "c1", "what is this?", "a test")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if msg.ID == "" {
		t.Error("expected store-assigned id on returned record")
	}
	if msg.UserID != "u1" || msg.UserEmail != "u1@example.com" {
		t.Errorf("wrong identity stamp: %+v", msg)
	}
	if msg.ConversationID != "c1" {
		t.Errorf("wrong conversation stamp: %q", msg.ConversationID)
	}
}

func TestAppendUnauthenticatedWritesNothing(t *testing.T) {
	st := memory.NewMemoryStore()
	sess := session.NewStore(&stubProvider{})
	svc := NewService(st, sess)

	_, err := svc.Append(context.Background(), "c1", "q", "a")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	msgs, err := st.MessagesByConversation(context.Background(), "u1", "c1")
	if err != nil {
		t.Fatalf("MessagesByConversation: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected no writes, found %d messages", len(msgs))
	}
}

func TestSubscribeUnauthenticated(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewService(st, session.NewStore(&stubProvider{}))

	if _, err := svc.SubscribeToConversation(context.Background(), "c1"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

// waitForSnapshot reads deliveries until one satisfies cond or the
// timeout passes.
func waitForSnapshot(t *testing.T, sub *Subscription, cond func([]models.Message) bool) []models.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msgs, open := <-sub.Updates():
			if !open {
				t.Fatal("subscription closed before expected snapshot")
			}
			if cond(msgs) {
				return msgs
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestSubscriptionDeliversInitialSnapshotThenUpdates(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewService(st, signedInSession(t))
	ctx := context.Background()

	if _, err := svc.Append(ctx, "c1", "first", "r1"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	sub, err := svc.SubscribeToConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("SubscribeToConversation: %v", err)
	}
	defer sub.Close()

	// Initial load counts as one delivery.
	initial := waitForSnapshot(t, sub, func(m []models.Message) bool { return len(m) == 1 })
	if initial[0].Message != "first" {
		t.Errorf("unexpected initial snapshot: %+v", initial)
	}

	if _, err := svc.Append(ctx, "c1", "second", "r2"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	updated := waitForSnapshot(t, sub, func(m []models.Message) bool { return len(m) == 2 })
	for i := 1; i < len(updated); i++ {
		if updated[i].Timestamp.Before(updated[i-1].Timestamp) {
			t.Errorf("snapshot out of timestamp order at index %d", i)
		}
	}
	if updated[1].Message != "second" {
		t.Errorf("expected newest message last, got %+v", updated)
	}
}

func TestSubscriptionFiltersOtherConversations(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewService(st, signedInSession(t))
	ctx := context.Background()

	if _, err := svc.Append(ctx, "c1", "mine", "r"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := svc.Append(ctx, "c2", "other", "r"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	sub, err := svc.SubscribeToConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("SubscribeToConversation: %v", err)
	}
	defer sub.Close()

	snap := waitForSnapshot(t, sub, func(m []models.Message) bool { return len(m) >= 1 })
	for _, m := range snap {
		if m.ConversationID != "c1" {
			t.Errorf("snapshot leaked message from %s", m.ConversationID)
		}
	}
}

func TestSubscriptionCloseStopsDeliveries(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewService(st, signedInSession(t))
	ctx := context.Background()

	sub, err := svc.SubscribeToConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("SubscribeToConversation: %v", err)
	}
	sub.Close()
	sub.Close() // idempotent

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-sub.Updates():
			if !open {
				return // channel closed as expected
			}
		case <-deadline:
			t.Fatal("updates channel never closed after Close")
		}
	}
}
