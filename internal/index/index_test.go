package index

import (
	"context"
	"testing"
	"time"

	"docchat/internal/idp"
	"docchat/internal/models"
	"docchat/internal/session"
	"docchat/internal/store"
	"docchat/internal/store/memory"
)

func TestSummarizeGroupsByConversation(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// Newest first, the order MessagesByUser returns.
	msgs := []models.Message{
		{ConversationID: "c2", Message: "newest c2", Timestamp: base.Add(3 * time.Second)},
		{ConversationID: "c1", Message: "newest c1", Timestamp: base.Add(2 * time.Second)},
		{ConversationID: "c1", Message: "older c1", Timestamp: base.Add(time.Second)},
		{ConversationID: "c1", Message: "oldest c1", Timestamp: base},
	}
	sessions := []models.ChatSession{
		{ChatID: "c2", FileName: "report.pdf"},
	}

	summaries := Summarize(msgs, sessions)
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	byID := make(map[string]Summary)
	for _, s := range summaries {
		byID[s.ConversationID] = s
	}

	c1 := byID["c1"]
	if c1.MessageCount != 3 {
		t.Errorf("c1 count = %d, want 3", c1.MessageCount)
	}
	if c1.LastMessage != "newest c1" {
		t.Errorf("c1 last message = %q, want the most recent", c1.LastMessage)
	}
	if !c1.LastActivity.Equal(base.Add(2 * time.Second)) {
		t.Errorf("c1 last activity = %v", c1.LastActivity)
	}
	if c1.FileName != "" {
		t.Errorf("c1 should have no file name, got %q", c1.FileName)
	}

	c2 := byID["c2"]
	if c2.MessageCount != 1 || c2.FileName != "report.pdf" {
		t.Errorf("unexpected c2 summary: %+v", c2)
	}
}

func TestSummarizeSessionsAloneProduceNoRows(t *testing.T) {
	sessions := []models.ChatSession{{ChatID: "c9", FileName: "orphan.pdf"}}
	if got := Summarize(nil, sessions); len(got) != 0 {
		t.Errorf("session records without messages must not create summaries, got %+v", got)
	}
}

type stubProvider struct{ creds idp.Credentials }

func (p *stubProvider) SignUp(ctx context.Context, email, password string) error { return nil }
func (p *stubProvider) SignIn(ctx context.Context, email, password string) (idp.Credentials, error) {
	return p.creds, nil
}

func TestSubscribeToAllSettlesOnCorrectCounts(t *testing.T) {
	st := memory.NewMemoryStore()
	sess := session.NewStore(&stubProvider{creds: idp.Credentials{Token: "t", UserID: "u1", Email: "u1@example.com"}})
	if err := sess.SignIn(context.Background(), "u1@example.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	svc := NewService(st, sess)
	ctx := context.Background()

	sub, err := svc.SubscribeToAll(ctx)
	if err != nil {
		t.Fatalf("SubscribeToAll: %v", err)
	}
	defer sub.Close()

	write := func(conv, msg string) {
		t.Helper()
		_, err := st.AppendMessage(ctx, store.AppendMessageParams{
			UserID: "u1", UserEmail: "u1@example.com", Message: msg, Response: "r", ConversationID: conv,
		})
		if err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	write("c1", "one")
	write("c1", "two")
	write("c2", "hello")

	// Wait for the deliveries to settle on the final grouping.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case summaries, open := <-sub.Updates():
			if !open {
				t.Fatal("subscription closed early")
			}
			byID := make(map[string]Summary)
			for _, s := range summaries {
				byID[s.ConversationID] = s
			}
			if byID["c1"].MessageCount == 2 && byID["c2"].MessageCount == 1 {
				if byID["c1"].LastMessage != "two" {
					t.Errorf("c1 last message = %q, want %q", byID["c1"].LastMessage, "two")
				}
				return
			}
		case <-deadline:
			t.Fatal("summaries never settled on the expected counts")
		}
	}
}

func TestSubscribeToAllUnauthenticated(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewService(st, session.NewStore(&stubProvider{}))

	if _, err := svc.SubscribeToAll(context.Background()); err == nil {
		t.Fatal("expected an error with nobody signed in")
	}
}

func TestLastMessageTracksMostRecentWrite(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msgs := []models.Message{
		// Two messages one second apart, newest first.
		{ConversationID: "c1", Message: "second", Timestamp: base.Add(time.Second)},
		{ConversationID: "c1", Message: "first", Timestamp: base},
	}

	summaries := Summarize(msgs, nil)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].LastMessage != "second" {
		t.Errorf("lastMessage = %q, want %q", summaries[0].LastMessage, "second")
	}
}
