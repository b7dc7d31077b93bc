package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docchat/internal/chatlog"
	"docchat/internal/config"
	"docchat/internal/gateway"
	"docchat/internal/handlers"
	"docchat/internal/idp"
	"docchat/internal/index"
	"docchat/internal/registry"
	"docchat/internal/responder"
	"docchat/internal/services"
	"docchat/internal/session"
	"docchat/internal/store/memory"
)

// startTestServer wires the full server stack over the in-memory store and
// returns the base URL plus the shared store for client-side services.
func startTestServer(t *testing.T) (string, *memory.MemoryStore) {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:       "test-secret",
		TokenExpiration: time.Hour,
		UploadDir:       t.TempDir(),
	}
	st := memory.NewMemoryStore()

	authSvc := services.NewAuthService(st, cfg)
	chatSvc := services.NewChatService(st, responder.NewKeyword(), cfg.UploadDir)

	router := NewRouter(RouterDependencies{
		AuthHandler: handlers.NewAuthHandler(authSvc),
		ChatHandler: handlers.NewChatHandlers(chatSvc),
		Config:      cfg,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv.URL, st
}

func TestFullConversationFlow(t *testing.T) {
	baseURL, st := startTestServer(t)
	ctx := context.Background()

	provider := idp.NewClient(baseURL)
	sess := session.NewStore(provider)
	gw := gateway.NewClient(baseURL, sess)
	reg := registry.New()
	logSvc := chatlog.NewService(st, sess)
	idxSvc := index.NewService(st, sess)

	if err := sess.SignUp(ctx, "reader@example.com", "hunter22"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if err := sess.SignIn(ctx, "reader@example.com", "hunter22"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	doc := "The report covers quarterly revenue. Revenue grew by ten percent."
	upload, err := gw.UploadDocument(ctx, "report.pdf", strings.NewReader(doc))
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	if upload.ChatID == "" {
		t.Fatal("backend did not issue a chat id")
	}

	// The backend-issued id becomes the active conversation.
	reg.Select(upload.ChatID)
	if _, err := logSvc.RecordSession(ctx, upload.ChatID, "report.pdf", "File uploaded successfully"); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}

	question := "What happened to revenue?"
	answer, err := gw.Ask(ctx, reg.Current(), question)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer == "" {
		t.Fatal("empty answer from backend")
	}

	if _, err := logSvc.Append(ctx, reg.Current(), question, answer); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// A fresh subscription sees exactly the one recorded exchange.
	sub, err := logSvc.SubscribeToConversation(ctx, reg.Current())
	if err != nil {
		t.Fatalf("SubscribeToConversation: %v", err)
	}
	defer sub.Close()

	select {
	case msgs := <-sub.Updates():
		if len(msgs) != 1 {
			t.Fatalf("expected 1 message in the transcript, got %d", len(msgs))
		}
		if msgs[0].Message != question || msgs[0].Response != answer {
			t.Errorf("transcript mismatch: %+v", msgs[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no transcript snapshot delivered")
	}

	// The conversation list picks up the upload's file name.
	idxSub, err := idxSvc.SubscribeToAll(ctx)
	if err != nil {
		t.Fatalf("SubscribeToAll: %v", err)
	}
	defer idxSub.Close()

	deadline := time.After(2 * time.Second)
waitSummary:
	for {
		select {
		case summaries := <-idxSub.Updates():
			if len(summaries) == 1 && summaries[0].ConversationID == upload.ChatID {
				if summaries[0].FileName != "report.pdf" {
					t.Errorf("summary file name = %q", summaries[0].FileName)
				}
				break waitSummary
			}
		case <-deadline:
			t.Fatal("conversation summary never arrived")
		}
	}

	// The backend's own history includes the seeded greeting plus the
	// exchange appended by the chat endpoint.
	entries, err := gw.ChatHistory(ctx, upload.ChatID)
	if err != nil {
		t.Fatalf("ChatHistory: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(entries))
	}
	if entries[0].Text != "Hi" || entries[1].Text != "Hello! How can I assist you today?" {
		t.Errorf("greeting pair missing: %+v", entries[:2])
	}
	if entries[2].Text != question {
		t.Errorf("question not in history: %+v", entries[2])
	}

	ids, err := gw.ChatIDs(ctx)
	if err != nil {
		t.Fatalf("ChatIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != upload.ChatID {
		t.Errorf("ids = %v", ids)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	baseURL, _ := startTestServer(t)
	ctx := context.Background()

	sess := session.NewStore(idp.NewClient(baseURL))
	gw := gateway.NewClient(baseURL, sess)

	_, err := gw.ChatIDs(ctx)
	var se *gateway.StatusError
	if !errors.As(err, &se) || se.StatusCode != 401 {
		t.Fatalf("expected a 401 StatusError, got %v", err)
	}
	if se.Error() != "Authorization header required" {
		t.Errorf("detail = %q", se.Error())
	}
}

func TestAskUnknownChatReturnsNotFound(t *testing.T) {
	baseURL, _ := startTestServer(t)
	ctx := context.Background()

	sess := session.NewStore(idp.NewClient(baseURL))
	gw := gateway.NewClient(baseURL, sess)

	if err := sess.SignUp(ctx, "u@example.com", "pw"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if err := sess.SignIn(ctx, "u@example.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	_, err := gw.Ask(ctx, "never-created", "q")
	var se *gateway.StatusError
	if !errors.As(err, &se) || se.StatusCode != 404 {
		t.Fatalf("expected a 404 StatusError, got %v", err)
	}
}

func TestDuplicateSignupSurfacesDetail(t *testing.T) {
	baseURL, _ := startTestServer(t)
	ctx := context.Background()

	sess := session.NewStore(idp.NewClient(baseURL))
	if err := sess.SignUp(ctx, "dup@example.com", "pw"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	err := sess.SignUp(ctx, "dup@example.com", "pw")
	var pe *idp.Error
	if !errors.As(err, &pe) || pe.StatusCode != 409 {
		t.Fatalf("expected a 409 provider error, got %v", err)
	}
	if !strings.Contains(pe.Error(), "already exists") {
		t.Errorf("detail = %q", pe.Error())
	}
}

func TestPublicEndpoint(t *testing.T) {
	baseURL, _ := startTestServer(t)

	gw := gateway.NewClient(baseURL, nil)
	raw, err := gw.TestConnection(context.Background())
	if err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if !strings.Contains(string(raw), "Anyone can see this") {
		t.Errorf("unexpected public payload: %s", raw)
	}
}
