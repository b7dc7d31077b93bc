package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"docchat/internal/models"
	"docchat/internal/store"
)

// Custom errors for chat service
var (
	ErrChatNotFound = errors.New("chat not found")
	ErrEmptyUpload  = errors.New("uploaded file is empty")
)

// Responder produces an answer for a question given the chat's history.
// The production retrieval/generation pipeline lives behind this interface;
// the repo ships a keyword-extractive default.
type Responder interface {
	Answer(ctx context.Context, documentPath, question string, history []models.ChatEntry) (string, error)
}

// ChatService owns server-side chat lifecycle: starting a chat from an
// uploaded document, answering questions, and serving history.
type ChatService struct {
	store     store.Store
	responder Responder
	uploadDir string
}

func NewChatService(s store.Store, responder Responder, uploadDir string) *ChatService {
	return &ChatService{
		store:     s,
		responder: responder,
		uploadDir: uploadDir,
	}
}

// documentPath is where a chat's uploaded document lives on disk, keyed by
// chat id so the responder can find it again on later questions.
func (s *ChatService) documentPath(chatID string) string {
	return filepath.Join(s.uploadDir, chatID)
}

// StartChat persists an uploaded document, mints a chat id, and seeds the
// chat history with the greeting exchange. Returns the new chat id.
func (s *ChatService) StartChat(ctx context.Context, userID, fileName string, contents io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	chatID := fmt.Sprintf("%s_%s", userID, time.Now().Format("20060102-150405"))

	f, err := os.Create(s.documentPath(chatID))
	if err != nil {
		return "", fmt.Errorf("failed to store uploaded file: %w", err)
	}
	written, err := io.Copy(f, contents)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write uploaded file: %w", err)
	}
	if written == 0 {
		return "", ErrEmptyUpload
	}

	entries := []models.ChatEntry{
		{Type: models.EntryTypeHuman, Text: "Hi"},
		{Type: models.EntryTypeAI, Text: "Hello! How can I assist you today?"},
	}
	if err := s.store.CreateChat(ctx, userID, chatID, entries); err != nil {
		return "", fmt.Errorf("failed to create chat: %w", err)
	}

	log.Printf("Started chat %s for user %s (file: %s, %d bytes)", chatID, userID, fileName, written)
	return chatID, nil
}

// Ask answers a question within an existing chat and appends both the
// question and the answer to the chat history.
func (s *ChatService) Ask(ctx context.Context, userID, chatID, question string) (string, error) {
	history, err := s.store.GetChat(ctx, userID, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrChatNotFound
		}
		return "", fmt.Errorf("failed to load chat history: %w", err)
	}

	answer, err := s.responder.Answer(ctx, s.documentPath(chatID), question, history)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	if err := s.store.AppendChatEntry(ctx, userID, chatID, models.ChatEntry{Type: models.EntryTypeHuman, Text: question}); err != nil {
		return "", fmt.Errorf("failed to record question: %w", err)
	}
	if err := s.store.AppendChatEntry(ctx, userID, chatID, models.ChatEntry{Type: models.EntryTypeAI, Text: answer}); err != nil {
		return "", fmt.Errorf("failed to record answer: %w", err)
	}

	return answer, nil
}

// ChatIDs lists the user's chat ids.
func (s *ChatService) ChatIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.store.ChatIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat ids: %w", err)
	}
	return ids, nil
}

// History returns the full entry list of one chat.
func (s *ChatService) History(ctx context.Context, userID, chatID string) ([]models.ChatEntry, error) {
	entries, err := s.store.GetChat(ctx, userID, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	return entries, nil
}
