package store

import (
	"context"
	"errors"

	"docchat/internal/models"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// AppendMessageParams contains parameters for appending one message/response
// pair to the message log. The store assigns the record ID and timestamp.
type AppendMessageParams struct {
	UserID         string
	UserEmail      string
	Message        string
	Response       string
	ConversationID string
}

// CreateChatSessionParams contains parameters for recording the session
// created when a document upload starts a conversation.
type CreateChatSessionParams struct {
	UserID      string
	ChatID      string
	FileName    string
	LastMessage string
}

// Store defines the interface for the document store. It backs both the
// client-side message log (chat_messages, chat_sessions collections) and
// the server-side chat history documents, and exposes a change feed so
// live queries can re-read when the underlying data moves.
//
// This allows for mocking in tests and switching DB backends.
type Store interface {
	// User operations (identity provider accounts)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	// Message log operations. MessagesByConversation returns records in
	// non-decreasing timestamp order; MessagesByUser in decreasing order.
	AppendMessage(ctx context.Context, arg AppendMessageParams) (*models.Message, error)
	MessagesByConversation(ctx context.Context, userID, conversationID string) ([]models.Message, error)
	MessagesByUser(ctx context.Context, userID string) ([]models.Message, error)

	// Chat session records (upload metadata). Ordered by creation time,
	// newest first.
	CreateChatSession(ctx context.Context, arg CreateChatSessionParams) (*models.ChatSession, error)
	ChatSessionsByUser(ctx context.Context, userID string) ([]models.ChatSession, error)

	// Server-side chat history documents, one entry list per chat.
	// AppendChatEntry creates the document if it does not exist yet.
	CreateChat(ctx context.Context, userID, chatID string, entries []models.ChatEntry) error
	AppendChatEntry(ctx context.Context, userID, chatID string, entry models.ChatEntry) error
	GetChat(ctx context.Context, userID, chatID string) ([]models.ChatEntry, error)
	ChatIDs(ctx context.Context, userID string) ([]string, error)

	// WatchUser returns a channel that receives a tick whenever any of the
	// user's records change, plus a stop function that releases the watch.
	// Ticks are coalesced: a slow consumer sees at least one tick for any
	// burst of writes. The channel is closed when the watch ends.
	WatchUser(ctx context.Context, userID string) (<-chan struct{}, func(), error)
}
