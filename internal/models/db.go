package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an identity-provider account in the database.
type User struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Message is one question/answer pair in the append-only message log.
// ID and Timestamp are assigned by the store on write; clients never
// update or delete these records.
type Message struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	UserEmail      string    `json:"userEmail"`
	Message        string    `json:"message"`
	Response       string    `json:"response"`
	ConversationID string    `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
}

// ChatSession is the explicit record written when a document upload starts
// a conversation. It carries upload metadata (the originating file name);
// conversation listings are derived from the message log, not from these.
type ChatSession struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ChatID      string    `json:"chatId"`
	FileName    string    `json:"fileName"`
	CreatedAt   time.Time `json:"createdAt"`
	LastMessage string    `json:"lastMessage"`
}

// Entry types for server-side chat history documents.
const (
	EntryTypeHuman = "human"
	EntryTypeAI    = "ai"
)

// ChatEntry is a single turn in the server-side chat history document
// (stored as a JSONB array per chat).
type ChatEntry struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
