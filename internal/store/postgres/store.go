package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"docchat/internal/models"
	"docchat/internal/store"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

// changeChannel is the pg_notify channel carrying per-user change ticks.
// The payload is the user id whose records changed.
const changeChannel = "chat_changes"

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetUserByEmail retrieves a user by their email address.
// Returns store.ErrNotFound if the user does not exist.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM users
		WHERE email = $1`

	user := &models.User{}
	err := s.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetUserByEmail: query failed for %s: %v", email, err)
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user record into the database.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, hashed_password)
		VALUES ($1, $2, $3)`
	// created_at and updated_at have database defaults (NOW())

	_, err := s.db.Exec(ctx, query, user.ID, user.Email, user.HashedPassword)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			log.Printf("ERROR [PostgresStore] CreateUser: insert failed for %s: Code=%s, Message=%s", user.Email, pgErr.Code, pgErr.Message)
		} else {
			log.Printf("ERROR [PostgresStore] CreateUser: insert failed for %s: %v", user.Email, err)
		}
		return fmt.Errorf("database error creating user: %w", err)
	}
	return nil
}

// AppendMessage writes one message/response pair to the message log and
// emits a change tick for the owning user. ID and timestamp are assigned
// here; the timestamp comes from the database clock.
func (s *PostgresStore) AppendMessage(ctx context.Context, arg store.AppendMessageParams) (*models.Message, error) {
	query := `
		INSERT INTO chat_messages (id, user_id, user_email, message, response, conversation_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING timestamp`

	msg := &models.Message{
		ID:             uuid.NewString(),
		UserID:         arg.UserID,
		UserEmail:      arg.UserEmail,
		Message:        arg.Message,
		Response:       arg.Response,
		ConversationID: arg.ConversationID,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("database error starting append transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, query,
		msg.ID, msg.UserID, msg.UserEmail, msg.Message, msg.Response, msg.ConversationID,
	).Scan(&msg.Timestamp)
	if err != nil {
		log.Printf("ERROR [PostgresStore] AppendMessage: insert failed for user %s: %v", arg.UserID, err)
		return nil, fmt.Errorf("database error appending message: %w", err)
	}

	if err := s.notify(ctx, tx, arg.UserID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("database error committing append: %w", err)
	}
	return msg, nil
}

// MessagesByConversation returns the user's messages for one conversation
// in non-decreasing timestamp order.
func (s *PostgresStore) MessagesByConversation(ctx context.Context, userID, conversationID string) ([]models.Message, error) {
	query := `
		SELECT id, user_id, user_email, message, response, conversation_id, timestamp
		FROM chat_messages
		WHERE user_id = $1 AND conversation_id = $2
		ORDER BY timestamp ASC`

	rows, err := s.db.Query(ctx, query, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("database error listing conversation messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MessagesByUser returns all of the user's messages, newest first.
func (s *PostgresStore) MessagesByUser(ctx context.Context, userID string) ([]models.Message, error) {
	query := `
		SELECT id, user_id, user_email, message, response, conversation_id, timestamp
		FROM chat_messages
		WHERE user_id = $1
		ORDER BY timestamp DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("database error listing user messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]models.Message, error) {
	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.UserEmail, &m.Message, &m.Response, &m.ConversationID, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("database error scanning message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating messages: %w", err)
	}
	return out, nil
}

// CreateChatSession records the session written at document-upload time.
func (s *PostgresStore) CreateChatSession(ctx context.Context, arg store.CreateChatSessionParams) (*models.ChatSession, error) {
	query := `
		INSERT INTO chat_sessions (id, user_id, chat_id, file_name, last_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	sess := &models.ChatSession{
		ID:          uuid.NewString(),
		UserID:      arg.UserID,
		ChatID:      arg.ChatID,
		FileName:    arg.FileName,
		LastMessage: arg.LastMessage,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("database error starting session transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, query,
		sess.ID, sess.UserID, sess.ChatID, sess.FileName, sess.LastMessage,
	).Scan(&sess.CreatedAt)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateChatSession: insert failed for user %s: %v", arg.UserID, err)
		return nil, fmt.Errorf("database error creating chat session: %w", err)
	}

	if err := s.notify(ctx, tx, arg.UserID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("database error committing session: %w", err)
	}
	return sess, nil
}

// ChatSessionsByUser returns the user's upload sessions, newest first.
func (s *PostgresStore) ChatSessionsByUser(ctx context.Context, userID string) ([]models.ChatSession, error) {
	query := `
		SELECT id, user_id, chat_id, file_name, created_at, last_message
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("database error listing chat sessions: %w", err)
	}
	defer rows.Close()

	var out []models.ChatSession
	for rows.Next() {
		var c models.ChatSession
		if err := rows.Scan(&c.ID, &c.UserID, &c.ChatID, &c.FileName, &c.CreatedAt, &c.LastMessage); err != nil {
			return nil, fmt.Errorf("database error scanning chat session: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating chat sessions: %w", err)
	}
	return out, nil
}

// CreateChat stores a server-side chat history document, replacing any
// existing entries for the chat.
func (s *PostgresStore) CreateChat(ctx context.Context, userID, chatID string, entries []models.ChatEntry) error {
	query := `
		INSERT INTO chats (user_id, chat_id, entries)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, chat_id) DO UPDATE SET entries = EXCLUDED.entries, updated_at = NOW()`

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting chat transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, query, userID, chatID, entries); err != nil {
		log.Printf("ERROR [PostgresStore] CreateChat: upsert failed for chat %s: %v", chatID, err)
		return fmt.Errorf("database error creating chat: %w", err)
	}
	if err := s.notify(ctx, tx, userID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database error committing chat: %w", err)
	}
	return nil
}

// AppendChatEntry appends one turn to a chat history document, creating
// the document when it does not exist yet.
func (s *PostgresStore) AppendChatEntry(ctx context.Context, userID, chatID string, entry models.ChatEntry) error {
	query := `
		INSERT INTO chats (user_id, chat_id, entries)
		VALUES ($1, $2, jsonb_build_array($3::jsonb))
		ON CONFLICT (user_id, chat_id)
		DO UPDATE SET entries = chats.entries || EXCLUDED.entries, updated_at = NOW()`

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting entry transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, query, userID, chatID, entry); err != nil {
		log.Printf("ERROR [PostgresStore] AppendChatEntry: append failed for chat %s: %v", chatID, err)
		return fmt.Errorf("database error appending chat entry: %w", err)
	}
	if err := s.notify(ctx, tx, userID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database error committing chat entry: %w", err)
	}
	return nil
}

// GetChat returns the entries of one chat history document.
// Returns store.ErrNotFound if the chat does not exist.
func (s *PostgresStore) GetChat(ctx context.Context, userID, chatID string) ([]models.ChatEntry, error) {
	query := `
		SELECT entries
		FROM chats
		WHERE user_id = $1 AND chat_id = $2`

	var entries []models.ChatEntry
	err := s.db.QueryRow(ctx, query, userID, chatID).Scan(&entries)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching chat: %w", err)
	}
	return entries, nil
}

// ChatIDs lists the user's chat ids in creation order.
func (s *PostgresStore) ChatIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT chat_id
		FROM chats
		WHERE user_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("database error listing chat ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("database error scanning chat id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating chat ids: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) notify(ctx context.Context, tx pgx.Tx, userID string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, changeChannel, userID); err != nil {
		return fmt.Errorf("database error publishing change notification: %w", err)
	}
	return nil
}
