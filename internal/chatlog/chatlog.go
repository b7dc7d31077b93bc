// Package chatlog is the client's access layer for the append-only
// message log: appending question/answer pairs stamped with the user and
// conversation, and live-querying one conversation's ordered history.
package chatlog

import (
	"context"
	"log"
	"sync"

	"docchat/internal/models"
	"docchat/internal/session"
	"docchat/internal/store"
)

// ErrUnauthenticated is returned when a user-scoped operation is invoked
// with nobody signed in. Raised before any store activity.
var ErrUnauthenticated = session.ErrNoUser

type Service struct {
	store   store.Store
	session *session.Store
}

func NewService(st store.Store, sess *session.Store) *Service {
	return &Service{
		store:   st,
		session: sess,
	}
}

// Append writes one message/response pair stamped with the signed-in
// user's id and email, the given conversation id, and a store-assigned
// timestamp. Returns the stored record including its assigned id.
func (s *Service) Append(ctx context.Context, conversationID, message, response string) (*models.Message, error) {
	user, ok := s.session.CurrentUser()
	if !ok {
		return nil, ErrUnauthenticated
	}

	return s.store.AppendMessage(ctx, store.AppendMessageParams{
		UserID:         user.UID,
		UserEmail:      user.Email,
		Message:        message,
		Response:       response,
		ConversationID: conversationID,
	})
}

// RecordSession writes the explicit session record created at document
// upload time (file name plus status text).
func (s *Service) RecordSession(ctx context.Context, chatID, fileName, lastMessage string) (*models.ChatSession, error) {
	user, ok := s.session.CurrentUser()
	if !ok {
		return nil, ErrUnauthenticated
	}

	return s.store.CreateChatSession(ctx, store.CreateChatSessionParams{
		UserID:      user.UID,
		ChatID:      chatID,
		FileName:    fileName,
		LastMessage: lastMessage,
	})
}

// Subscription is a live query handle. Updates carries the full ordered
// snapshot after every change; the channel closes when the subscription
// ends. Callers must Close to release the underlying watch.
type Subscription struct {
	updates chan []models.Message
	cancel  context.CancelFunc
	once    sync.Once
}

// Updates delivers the full snapshot, oldest first, on every change.
// The initial load counts as one delivery.
func (sub *Subscription) Updates() <-chan []models.Message {
	return sub.updates
}

// Close stops future notifications. Idempotent.
func (sub *Subscription) Close() {
	sub.once.Do(sub.cancel)
}

// SubscribeToConversation establishes a live query over the signed-in
// user's messages in one conversation, ordered by timestamp ascending.
// Fails with ErrUnauthenticated before any store activity when nobody is
// signed in.
func (s *Service) SubscribeToConversation(ctx context.Context, conversationID string) (*Subscription, error) {
	user, ok := s.session.CurrentUser()
	if !ok {
		return nil, ErrUnauthenticated
	}

	watchCtx, cancel := context.WithCancel(ctx)
	ticks, stop, err := s.store.WatchUser(watchCtx, user.UID)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		updates: make(chan []models.Message, 1),
		cancel:  cancel,
	}

	go func() {
		defer stop()
		defer close(sub.updates)

		// Initial snapshot, then once per change tick.
		if !s.deliver(watchCtx, sub, user.UID, conversationID) {
			return
		}
		for range ticks {
			if !s.deliver(watchCtx, sub, user.UID, conversationID) {
				return
			}
		}
	}()

	return sub, nil
}

// deliver queries the conversation snapshot and replaces any pending
// update so a slow consumer always sees the freshest state. Returns false
// when the subscription context ended.
func (s *Service) deliver(ctx context.Context, sub *Subscription, userID, conversationID string) bool {
	msgs, err := s.store.MessagesByConversation(ctx, userID, conversationID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Printf("chatlog: conversation query failed for %s: %v", conversationID, err)
		return true
	}

	for {
		select {
		case sub.updates <- msgs:
			return true
		case <-ctx.Done():
			return false
		default:
		}
		// Drop the stale pending snapshot and retry.
		select {
		case <-sub.updates:
		default:
		}
	}
}
