// Package index derives per-conversation summaries from the user's full
// message log. The whole grouping is recomputed on every change
// notification; fine at the history sizes this application sees, and
// deliberately not an incremental aggregation.
package index

import (
	"context"
	"log"
	"sync"
	"time"

	"docchat/internal/models"
	"docchat/internal/session"
	"docchat/internal/store"
)

// Summary is one conversation's derived row: the most recent message,
// how many messages the conversation holds, and when it was last active.
// FileName is filled in when an upload session record exists for the id.
type Summary struct {
	ConversationID string
	LastMessage    string
	LastActivity   time.Time
	MessageCount   int
	FileName       string
}

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

// Subscription is a live handle over the derived summary set. The channel
// closes when the subscription ends; callers must Close.
type Subscription struct {
	updates chan []Summary
	cancel  context.CancelFunc
	once    sync.Once
}

// Updates delivers the full summary set, most recently active first, on
// every change. The initial load counts as one delivery.
func (sub *Subscription) Updates() <-chan []Summary {
	return sub.updates
}

// Close stops future notifications. Idempotent.
func (sub *Subscription) Close() {
	sub.once.Do(sub.cancel)
}

// SubscribeToAll establishes a live query over all of the signed-in
// user's messages and re-derives one summary per distinct conversation id
// on every change. Fails with chatlog-style unauthenticated semantics:
// absence of a user is an immediate error, not an empty result.
func (s *Service) SubscribeToAll(ctx context.Context) (*Subscription, error) {
	user, ok := s.session.CurrentUser()
	if !ok {
		return nil, session.ErrNoUser
	}

	watchCtx, cancel := context.WithCancel(ctx)
	ticks, stop, err := s.store.WatchUser(watchCtx, user.UID)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		updates: make(chan []Summary, 1),
		cancel:  cancel,
	}

	go func() {
		defer stop()
		defer close(sub.updates)

		if !s.deliver(watchCtx, sub, user.UID) {
			return
		}
		for range ticks {
			if !s.deliver(watchCtx, sub, user.UID) {
				return
			}
		}
	}()

	return sub, nil
}

func (s *Service) deliver(ctx context.Context, sub *Subscription, userID string) bool {
	msgs, err := s.store.MessagesByUser(ctx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Printf("index: message query failed for user %s: %v", userID, err)
		return true
	}
	sessions, err := s.store.ChatSessionsByUser(ctx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Printf("index: session query failed for user %s: %v", userID, err)
		return true
	}

	summaries := Summarize(msgs, sessions)

	for {
		select {
		case sub.updates <- summaries:
			return true
		case <-ctx.Done():
			return false
		default:
		}
		select {
		case <-sub.updates:
		default:
		}
	}
}

// Summarize groups messages (given newest first) by conversation id. The
// first message seen per group supplies LastMessage and LastActivity;
// every occurrence increments the count. Session records only decorate
// existing groups with the originating file name, they never create
// summary rows of their own.
func Summarize(msgs []models.Message, sessions []models.ChatSession) []Summary {
	fileNames := make(map[string]string, len(sessions))
	for _, c := range sessions {
		if _, ok := fileNames[c.ChatID]; !ok {
			fileNames[c.ChatID] = c.FileName
		}
	}

	byConv := make(map[string]*Summary)
	var order []string
	for _, m := range msgs {
		sum, ok := byConv[m.ConversationID]
		if !ok {
			sum = &Summary{
				ConversationID: m.ConversationID,
				LastMessage:    m.Message,
				LastActivity:   m.Timestamp,
				FileName:       fileNames[m.ConversationID],
			}
			byConv[m.ConversationID] = sum
			order = append(order, m.ConversationID)
		}
		sum.MessageCount++
	}

	out := make([]Summary, 0, len(order))
	for _, id := range order {
		out = append(out, *byConv[id])
	}
	return out
}
