// Package memory provides an in-memory Store implementation used by tests
// and by zero-config local runs (no DATABASE_URL set).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"docchat/internal/models"
	"docchat/internal/store"
)

// Compile-time check to ensure MemoryStore implements store.Store
var _ store.Store = (*MemoryStore)(nil)

type watcher struct {
	userID string
	ch     chan struct{}
}

// MemoryStore keeps all collections in process memory. Safe for concurrent
// use; write timestamps are strictly increasing per store instance so that
// retrieval order is stable even for writes within the same clock tick.
type MemoryStore struct {
	mu sync.RWMutex

	usersByEmail map[string]*models.User
	messages     []models.Message
	sessions     []models.ChatSession
	chats        map[string][]models.ChatEntry // key: userID + "/" + chatID
	chatOrder    map[string][]string           // userID -> chatIDs in creation order

	lastTS      time.Time
	nextWatch   int
	watchers    map[int]watcher
	nowOverride func() time.Time // test hook
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		usersByEmail: make(map[string]*models.User),
		chats:        make(map[string][]models.ChatEntry),
		chatOrder:    make(map[string][]string),
		watchers:     make(map[int]watcher),
	}
}

func (s *MemoryStore) now() time.Time {
	if s.nowOverride != nil {
		return s.nowOverride()
	}
	return time.Now().UTC()
}

// nextTimestamp returns a server-assigned timestamp that never moves
// backwards. Callers must hold the write lock.
func (s *MemoryStore) nextTimestamp() time.Time {
	ts := s.now()
	if !ts.After(s.lastTS) {
		ts = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = ts
	return ts
}

// notify delivers a coalesced change tick to every watcher of userID.
// Callers must hold at least the read lock.
func (s *MemoryStore) notify(userID string) {
	for _, w := range s.watchers {
		if w.userID != userID {
			continue
		}
		select {
		case w.ch <- struct{}{}:
		default:
		}
	}
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.usersByEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cp := *user
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.usersByEmail[user.Email] = &cp
	return nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, arg store.AppendMessageParams) (*models.Message, error) {
	s.mu.Lock()
	msg := models.Message{
		ID:             uuid.NewString(),
		UserID:         arg.UserID,
		UserEmail:      arg.UserEmail,
		Message:        arg.Message,
		Response:       arg.Response,
		ConversationID: arg.ConversationID,
		Timestamp:      s.nextTimestamp(),
	}
	s.messages = append(s.messages, msg)
	s.notify(arg.UserID)
	s.mu.Unlock()

	return &msg, nil
}

func (s *MemoryStore) MessagesByConversation(ctx context.Context, userID, conversationID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Message
	for _, m := range s.messages {
		if m.UserID == userID && m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) MessagesByUser(ctx context.Context, userID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Message
	for _, m := range s.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) CreateChatSession(ctx context.Context, arg store.CreateChatSessionParams) (*models.ChatSession, error) {
	s.mu.Lock()
	sess := models.ChatSession{
		ID:          uuid.NewString(),
		UserID:      arg.UserID,
		ChatID:      arg.ChatID,
		FileName:    arg.FileName,
		CreatedAt:   s.nextTimestamp(),
		LastMessage: arg.LastMessage,
	}
	s.sessions = append(s.sessions, sess)
	s.notify(arg.UserID)
	s.mu.Unlock()

	return &sess, nil
}

func (s *MemoryStore) ChatSessionsByUser(ctx context.Context, userID string) ([]models.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ChatSession
	for _, c := range s.sessions {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func chatKey(userID, chatID string) string { return userID + "/" + chatID }

func (s *MemoryStore) CreateChat(ctx context.Context, userID, chatID string, entries []models.ChatEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chatKey(userID, chatID)
	if _, exists := s.chats[key]; !exists {
		s.chatOrder[userID] = append(s.chatOrder[userID], chatID)
	}
	s.chats[key] = append([]models.ChatEntry(nil), entries...)
	s.notify(userID)
	return nil
}

func (s *MemoryStore) AppendChatEntry(ctx context.Context, userID, chatID string, entry models.ChatEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chatKey(userID, chatID)
	if _, exists := s.chats[key]; !exists {
		s.chatOrder[userID] = append(s.chatOrder[userID], chatID)
	}
	s.chats[key] = append(s.chats[key], entry)
	s.notify(userID)
	return nil
}

func (s *MemoryStore) GetChat(ctx context.Context, userID, chatID string) ([]models.ChatEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.chats[chatKey(userID, chatID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]models.ChatEntry(nil), entries...), nil
}

func (s *MemoryStore) ChatIDs(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.chatOrder[userID]...), nil
}

func (s *MemoryStore) WatchUser(ctx context.Context, userID string) (<-chan struct{}, func(), error) {
	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	w := watcher{userID: userID, ch: make(chan struct{}, 1)}
	s.watchers[id] = w
	s.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
			close(w.ch)
		})
	}

	go func() {
		<-ctx.Done()
		stop()
	}()

	return w.ch, stop, nil
}
