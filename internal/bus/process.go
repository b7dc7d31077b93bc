package bus

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Compile-time check to ensure ProcessBroker implements Broker
var _ Broker = (*ProcessBroker)(nil)

// ProcessBroker dispatches signals within one process. Handlers run
// synchronously on the publisher's goroutine, matching the dispatch
// semantics the application's surfaces expect.
type ProcessBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
}

func NewProcessBroker() *ProcessBroker {
	return &ProcessBroker{
		subs: make(map[string]map[int]Handler),
	}
}

func (b *ProcessBroker) Publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[subject]))
	for _, h := range b.subs[subject] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(subject, data)
	}
	return nil
}

func (b *ProcessBroker) Subscribe(subject string, handler Handler) (func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[subject] == nil {
		b.subs[subject] = make(map[int]Handler)
	}
	b.subs[subject][id] = handler
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.subs[subject], id)
		b.mu.Unlock()
	}
	return unsub, nil
}
