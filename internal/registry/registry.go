// Package registry tracks the active conversation id for one running
// client instance. The registry is an injected value, not module-level
// state, so concurrent clients each carry their own pointer.
package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds the current-conversation pointer. Not persisted; a
// restart repopulates it by re-selecting from the conversation index.
type Registry struct {
	mu      sync.Mutex
	current string
}

func New() *Registry {
	return &Registry{}
}

// NewID generates a fresh conversation identifier. Uniqueness rests on
// timestamp plus random suffix; collisions are negligible but not
// cryptographically excluded.
func NewID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("conv_%d_%s", time.Now().UnixMilli(), suffix)
}

// StartNew generates a fresh identifier and makes it current. Nothing is
// persisted; the conversation exists once its first message is appended.
func (r *Registry) StartNew() string {
	id := NewID()
	r.mu.Lock()
	r.current = id
	r.mu.Unlock()
	return id
}

// Current returns the active conversation id, lazily creating one when
// nothing has been selected yet. Never returns an empty id.
func (r *Registry) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == "" {
		r.current = NewID()
	}
	return r.current
}

// Select makes an externally supplied id current, typically a backend
// chat id or a past conversation picked from the index.
func (r *Registry) Select(id string) {
	r.mu.Lock()
	r.current = id
	r.mu.Unlock()
}
