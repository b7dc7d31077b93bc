// Package bus carries cross-component signals: "a new chat was created"
// and "a conversation was selected". Components subscribe directly to a
// Broker instead of listening on ambient global events; payload shapes
// are checked at compile time through the typed helpers in events.go.
package bus

// Subjects for the application's broadcast signals.
const (
	SubjectChatCreated          = "docchat.chat.created"
	SubjectConversationSelected = "docchat.conversation.selected"
)

// Handler receives the raw payload published on a subject.
type Handler func(subject string, data []byte)

// Broker is the publish/subscribe surface. The in-process implementation
// serves a single client; the NATS one fans out across instances.
type Broker interface {
	Publish(subject string, payload any) error
	// Subscribe registers a handler and returns an unsubscribe function.
	Subscribe(subject string, handler Handler) (func(), error)
}
