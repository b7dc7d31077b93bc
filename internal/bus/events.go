package bus

import (
	"encoding/json"
	"log"
)

// ChatCreated signals that a fresh conversation was started. No payload.
type ChatCreated struct{}

// ConversationSelected signals that the user picked a past conversation.
type ConversationSelected struct {
	ConversationID string `json:"conversation_id"`
}

// PublishChatCreated broadcasts a ChatCreated signal.
func PublishChatCreated(b Broker) error {
	return b.Publish(SubjectChatCreated, ChatCreated{})
}

// PublishConversationSelected broadcasts the selected conversation id.
func PublishConversationSelected(b Broker, conversationID string) error {
	return b.Publish(SubjectConversationSelected, ConversationSelected{ConversationID: conversationID})
}

// OnChatCreated subscribes fn to ChatCreated signals.
func OnChatCreated(b Broker, fn func()) (func(), error) {
	return b.Subscribe(SubjectChatCreated, func(_ string, _ []byte) {
		fn()
	})
}

// OnConversationSelected subscribes fn to ConversationSelected signals.
// Undecodable payloads are logged and dropped.
func OnConversationSelected(b Broker, fn func(ConversationSelected)) (func(), error) {
	return b.Subscribe(SubjectConversationSelected, func(_ string, data []byte) {
		var ev ConversationSelected
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("bus: dropping malformed conversation.selected payload: %v", err)
			return
		}
		fn(ev)
	})
}
