package bus

import "time"

// Message is the envelope for everything that moves over the bus: chat
// content, system notices, and embedded protocol payloads alike.
type Message struct {
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Type      string    `json:"type,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message type hints. Protocol payloads travel as MessageChat text with
// an embedded JSON object; the Type field is advisory.
const (
	MessageChat   = "chat"
	MessageSystem = "system"
)

// NewMessage builds a chat message with the current timestamp.
func NewMessage(from, text string) Message {
	return Message{From: from, Text: text, Type: MessageChat, Timestamp: time.Now()}
}

// NewSystemMessage builds a system message with the current timestamp.
func NewSystemMessage(from, text string) Message {
	return Message{From: from, Text: text, Type: MessageSystem, Timestamp: time.Now()}
}
