package ws

import (
	"encoding/json"
	"time"

	"github.com/termchat/termchat/internal/domain"
)

type WSMessage struct {
	Topic  string `json:"topic"`
	RoomID string `json:"roomId"`
	Data   any    `json:"data"`
}

// Payload structs
type ChatPayload struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId,omitempty"`
	Content   string `json:"content"`
	Kind      string `json:"kind"`
	Timestamp string `json:"timestamp"`
}

type TypingPayload struct {
	UserID string `json:"userId"`
}

// SignalPayload wraps a call-signaling body. The relay never looks
// inside Payload; it is forwarded exactly as received.
type SignalPayload struct {
	SenderID string          `json:"senderId"`
	Payload  json.RawMessage `json:"payload"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// inboundFrame is the wire shape of a client event. Sender identity is
// never read from the frame; it comes from the authenticated connection.
type inboundFrame struct {
	Topic   string          `json:"topic"`
	Content string          `json:"content,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// InboundEvent is a parsed client event awaiting authorization.
type InboundEvent struct {
	RoomID   string
	SenderID string
	Topic    string
	Content  string
	Payload  json.RawMessage
}

func NewChatEvent(message domain.Message) *WSMessage {
	return &WSMessage{
		Topic:  TopicMessages,
		RoomID: message.RoomID,
		Data: ChatPayload{
			ID:        message.ID,
			SenderID:  message.SenderID,
			Content:   message.Content,
			Kind:      string(message.Kind),
			Timestamp: message.CreatedAt.Format(time.RFC3339),
		},
	}
}

func NewTypingEvent(roomID, userID string) *WSMessage {
	return &WSMessage{
		Topic:  TopicTyping,
		RoomID: roomID,
		Data: TypingPayload{
			UserID: userID,
		},
	}
}

func NewSignalEvent(topic, roomID, senderID string, payload json.RawMessage) *WSMessage {
	return &WSMessage{
		Topic:  topic,
		RoomID: roomID,
		Data: SignalPayload{
			SenderID: senderID,
			Payload:  payload,
		},
	}
}

func NewError(roomID, message string) *WSMessage {
	return &WSMessage{
		Topic:  ErrorEvent,
		RoomID: roomID,
		Data: ErrorPayload{
			Message: message,
		},
	}
}
