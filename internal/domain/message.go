package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageRetention is the archive horizon written on every message.
// Eviction past RetainUntil belongs to the backing store, never the core.
const MessageRetention = 24 * time.Hour

type MessageKind string

const (
	MessageText   MessageKind = "TEXT"
	MessageSystem MessageKind = "SYSTEM"
)

// Message is an immutable chat archive entry. An empty SenderID marks
// a system message.
type Message struct {
	ID          string      `bson:"_id" json:"id"`
	RoomID      string      `bson:"room_id" json:"roomId"`
	SenderID    string      `bson:"sender_id,omitempty" json:"senderId,omitempty"`
	Content     string      `bson:"content" json:"content"`
	Kind        MessageKind `bson:"kind" json:"kind"`
	CreatedAt   time.Time   `bson:"created_at" json:"createdAt"`
	RetainUntil time.Time   `bson:"retain_until" json:"retainUntil"`
}

type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	// GetByRoomID returns the room history in creation order.
	GetByRoomID(ctx context.Context, roomID string) ([]Message, error)
}

func NewTextMessage(roomID, senderID, content string) *Message {
	now := time.Now()
	return &Message{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		SenderID:    senderID,
		Content:     content,
		Kind:        MessageText,
		CreatedAt:   now,
		RetainUntil: now.Add(MessageRetention),
	}
}

func NewSystemMessage(roomID, content string) *Message {
	now := time.Now()
	return &Message{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		Content:     content,
		Kind:        MessageSystem,
		CreatedAt:   now,
		RetainUntil: now.Add(MessageRetention),
	}
}
