package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PairingEventType string

const (
	EventSessionCreated PairingEventType = "session_created"
	EventSessionExpired PairingEventType = "session_expired"
	EventRoomPaired     PairingEventType = "room_paired"
	EventRoomJoined     PairingEventType = "room_joined"
	EventRoomClosed     PairingEventType = "room_closed"
	EventRoomExpired    PairingEventType = "room_expired"
)

type PairingAuditLog struct {
	ID        string           `bson:"_id" json:"id"`
	RoomID    string           `bson:"room_id,omitempty" json:"roomId,omitempty"`
	SessionID string           `bson:"session_id,omitempty" json:"sessionId,omitempty"`
	EventType PairingEventType `bson:"event_type" json:"eventType"`
	Timestamp time.Time        `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any   `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type PairingAuditRepository interface {
	Log(ctx context.Context, log *PairingAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]PairingAuditLog, error)
	GetByEventType(ctx context.Context, eventType PairingEventType, from, to time.Time) ([]PairingAuditLog, error)
	EnsureIndexes(ctx context.Context) error
}

func NewSessionCreatedLog(sessionID string, sessionType SessionType, expiresAt time.Time) *PairingAuditLog {
	return &PairingAuditLog{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		EventType: EventSessionCreated,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"type":       string(sessionType),
			"expires_at": expiresAt,
		},
	}
}

func NewSessionExpiredLog(sessionID string) *PairingAuditLog {
	return &PairingAuditLog{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		EventType: EventSessionExpired,
		Timestamp: time.Now(),
	}
}

func NewRoomPairedLog(roomID string, sessionType SessionType, joined bool) *PairingAuditLog {
	eventType := EventRoomPaired
	if joined {
		eventType = EventRoomJoined
	}
	return &PairingAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: eventType,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"type": string(sessionType),
		},
	}
}

func NewRoomClosedLog(roomID string, expired bool) *PairingAuditLog {
	eventType := EventRoomClosed
	if expired {
		eventType = EventRoomExpired
	}
	return &PairingAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
