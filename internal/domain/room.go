package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RoomExpiry is how long an ACTIVE room relays events before the
// sweeper retires it.
const RoomExpiry = 120 * time.Minute

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomNotActive     = errors.New("room is not active")
	ErrUnauthorized      = errors.New("not a room participant")
	ErrRoomAlreadyExists = errors.New("room already exists")
)

type RoomStatus string

const (
	RoomActive  RoomStatus = "ACTIVE"
	RoomClosed  RoomStatus = "CLOSED"
	RoomExpired RoomStatus = "EXPIRED"
)

// Room is the bound two-party channel created by a successful pairing.
// The participant set is fixed at creation and never mutated; no relay
// event is authorized once the room is CLOSED or EXPIRED.
type Room struct {
	ID             string      `bson:"_id" json:"id"`
	Type           SessionType `bson:"type" json:"type"`
	Status         RoomStatus  `bson:"status" json:"status"`
	ParticipantIDs []string    `bson:"participant_ids" json:"participantIds"`
	CreatedAt      time.Time   `bson:"created_at" json:"createdAt"`
	ExpiresAt      time.Time   `bson:"expires_at" json:"expiresAt"`
	ClosedAt       *time.Time  `bson:"closed_at,omitempty" json:"closedAt,omitempty"`
}

type RoomRepository interface {
	Create(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)

	// Close transitions ACTIVE -> CLOSED and stamps ClosedAt. The
	// update is conditional on the current status.
	Close(ctx context.Context, id string) (*Room, error)
	// MarkExpired transitions ACTIVE -> EXPIRED and stamps ClosedAt.
	MarkExpired(ctx context.Context, id string) (*Room, error)

	// FindExpired returns ACTIVE rooms whose ExpiresAt is before now.
	FindExpired(ctx context.Context, now time.Time) ([]Room, error)
}

func NewRoom(roomType SessionType, participantA, participantB string) (*Room, error) {
	if participantA == "" || participantB == "" {
		return nil, ErrInvalidInput
	}

	now := time.Now()

	return &Room{
		ID:             uuid.NewString(),
		Type:           roomType,
		Status:         RoomActive,
		ParticipantIDs: []string{participantA, participantB},
		CreatedAt:      now,
		ExpiresAt:      now.Add(RoomExpiry),
	}, nil
}

// IsParticipant is the authorization primitive for every control and
// relay operation touching the room.
func (r *Room) IsParticipant(userID string) bool {
	for _, id := range r.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *Room) IsTerminal() bool {
	return r.Status == RoomClosed || r.Status == RoomExpired
}
