package rooms

import (
	"context"
	"fmt"

	"github.com/termchat/termchat/internal/domain"
)

// Registry is the read side of the room lifecycle. Every lookup is
// scoped to the requesting participant.
type Registry struct {
	rooms    domain.RoomRepository
	messages domain.MessageRepository
}

func NewRegistry(rooms domain.RoomRepository, messages domain.MessageRepository) *Registry {
	return &Registry{
		rooms:    rooms,
		messages: messages,
	}
}

// Get returns the room when userID is one of its participants.
func (r *Registry) Get(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	room, err := r.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !room.IsParticipant(userID) {
		return nil, domain.ErrUnauthorized
	}

	return room, nil
}

// History returns the archived chat for the room in creation order.
func (r *Registry) History(ctx context.Context, roomID, userID string) ([]domain.Message, error) {
	if _, err := r.Get(ctx, roomID, userID); err != nil {
		return nil, err
	}

	messages, err := r.messages.GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room history: %w", err)
	}

	return messages, nil
}
