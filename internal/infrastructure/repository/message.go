package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/termchat/termchat/internal/domain"
)

// Oldest messages are evicted when capacity is exceeded or when their
// retention window has passed.
type messageRepository struct {
	messages map[string][]domain.Message // roomID -> []Message
	capacity uint
	mu       *sync.RWMutex
}

func NewMessageRepository(capacity uint) domain.MessageRepository {
	if capacity == 0 {
		capacity = 500 // sane default
	}
	return &messageRepository{
		capacity: capacity,
		messages: make(map[string][]domain.Message),
		mu:       &sync.RWMutex{},
	}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	if message == nil || message.RoomID == "" {
		return domain.ErrInvalidInput
	}

	// Generate ID if not set
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	if message.RetainUntil.IsZero() {
		message.RetainUntil = message.CreatedAt.Add(domain.MessageRetention)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	roomMsgs, exists := r.messages[message.RoomID]
	if !exists {
		roomMsgs = make([]domain.Message, 0, r.capacity)
	}

	roomMsgs = append(roomMsgs, *message)

	// Evict oldest if over capacity
	if len(roomMsgs) > int(r.capacity) {
		excess := len(roomMsgs) - int(r.capacity)
		roomMsgs = roomMsgs[excess:] // drop oldest
	}

	r.messages[message.RoomID] = roomMsgs

	return nil
}

func (r *messageRepository) GetByRoomID(ctx context.Context, roomID string) ([]domain.Message, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	roomMsgs, exists := r.messages[roomID]
	if !exists || len(roomMsgs) == 0 {
		return []domain.Message{}, nil
	}

	// Return a copy, skipping anything past its retention window
	now := time.Now()
	cpy := make([]domain.Message, 0, len(roomMsgs))
	for _, msg := range roomMsgs {
		if msg.RetainUntil.After(now) {
			cpy = append(cpy, msg)
		}
	}

	return cpy, nil
}
