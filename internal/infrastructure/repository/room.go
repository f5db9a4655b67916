package repository

import (
	"context"
	"sync"
	"time"

	"github.com/termchat/termchat/internal/domain"
)

type roomRepository struct {
	rooms map[string]*domain.Room // ID -> Room
	mu    *sync.RWMutex
}

func NewRoomRepository() domain.RoomRepository {
	return &roomRepository{
		rooms: make(map[string]*domain.Room),
		mu:    &sync.RWMutex{},
	}
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	if room == nil || room.ID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.ID]; exists {
		return domain.ErrRoomAlreadyExists
	}

	stored := *room
	stored.ParticipantIDs = append([]string(nil), room.ParticipantIDs...)
	r.rooms[room.ID] = &stored

	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	cpy := *room
	cpy.ParticipantIDs = append([]string(nil), room.ParticipantIDs...)
	return &cpy, nil
}

func (r *roomRepository) Close(ctx context.Context, id string) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}
	if room.Status != domain.RoomActive {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now()
	room.Status = domain.RoomClosed
	room.ClosedAt = &now

	cpy := *room
	cpy.ParticipantIDs = append([]string(nil), room.ParticipantIDs...)
	return &cpy, nil
}

func (r *roomRepository) MarkExpired(ctx context.Context, id string) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}
	if room.Status != domain.RoomActive {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now()
	room.Status = domain.RoomExpired
	room.ClosedAt = &now

	cpy := *room
	cpy.ParticipantIDs = append([]string(nil), room.ParticipantIDs...)
	return &cpy, nil
}

func (r *roomRepository) FindExpired(ctx context.Context, now time.Time) ([]domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Room
	for _, room := range r.rooms {
		if room.Status == domain.RoomActive && room.ExpiresAt.Before(now) {
			cpy := *room
			cpy.ParticipantIDs = append([]string(nil), room.ParticipantIDs...)
			out = append(out, cpy)
		}
	}

	return out, nil
}
