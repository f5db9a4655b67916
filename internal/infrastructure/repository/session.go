package repository

import (
	"context"
	"sync"
	"time"

	"github.com/termchat/termchat/internal/domain"
)

type sessionRepository struct {
	sessions  map[string]*domain.Session // ID -> Session
	codeIndex map[string]string          // Code -> ID, non-terminal sessions only
	mu        *sync.RWMutex
}

func NewSessionRepository() domain.SessionRepository {
	return &sessionRepository{
		sessions:  make(map[string]*domain.Session),
		codeIndex: make(map[string]string),
		mu:        &sync.RWMutex{},
	}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" || session.Code == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return domain.ErrInvalidInput
	}
	if _, exists := r.codeIndex[session.Code]; exists {
		return domain.ErrCodeTaken
	}

	stored := *session
	r.sessions[session.ID] = &stored
	r.codeIndex[session.Code] = session.ID

	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	cpy := *session
	return &cpy, nil
}

func (r *sessionRepository) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	if code == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.codeIndex[code]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	session, exists := r.sessions[id]
	if !exists || session.IsTerminal() {
		return nil, domain.ErrSessionNotFound
	}

	cpy := *session
	return &cpy, nil
}

func (r *sessionRepository) GetByRoomID(ctx context.Context, roomID string) ([]domain.Session, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Session
	for _, session := range r.sessions {
		if session.RoomID == roomID {
			out = append(out, *session)
		}
	}

	return out, nil
}

func (r *sessionRepository) Activate(ctx context.Context, id, roomID string) (*domain.Session, error) {
	if id == "" || roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	if session.Status != domain.SessionWaiting {
		return nil, domain.ErrInvalidTransition
	}

	session.Status = domain.SessionActive
	session.RoomID = roomID

	cpy := *session
	return &cpy, nil
}

func (r *sessionRepository) Expire(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	if session.Status != domain.SessionWaiting {
		return nil, domain.ErrInvalidTransition
	}

	session.Status = domain.SessionExpired
	delete(r.codeIndex, session.Code)

	cpy := *session
	return &cpy, nil
}

func (r *sessionRepository) Complete(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	if session.Status != domain.SessionActive {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now()
	session.Status = domain.SessionCompleted
	session.CompletedAt = &now
	delete(r.codeIndex, session.Code)

	cpy := *session
	return &cpy, nil
}

func (r *sessionRepository) FindExpired(ctx context.Context, now time.Time) ([]domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Session
	for _, session := range r.sessions {
		if session.Status == domain.SessionWaiting && session.ExpiresAt.Before(now) {
			out = append(out, *session)
		}
	}

	return out, nil
}
