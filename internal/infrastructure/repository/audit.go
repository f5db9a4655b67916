package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/termchat/termchat/internal/domain"
)

type auditRepository struct {
	logs []domain.PairingAuditLog
	mu   *sync.RWMutex
}

func NewAuditRepository() domain.PairingAuditRepository {
	return &auditRepository{
		mu: &sync.RWMutex{},
	}
}

func (r *auditRepository) Log(ctx context.Context, log *domain.PairingAuditLog) error {
	if log == nil || log.ID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = append(r.logs, *log)

	return nil
}

func (r *auditRepository) GetByRoomID(ctx context.Context, roomID string, limit int) ([]domain.PairingAuditLog, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.PairingAuditLog
	for _, log := range r.logs {
		if log.RoomID == roomID {
			out = append(out, log)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *auditRepository) GetByEventType(ctx context.Context, eventType domain.PairingEventType, from, to time.Time) ([]domain.PairingAuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.PairingAuditLog
	for _, log := range r.logs {
		if log.EventType != eventType {
			continue
		}
		if log.Timestamp.Before(from) || log.Timestamp.After(to) {
			continue
		}
		out = append(out, log)
	}

	return out, nil
}

func (r *auditRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}
