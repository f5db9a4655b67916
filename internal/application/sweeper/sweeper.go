package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/infrastructure/logging"
	"github.com/termchat/termchat/internal/infrastructure/metrics"
)

type Publisher interface {
	PublishSessionExpired(ctx context.Context, session domain.Session) error
	PublishRoomExpired(ctx context.Context, room domain.Room) error
}

// Sweeper periodically retires stale WAITING sessions and ACTIVE rooms.
// It only transitions state; record deletion stays with the backing
// store's TTL mechanism.
type Sweeper struct {
	sessions  domain.SessionRepository
	rooms     domain.RoomRepository
	publisher Publisher
	logger    logging.Logger
	interval  time.Duration

	now func() time.Time
}

func New(
	sessions domain.SessionRepository,
	rooms domain.RoomRepository,
	publisher Publisher,
	logger logging.Logger,
	interval time.Duration,
) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		sessions:  sessions,
		rooms:     rooms,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(logging.Internal, logging.Sweep, "sweeper stopped", nil)
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs both passes once. Each pass tolerates per-entity failures
// so one bad record never aborts the remainder.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()
	s.sweepSessions(ctx, now)
	s.sweepRooms(ctx, now)
}

func (s *Sweeper) sweepSessions(ctx context.Context, now time.Time) {
	stale, err := s.sessions.FindExpired(ctx, now)
	if err != nil {
		s.logger.Error(logging.Internal, logging.Sweep, "failed to find expired sessions", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	for _, session := range stale {
		expired, err := s.sessions.Expire(ctx, session.ID)
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Paired between the scan and the transition.
			continue
		}
		if err != nil {
			s.logger.Warn(logging.Internal, logging.Sweep, "failed to expire session", map[logging.ExtraKey]any{
				logging.SessionID:    session.ID,
				logging.ErrorMessage: err.Error(),
			})
			continue
		}

		metrics.SweepTransitions.WithLabelValues("session").Inc()

		if s.publisher != nil {
			if err := s.publisher.PublishSessionExpired(ctx, *expired); err != nil {
				s.logger.Warn(logging.RabbitMQ, logging.Sweep, "failed to publish session expired", map[logging.ExtraKey]any{
					logging.SessionID:    session.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
		}
	}
}

func (s *Sweeper) sweepRooms(ctx context.Context, now time.Time) {
	stale, err := s.rooms.FindExpired(ctx, now)
	if err != nil {
		s.logger.Error(logging.Internal, logging.Sweep, "failed to find expired rooms", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	for _, room := range stale {
		expired, err := s.rooms.MarkExpired(ctx, room.ID)
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Closed between the scan and the transition.
			continue
		}
		if err != nil {
			s.logger.Warn(logging.Internal, logging.Sweep, "failed to expire room", map[logging.ExtraKey]any{
				logging.RoomID:       room.ID,
				logging.ErrorMessage: err.Error(),
			})
			continue
		}

		metrics.SweepTransitions.WithLabelValues("room").Inc()
		s.completeSessions(ctx, room.ID)

		if s.publisher != nil {
			if err := s.publisher.PublishRoomExpired(ctx, *expired); err != nil {
				s.logger.Warn(logging.RabbitMQ, logging.Sweep, "failed to publish room expired", map[logging.ExtraKey]any{
					logging.RoomID:       room.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
		}
	}
}

// completeSessions cascades room expiry to the bound sessions so they
// do not linger ACTIVE against a terminal room.
func (s *Sweeper) completeSessions(ctx context.Context, roomID string) {
	bound, err := s.sessions.GetByRoomID(ctx, roomID)
	if err != nil {
		s.logger.Warn(logging.Internal, logging.Sweep, "failed to load sessions for completion", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	for _, session := range bound {
		if session.Status != domain.SessionActive {
			continue
		}
		if _, err := s.sessions.Complete(ctx, session.ID); err != nil {
			s.logger.Warn(logging.Internal, logging.Sweep, "failed to complete session", map[logging.ExtraKey]any{
				logging.SessionID:    session.ID,
				logging.ErrorMessage: err.Error(),
			})
		}
	}
}
