package pairing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/infrastructure/logging"
	"github.com/termchat/termchat/internal/infrastructure/metrics"
)

type Outcome string

const (
	// OutcomeCreated means the pairing produced a new room.
	OutcomeCreated Outcome = "CREATED"
	// OutcomeJoined means a concurrent pairing already bound the mate,
	// and the initiator joined that existing room instead.
	OutcomeJoined Outcome = "JOINED_EXISTING"
)

type Result struct {
	Outcome Outcome
	Room    *domain.Room
}

type Publisher interface {
	PublishRoomPaired(ctx context.Context, room domain.Room, joined bool) error
	PublishRoomClosed(ctx context.Context, room domain.Room) error
}

// Coordinator matches two sessions into one room. The mate session is
// the race-sensitive side: two initiators can target the same code
// concurrently, and exactly one room may ever bind that mate.
type Coordinator struct {
	sessions  domain.SessionRepository
	rooms     domain.RoomRepository
	messages  domain.MessageRepository
	publisher Publisher
	logger    logging.Logger

	mateLocks sync.Map // session ID -> *sync.Mutex
}

func NewCoordinator(
	sessions domain.SessionRepository,
	rooms domain.RoomRepository,
	messages domain.MessageRepository,
	publisher Publisher,
	logger logging.Logger,
) *Coordinator {
	return &Coordinator{
		sessions:  sessions,
		rooms:     rooms,
		messages:  messages,
		publisher: publisher,
		logger:    logger,
	}
}

// lockMate serializes the read-check-write sequence per mate session id.
// The repository transitions are conditional on status as well, so a
// second process instance losing the race falls through to the join path.
func (c *Coordinator) lockMate(id string) func() {
	muAny, _ := c.mateLocks.LoadOrStore(id, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Pair resolves the initiator session by id and the mate by code, then
// binds both into one ACTIVE room. When the mate is already ACTIVE with
// a room, the call degrades to joining that room.
func (c *Coordinator) Pair(ctx context.Context, initiatorSessionID, mateCode string) (*Result, error) {
	initiator, err := c.sessions.GetByID(ctx, initiatorSessionID)
	if err != nil {
		return nil, err
	}

	mate, err := c.sessions.GetByCode(ctx, mateCode)
	if err != nil {
		return nil, err
	}

	if mate.ID == initiator.ID {
		return nil, domain.ErrInvalidInput
	}

	unlock := c.lockMate(mate.ID)
	defer unlock()

	// Re-read under the lock; the snapshot above may predate a
	// concurrent pairing that already consumed the code.
	mate, err = c.sessions.GetByID(ctx, mate.ID)
	if err != nil {
		return nil, err
	}

	if mate.Status == domain.SessionActive && mate.RoomID != "" {
		return c.join(ctx, initiator, mate.RoomID)
	}

	if mate.Status != domain.SessionWaiting || initiator.Status != domain.SessionWaiting {
		metrics.Pairings.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, domain.ErrInvalidTransition
	}
	if initiator.Type != mate.Type {
		metrics.Pairings.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, domain.ErrTypeMismatch
	}

	room, err := domain.NewRoom(mate.Type, initiator.OwnerID, mate.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("new room: %w", err)
	}
	if err := c.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	if _, err := c.sessions.Activate(ctx, mate.ID, room.ID); err != nil {
		// The conditional update lost to another writer. Retire the
		// unused room and fall back to joining the winner's room.
		if _, closeErr := c.rooms.Close(ctx, room.ID); closeErr != nil {
			c.logger.Warn(logging.Internal, logging.Pairing, "failed to retire orphaned room", map[logging.ExtraKey]any{
				logging.RoomID:       room.ID,
				logging.ErrorMessage: closeErr.Error(),
			})
		}

		if !errors.Is(err, domain.ErrInvalidTransition) {
			return nil, fmt.Errorf("activate mate session: %w", err)
		}

		mate, err = c.sessions.GetByID(ctx, mate.ID)
		if err != nil {
			return nil, err
		}
		if mate.Status != domain.SessionActive || mate.RoomID == "" {
			metrics.Pairings.WithLabelValues(metrics.OutcomeRejected).Inc()
			return nil, domain.ErrInvalidTransition
		}

		return c.join(ctx, initiator, mate.RoomID)
	}

	if _, err := c.sessions.Activate(ctx, initiator.ID, room.ID); err != nil {
		// The mate is already bound to a room the initiator will never
		// enter. Unwind both so the mate is not left hijacked.
		c.unwind(ctx, room.ID, mate.ID)
		metrics.Pairings.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, fmt.Errorf("activate initiator session: %w", err)
	}

	c.archiveSystemMessage(ctx, room.ID, "Secure channel established.")

	metrics.Pairings.WithLabelValues(metrics.OutcomeCreated).Inc()
	c.logger.Info(logging.Internal, logging.Pairing, "room paired", map[logging.ExtraKey]any{
		logging.RoomID:    room.ID,
		logging.SessionID: initiator.ID,
	})

	if c.publisher != nil {
		if err := c.publisher.PublishRoomPaired(ctx, *room, false); err != nil {
			c.logger.Warn(logging.RabbitMQ, logging.Pairing, "failed to publish room paired", map[logging.ExtraKey]any{
				logging.RoomID:       room.ID,
				logging.ErrorMessage: err.Error(),
			})
		}
	}

	return &Result{Outcome: OutcomeCreated, Room: room}, nil
}

// unwind retires a half-formed room and completes the mate session that
// was activated into it. The mate code is consumed either way; leaving
// the pair dangling would park the mate in a room nobody attaches to.
func (c *Coordinator) unwind(ctx context.Context, roomID, mateID string) {
	if _, err := c.rooms.Close(ctx, roomID); err != nil {
		c.logger.Warn(logging.Internal, logging.Pairing, "failed to retire half-formed room", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
	}

	if _, err := c.sessions.Complete(ctx, mateID); err != nil {
		c.logger.Warn(logging.Internal, logging.Pairing, "failed to release mate session", map[logging.ExtraKey]any{
			logging.SessionID:    mateID,
			logging.ErrorMessage: err.Error(),
		})
	}
}

func (c *Coordinator) join(ctx context.Context, initiator *domain.Session, roomID string) (*Result, error) {
	room, err := c.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.IsTerminal() {
		metrics.Pairings.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, domain.ErrRoomNotActive
	}
	if initiator.Type != room.Type {
		metrics.Pairings.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, domain.ErrTypeMismatch
	}

	if _, err := c.sessions.Activate(ctx, initiator.ID, room.ID); err != nil {
		return nil, fmt.Errorf("activate initiator session: %w", err)
	}

	metrics.Pairings.WithLabelValues(metrics.OutcomeJoined).Inc()
	c.logger.Info(logging.Internal, logging.Pairing, "joined existing room", map[logging.ExtraKey]any{
		logging.RoomID:    room.ID,
		logging.SessionID: initiator.ID,
	})

	if c.publisher != nil {
		if err := c.publisher.PublishRoomPaired(ctx, *room, true); err != nil {
			c.logger.Warn(logging.RabbitMQ, logging.Pairing, "failed to publish room joined", map[logging.ExtraKey]any{
				logging.RoomID:       room.ID,
				logging.ErrorMessage: err.Error(),
			})
		}
	}

	return &Result{Outcome: OutcomeJoined, Room: room}, nil
}

// ValidateConsent reports whether userID is a participant of the room.
func (c *Coordinator) ValidateConsent(ctx context.Context, userID, roomID string) (bool, error) {
	room, err := c.rooms.GetByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	return room.IsParticipant(userID), nil
}

// Close retires the room on behalf of a participant and completes its
// bound sessions.
func (c *Coordinator) Close(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	room, err := c.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsParticipant(userID) {
		return nil, domain.ErrUnauthorized
	}

	closed, err := c.rooms.Close(ctx, roomID)
	if errors.Is(err, domain.ErrInvalidTransition) {
		return nil, domain.ErrRoomNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("close room: %w", err)
	}

	c.completeSessions(ctx, roomID)
	c.archiveSystemMessage(ctx, roomID, "Channel closed.")

	c.logger.Info(logging.Internal, logging.Pairing, "room closed", map[logging.ExtraKey]any{
		logging.RoomID: roomID,
		logging.UserID: userID,
	})

	if c.publisher != nil {
		if err := c.publisher.PublishRoomClosed(ctx, *closed); err != nil {
			c.logger.Warn(logging.RabbitMQ, logging.Pairing, "failed to publish room closed", map[logging.ExtraKey]any{
				logging.RoomID:       roomID,
				logging.ErrorMessage: err.Error(),
			})
		}
	}

	return closed, nil
}

func (c *Coordinator) completeSessions(ctx context.Context, roomID string) {
	bound, err := c.sessions.GetByRoomID(ctx, roomID)
	if err != nil {
		c.logger.Warn(logging.Internal, logging.Pairing, "failed to load sessions for completion", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	for _, session := range bound {
		if session.Status != domain.SessionActive {
			continue
		}
		if _, err := c.sessions.Complete(ctx, session.ID); err != nil {
			c.logger.Warn(logging.Internal, logging.Pairing, "failed to complete session", map[logging.ExtraKey]any{
				logging.SessionID:    session.ID,
				logging.ErrorMessage: err.Error(),
			})
		}
	}
}

func (c *Coordinator) archiveSystemMessage(ctx context.Context, roomID, content string) {
	if err := c.messages.Create(ctx, domain.NewSystemMessage(roomID, content)); err != nil {
		c.logger.Warn(logging.Internal, logging.Archive, "failed to archive system message", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
	}
}
