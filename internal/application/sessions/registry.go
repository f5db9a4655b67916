package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/infrastructure/logging"
	"github.com/termchat/termchat/internal/infrastructure/metrics"
)

// maxCodeAttempts bounds code allocation retries before failing closed.
const maxCodeAttempts = 5

var ErrCodeExhausted = errors.New("could not allocate a unique session code")

type Publisher interface {
	PublishSessionCreated(ctx context.Context, session domain.Session) error
}

// Registry owns the session lifecycle up to pairing: issuing pairable
// codes and resolving them back to sessions.
type Registry struct {
	sessions  domain.SessionRepository
	publisher Publisher
	logger    logging.Logger
}

func NewRegistry(sessions domain.SessionRepository, publisher Publisher, logger logging.Logger) *Registry {
	return &Registry{
		sessions:  sessions,
		publisher: publisher,
		logger:    logger,
	}
}

// Open issues a new WAITING session with a fresh code for ownerID.
func (r *Registry) Open(ctx context.Context, ownerID, rawType string) (*domain.Session, error) {
	sessionType, err := domain.ParseSessionType(rawType)
	if err != nil {
		return nil, fmt.Errorf("parse session type %q: %w", rawType, err)
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		session, err := domain.NewSession(ownerID, sessionType)
		if err != nil {
			return nil, fmt.Errorf("new session: %w", err)
		}

		err = r.sessions.Create(ctx, session)
		if errors.Is(err, domain.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}

		metrics.SessionsCreated.Inc()
		r.logger.Info(logging.Internal, logging.Pairing, "session opened", map[logging.ExtraKey]any{
			logging.SessionID: session.ID,
			logging.UserID:    ownerID,
		})

		if r.publisher != nil {
			if err := r.publisher.PublishSessionCreated(ctx, *session); err != nil {
				r.logger.Warn(logging.RabbitMQ, logging.Pairing, "failed to publish session created", map[logging.ExtraKey]any{
					logging.SessionID:    session.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
		}

		return session, nil
	}

	return nil, ErrCodeExhausted
}

func (r *Registry) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.sessions.GetByID(ctx, id)
}

func (r *Registry) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	return r.sessions.GetByCode(ctx, code)
}
