package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/infrastructure/logging"
	"github.com/termchat/termchat/internal/infrastructure/repository"
)

// collidingRepository wraps the in-memory store and fails the first
// N creates with ErrCodeTaken to simulate code collisions.
type collidingRepository struct {
	domain.SessionRepository
	failures int
}

func (r *collidingRepository) Create(ctx context.Context, session *domain.Session) error {
	if r.failures > 0 {
		r.failures--
		return domain.ErrCodeTaken
	}
	return r.SessionRepository.Create(ctx, session)
}

type capturingPublisher struct {
	published []domain.Session
}

func (p *capturingPublisher) PublishSessionCreated(ctx context.Context, session domain.Session) error {
	p.published = append(p.published, session)
	return nil
}

func TestRegistryOpen(t *testing.T) {
	publisher := &capturingPublisher{}
	registry := NewRegistry(repository.NewSessionRepository(), publisher, logging.NewNop())

	session, err := registry.Open(context.Background(), "alice", "chat")
	require.NoError(t, err)

	assert.Equal(t, domain.SessionTypeChat, session.Type)
	assert.Equal(t, domain.SessionWaiting, session.Status)
	assert.NotEmpty(t, session.Code)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, session.ID, publisher.published[0].ID)
}

func TestRegistryOpen_UnknownType(t *testing.T) {
	registry := NewRegistry(repository.NewSessionRepository(), nil, logging.NewNop())

	_, err := registry.Open(context.Background(), "alice", "smoke-signals")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistryOpen_RetriesOnCodeCollision(t *testing.T) {
	repo := &collidingRepository{
		SessionRepository: repository.NewSessionRepository(),
		failures:          maxCodeAttempts - 1,
	}
	registry := NewRegistry(repo, nil, logging.NewNop())

	session, err := registry.Open(context.Background(), "alice", "chat")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Code)
}

func TestRegistryOpen_FailsClosedWhenExhausted(t *testing.T) {
	repo := &collidingRepository{
		SessionRepository: repository.NewSessionRepository(),
		failures:          maxCodeAttempts,
	}
	registry := NewRegistry(repo, nil, logging.NewNop())

	_, err := registry.Open(context.Background(), "alice", "chat")
	assert.ErrorIs(t, err, ErrCodeExhausted)
}

func TestRegistryGetters(t *testing.T) {
	registry := NewRegistry(repository.NewSessionRepository(), nil, logging.NewNop())
	ctx := context.Background()

	session, err := registry.Open(ctx, "alice", "video")
	require.NoError(t, err)

	byID, err := registry.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Code, byID.Code)
	assert.WithinDuration(t, time.Now().Add(domain.SessionExpiry), byID.ExpiresAt, time.Second)

	byCode, err := registry.GetByCode(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, session.ID, byCode.ID)
}
