package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termchat/termchat/internal/domain"
)

func newWaitingSession(t *testing.T, ownerID string) *domain.Session {
	t.Helper()
	session, err := domain.NewSession(ownerID, domain.SessionTypeChat)
	require.NoError(t, err)
	return session
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	session := newWaitingSession(t, "alice")
	require.NoError(t, repo.Create(ctx, session))

	byID, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Code, byID.Code)

	byCode, err := repo.GetByCode(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, session.ID, byCode.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepository_CodeTaken(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	first := newWaitingSession(t, "alice")
	require.NoError(t, repo.Create(ctx, first))

	second := newWaitingSession(t, "bob")
	second.Code = first.Code
	assert.ErrorIs(t, repo.Create(ctx, second), domain.ErrCodeTaken)
}

func TestSessionRepository_ActivateIsConditional(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	session := newWaitingSession(t, "alice")
	require.NoError(t, repo.Create(ctx, session))

	active, err := repo.Activate(ctx, session.ID, "room-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, active.Status)
	assert.Equal(t, "room-1", active.RoomID)

	// A second activation must lose.
	_, err = repo.Activate(ctx, session.ID, "room-2")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "room-1", stored.RoomID)
}

func TestSessionRepository_CodeResolvesWhileActive(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	session := newWaitingSession(t, "alice")
	require.NoError(t, repo.Create(ctx, session))

	_, err := repo.Activate(ctx, session.ID, "room-1")
	require.NoError(t, err)

	// Consumed by pairing but still resolvable until terminal.
	byCode, err := repo.GetByCode(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, byCode.Status)

	_, err = repo.Complete(ctx, session.ID)
	require.NoError(t, err)

	_, err = repo.GetByCode(ctx, session.Code)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepository_ExpireFreesCode(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	session := newWaitingSession(t, "alice")
	require.NoError(t, repo.Create(ctx, session))

	expired, err := repo.Expire(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionExpired, expired.Status)

	_, err = repo.GetByCode(ctx, session.Code)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The code can be reissued now.
	next := newWaitingSession(t, "bob")
	next.Code = session.Code
	assert.NoError(t, repo.Create(ctx, next))

	// Terminal sessions never transition again.
	_, err = repo.Expire(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = repo.Activate(ctx, session.ID, "room-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSessionRepository_Complete(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	session := newWaitingSession(t, "alice")
	require.NoError(t, repo.Create(ctx, session))

	// WAITING cannot complete directly.
	_, err := repo.Complete(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = repo.Activate(ctx, session.ID, "room-1")
	require.NoError(t, err)

	completed, err := repo.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
}

func TestSessionRepository_FindExpired(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	stale := newWaitingSession(t, "alice")
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, stale))

	fresh := newWaitingSession(t, "bob")
	require.NoError(t, repo.Create(ctx, fresh))

	paired := newWaitingSession(t, "carol")
	paired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, paired))
	_, err := repo.Activate(ctx, paired.ID, "room-1")
	require.NoError(t, err)

	found, err := repo.FindExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}

func TestSessionRepository_GetByRoomID(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	a := newWaitingSession(t, "alice")
	b := newWaitingSession(t, "bob")
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	_, err := repo.Activate(ctx, a.ID, "room-1")
	require.NoError(t, err)
	_, err = repo.Activate(ctx, b.ID, "room-1")
	require.NoError(t, err)

	bound, err := repo.GetByRoomID(ctx, "room-1")
	require.NoError(t, err)
	assert.Len(t, bound, 2)
}
