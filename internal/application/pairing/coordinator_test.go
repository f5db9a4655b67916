package pairing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/infrastructure/logging"
	"github.com/termchat/termchat/internal/infrastructure/repository"
)

type fixture struct {
	sessions    domain.SessionRepository
	rooms       domain.RoomRepository
	messages    domain.MessageRepository
	coordinator *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sessions := repository.NewSessionRepository()
	rooms := repository.NewRoomRepository()
	messages := repository.NewMessageRepository(100)
	return &fixture{
		sessions:    sessions,
		rooms:       rooms,
		messages:    messages,
		coordinator: NewCoordinator(sessions, rooms, messages, nil, logging.NewNop()),
	}
}

func (f *fixture) openSession(t *testing.T, ownerID string, sessionType domain.SessionType) *domain.Session {
	t.Helper()
	session, err := domain.NewSession(ownerID, sessionType)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Create(context.Background(), session))
	return session
}

func TestPair_CreatesRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mate := f.openSession(t, "alice", domain.SessionTypeChat)
	initiator := f.openSession(t, "bob", domain.SessionTypeChat)

	result, err := f.coordinator.Pair(ctx, initiator.ID, mate.Code)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	require.NotNil(t, result.Room)

	assert.Equal(t, domain.RoomActive, result.Room.Status)
	assert.ElementsMatch(t, []string{"alice", "bob"}, result.Room.ParticipantIDs)

	for _, id := range []string{mate.ID, initiator.ID} {
		session, err := f.sessions.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionActive, session.Status)
		assert.Equal(t, result.Room.ID, session.RoomID)
	}

	history, err := f.messages.GetByRoomID(ctx, result.Room.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.MessageSystem, history[0].Kind)
}

func TestPair_UnknownCode(t *testing.T) {
	f := newFixture(t)
	initiator := f.openSession(t, "bob", domain.SessionTypeChat)

	_, err := f.coordinator.Pair(context.Background(), initiator.ID, "ZZZZZZ")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// A failed pairing leaves the initiator pairable.
	session, err := f.sessions.GetByID(context.Background(), initiator.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionWaiting, session.Status)
}

func TestPair_UnknownInitiator(t *testing.T) {
	f := newFixture(t)
	mate := f.openSession(t, "alice", domain.SessionTypeChat)

	_, err := f.coordinator.Pair(context.Background(), "missing", mate.Code)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestPair_OwnCode(t *testing.T) {
	f := newFixture(t)
	session := f.openSession(t, "alice", domain.SessionTypeChat)

	_, err := f.coordinator.Pair(context.Background(), session.ID, session.Code)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPair_TypeMismatch(t *testing.T) {
	f := newFixture(t)

	mate := f.openSession(t, "alice", domain.SessionTypeVideo)
	initiator := f.openSession(t, "bob", domain.SessionTypeChat)

	_, err := f.coordinator.Pair(context.Background(), initiator.ID, mate.Code)
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestPair_InitiatorAlreadyPaired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mate := f.openSession(t, "alice", domain.SessionTypeChat)
	initiator := f.openSession(t, "bob", domain.SessionTypeChat)
	_, err := f.sessions.Activate(ctx, initiator.ID, "some-room")
	require.NoError(t, err)

	_, err = f.coordinator.Pair(ctx, initiator.ID, mate.Code)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPair_JoinsExistingRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mate := f.openSession(t, "alice", domain.SessionTypeChat)
	first := f.openSession(t, "bob", domain.SessionTypeChat)
	second := f.openSession(t, "bob", domain.SessionTypeChat)

	created, err := f.coordinator.Pair(ctx, first.ID, mate.Code)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, created.Outcome)

	// The mate is ACTIVE now; a retry against the same code joins the
	// room the first pairing produced.
	joined, err := f.coordinator.Pair(ctx, second.ID, mate.Code)
	require.NoError(t, err)
	assert.Equal(t, OutcomeJoined, joined.Outcome)
	assert.Equal(t, created.Room.ID, joined.Room.ID)

	session, err := f.sessions.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Room.ID, session.RoomID)
}

// initiatorActivateFails passes all transitions through except a single
// session's Activate, which fails as if the store dropped the write.
type initiatorActivateFails struct {
	domain.SessionRepository
	failID string
}

func (r *initiatorActivateFails) Activate(ctx context.Context, id, roomID string) (*domain.Session, error) {
	if id == r.failID {
		return nil, errors.New("store unavailable")
	}
	return r.SessionRepository.Activate(ctx, id, roomID)
}

func TestPair_InitiatorActivateFailureReleasesMate(t *testing.T) {
	ctx := context.Background()

	sessions := repository.NewSessionRepository()
	rooms := repository.NewRoomRepository()
	messages := repository.NewMessageRepository(100)

	mate, err := domain.NewSession("alice", domain.SessionTypeChat)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, mate))

	initiator, err := domain.NewSession("bob", domain.SessionTypeChat)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, initiator))

	flaky := &initiatorActivateFails{SessionRepository: sessions, failID: initiator.ID}
	coordinator := NewCoordinator(flaky, rooms, messages, nil, logging.NewNop())

	_, err = coordinator.Pair(ctx, initiator.ID, mate.Code)
	require.Error(t, err)

	// The mate must not stay hijacked in a room nobody will ever enter.
	mateAfter, err := sessions.GetByID(ctx, mate.ID)
	require.NoError(t, err)
	assert.NotEqual(t, domain.SessionActive, mateAfter.Status)

	require.NotEmpty(t, mateAfter.RoomID)
	room, err := rooms.GetByID(ctx, mateAfter.RoomID)
	require.NoError(t, err)
	assert.True(t, room.IsTerminal())
}

func TestPair_ConcurrentInitiatorsOneRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mate := f.openSession(t, "alice", domain.SessionTypeChat)
	first := f.openSession(t, "bob", domain.SessionTypeChat)
	second := f.openSession(t, "bob", domain.SessionTypeChat)

	results := make([]*Result, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i], errs[i] = f.coordinator.Pair(ctx, id, mate.Code)
		}(i, id)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	var created, joined int
	for _, result := range results {
		switch result.Outcome {
		case OutcomeCreated:
			created++
		case OutcomeJoined:
			joined++
		}
	}
	assert.Equal(t, 1, created, "exactly one pairing may create the room")
	assert.Equal(t, 1, joined)
	assert.Equal(t, results[0].Room.ID, results[1].Room.ID)

	mateSession, err := f.sessions.GetByID(ctx, mate.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, mateSession.Status)
	assert.Equal(t, results[0].Room.ID, mateSession.RoomID)
}

func TestValidateConsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mate := f.openSession(t, "alice", domain.SessionTypeChat)
	initiator := f.openSession(t, "bob", domain.SessionTypeChat)

	result, err := f.coordinator.Pair(ctx, initiator.ID, mate.Code)
	require.NoError(t, err)

	ok, err := f.coordinator.ValidateConsent(ctx, "alice", result.Room.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.coordinator.ValidateConsent(ctx, "mallory", result.Room.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mate := f.openSession(t, "alice", domain.SessionTypeChat)
	initiator := f.openSession(t, "bob", domain.SessionTypeChat)

	result, err := f.coordinator.Pair(ctx, initiator.ID, mate.Code)
	require.NoError(t, err)
	roomID := result.Room.ID

	closed, err := f.coordinator.Close(ctx, roomID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	// Both sessions complete with the room.
	for _, id := range []string{mate.ID, initiator.ID} {
		session, err := f.sessions.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionCompleted, session.Status)
	}

	history, err := f.messages.GetByRoomID(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.MessageSystem, history[1].Kind)

	// Closing twice conflicts, closing as a stranger is unauthorized.
	_, err = f.coordinator.Close(ctx, roomID, "alice")
	assert.ErrorIs(t, err, domain.ErrRoomNotActive)

	_, err = f.coordinator.Close(ctx, roomID, "mallory")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
