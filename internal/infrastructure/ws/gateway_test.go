package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/infrastructure/logging"
	"github.com/termchat/termchat/internal/infrastructure/repository"
)

type failingArchive struct {
	domain.MessageRepository
}

func (f *failingArchive) Create(ctx context.Context, message *domain.Message) error {
	return errors.New("archive down")
}

func newTestClient(userID, roomID string, buffer int) *Client {
	return &Client{
		Message: make(chan *WSMessage, buffer),
		UserID:  userID,
		RoomID:  roomID,
		done:    make(chan struct{}),
		logger:  logging.NewNop(),
	}
}

func newTestGateway(t *testing.T, messages domain.MessageRepository) (*Gateway, *domain.Room) {
	t.Helper()

	rooms := repository.NewRoomRepository()
	if messages == nil {
		messages = repository.NewMessageRepository(100)
	}

	room, err := domain.NewRoom(domain.SessionTypeChat, "alice", "bob")
	require.NoError(t, err)
	require.NoError(t, rooms.Create(context.Background(), room))

	return NewGateway(rooms, messages, logging.NewNop()), room
}

func drain(cl *Client) []*WSMessage {
	var out []*WSMessage
	for {
		select {
		case msg := <-cl.Message:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHandleEvent_ChatArchivedAndBroadcast(t *testing.T) {
	gw, room := newTestGateway(t, nil)
	ctx := context.Background()

	alice := newTestClient("alice", room.ID, 8)
	bob := newTestClient("bob", room.ID, 8)
	gw.roomMgr.AddClient(alice)
	gw.roomMgr.AddClient(bob)

	gw.handleEvent(ctx, &InboundEvent{
		RoomID:   room.ID,
		SenderID: "alice",
		Topic:    TopicMessages,
		Content:  "hello bob",
	})

	// Both participants receive the event, sender included.
	for _, cl := range []*Client{alice, bob} {
		received := drain(cl)
		require.Len(t, received, 1)
		assert.Equal(t, TopicMessages, received[0].Topic)
	}

	// The archive write runs off the event loop; wait for it to land.
	require.Eventually(t, func() bool {
		history, err := gw.messages.GetByRoomID(ctx, room.ID)
		return err == nil && len(history) == 1
	}, time.Second, 10*time.Millisecond)

	history, err := gw.messages.GetByRoomID(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello bob", history[0].Content)
	assert.Equal(t, "alice", history[0].SenderID)
}

type slowArchive struct {
	domain.MessageRepository
	release chan struct{}
}

func (s *slowArchive) Create(ctx context.Context, message *domain.Message) error {
	<-s.release
	return s.MessageRepository.Create(ctx, message)
}

func TestHandleEvent_SlowArchiveDoesNotStallRelay(t *testing.T) {
	archive := &slowArchive{
		MessageRepository: repository.NewMessageRepository(100),
		release:           make(chan struct{}),
	}
	gw, room := newTestGateway(t, archive)
	ctx := context.Background()

	bob := newTestClient("bob", room.ID, 8)
	gw.roomMgr.AddClient(bob)

	// handleEvent returns with the archive write still hanging, and the
	// event has already been delivered.
	gw.handleEvent(ctx, &InboundEvent{
		RoomID:   room.ID,
		SenderID: "alice",
		Topic:    TopicMessages,
		Content:  "hello",
	})
	require.Len(t, drain(bob), 1)

	close(archive.release)
	require.Eventually(t, func() bool {
		history, err := gw.messages.GetByRoomID(ctx, room.ID)
		return err == nil && len(history) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHandleEvent_ArchiveFailureNeverBlocksDelivery(t *testing.T) {
	gw, room := newTestGateway(t, &failingArchive{})

	bob := newTestClient("bob", room.ID, 8)
	gw.roomMgr.AddClient(bob)

	gw.handleEvent(context.Background(), &InboundEvent{
		RoomID:   room.ID,
		SenderID: "alice",
		Topic:    TopicMessages,
		Content:  "hello",
	})

	received := drain(bob)
	require.Len(t, received, 1)
}

func TestHandleEvent_NonParticipantDroppedSilently(t *testing.T) {
	gw, room := newTestGateway(t, nil)

	bob := newTestClient("bob", room.ID, 8)
	gw.roomMgr.AddClient(bob)

	gw.handleEvent(context.Background(), &InboundEvent{
		RoomID:   room.ID,
		SenderID: "mallory",
		Topic:    TopicMessages,
		Content:  "let me in",
	})

	assert.Empty(t, drain(bob))

	history, err := gw.messages.GetByRoomID(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHandleEvent_TerminalRoomDropped(t *testing.T) {
	gw, room := newTestGateway(t, nil)
	ctx := context.Background()

	_, err := gw.rooms.Close(ctx, room.ID)
	require.NoError(t, err)

	bob := newTestClient("bob", room.ID, 8)
	gw.roomMgr.AddClient(bob)

	gw.handleEvent(ctx, &InboundEvent{
		RoomID:   room.ID,
		SenderID: "alice",
		Topic:    TopicMessages,
		Content:  "too late",
	})

	assert.Empty(t, drain(bob))
}

func TestHandleEvent_SignalingRelayedVerbatimNeverArchived(t *testing.T) {
	gw, room := newTestGateway(t, nil)
	ctx := context.Background()

	bob := newTestClient("bob", room.ID, 8)
	gw.roomMgr.AddClient(bob)

	payload := json.RawMessage(`{"sdp":"v=0...","type":"offer"}`)
	gw.handleEvent(ctx, &InboundEvent{
		RoomID:   room.ID,
		SenderID: "alice",
		Topic:    TopicOffer,
		Payload:  payload,
	})

	received := drain(bob)
	require.Len(t, received, 1)
	assert.Equal(t, TopicOffer, received[0].Topic)

	signal, ok := received[0].Data.(SignalPayload)
	require.True(t, ok)
	assert.Equal(t, "alice", signal.SenderID)
	assert.JSONEq(t, string(payload), string(signal.Payload))

	history, err := gw.messages.GetByRoomID(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "signaling must never reach the archive")
}

func TestHandleEvent_TypingNotArchived(t *testing.T) {
	gw, room := newTestGateway(t, nil)
	ctx := context.Background()

	bob := newTestClient("bob", room.ID, 8)
	gw.roomMgr.AddClient(bob)

	gw.handleEvent(ctx, &InboundEvent{
		RoomID:   room.ID,
		SenderID: "alice",
		Topic:    TopicTyping,
	})

	received := drain(bob)
	require.Len(t, received, 1)
	assert.Equal(t, TopicTyping, received[0].Topic)

	history, err := gw.messages.GetByRoomID(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHandleEvent_UnknownTopicDropped(t *testing.T) {
	gw, room := newTestGateway(t, nil)

	bob := newTestClient("bob", room.ID, 8)
	gw.roomMgr.AddClient(bob)

	gw.handleEvent(context.Background(), &InboundEvent{
		RoomID:   room.ID,
		SenderID: "alice",
		Topic:    "shenanigans",
	})

	assert.Empty(t, drain(bob))
}

func TestHydrate_ReplaysChatHistory(t *testing.T) {
	gw, room := newTestGateway(t, nil)
	ctx := context.Background()

	require.NoError(t, gw.messages.Create(ctx, domain.NewSystemMessage(room.ID, "Secure channel established.")))
	require.NoError(t, gw.messages.Create(ctx, domain.NewTextMessage(room.ID, "alice", "hi")))

	bob := newTestClient("bob", room.ID, 8)
	gw.hydrate(bob)

	received := drain(bob)
	require.Len(t, received, 2)
	assert.Equal(t, TopicMessages, received[0].Topic)
}

func TestHydrate_AfterUnregisterDoesNotPanic(t *testing.T) {
	gw, room := newTestGateway(t, nil)
	ctx := context.Background()

	require.NoError(t, gw.messages.Create(ctx, domain.NewTextMessage(room.ID, "alice", "hi")))

	// The archive read races the disconnect; the client is long gone by
	// the time the replay starts.
	bob := newTestClient("bob", room.ID, 8)
	gw.roomMgr.AddClient(bob)
	gw.roomMgr.RemoveClient(bob)

	assert.NotPanics(t, func() {
		gw.hydrate(bob)
	})
	assert.Empty(t, drain(bob))
}

func TestNotifyClosed_BroadcastsErrorFrame(t *testing.T) {
	gw, room := newTestGateway(t, nil)

	bob := newTestClient("bob", room.ID, 8)
	gw.roomMgr.AddClient(bob)

	gw.NotifyClosed(room.ID)

	received := drain(bob)
	require.Len(t, received, 1)
	assert.Equal(t, ErrorEvent, received[0].Topic)

	payload, ok := received[0].Data.(ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "Room closed.", payload.Message)
}

func TestBroadcast_SlowClientLosesEvent(t *testing.T) {
	rm := NewRoomManager()

	slow := newTestClient("alice", "room-1", 1)
	rm.AddClient(slow)

	first := NewTypingEvent("room-1", "bob")
	second := NewTypingEvent("room-1", "bob")

	require.NoError(t, rm.BroadcastToRoom(first))
	require.NoError(t, rm.BroadcastToRoom(second))

	received := drain(slow)
	require.Len(t, received, 1, "the full buffer drops the second event")
}

func TestRoomManager_AddRemove(t *testing.T) {
	rm := NewRoomManager()

	alice := newTestClient("alice", "room-1", 1)
	bob := newTestClient("bob", "room-1", 1)
	rm.AddClient(alice)
	rm.AddClient(bob)

	room, ok := rm.GetRoom("room-1")
	require.True(t, ok)
	assert.Len(t, room.Clients, 2)

	rm.RemoveClient(alice)
	room, ok = rm.GetRoom("room-1")
	require.True(t, ok)
	assert.Len(t, room.Clients, 1)

	rm.RemoveClient(bob)
	_, ok = rm.GetRoom("room-1")
	assert.False(t, ok, "empty rooms are pruned")

	err := rm.BroadcastToRoom(NewTypingEvent("room-1", "alice"))
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
