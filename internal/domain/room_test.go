package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoom(t *testing.T) {
	before := time.Now()
	room, err := NewRoom(SessionTypeChat, "alice", "bob")
	require.NoError(t, err)

	assert.NotEmpty(t, room.ID)
	assert.Equal(t, SessionTypeChat, room.Type)
	assert.Equal(t, RoomActive, room.Status)
	assert.Equal(t, []string{"alice", "bob"}, room.ParticipantIDs)
	assert.Nil(t, room.ClosedAt)
	assert.WithinDuration(t, before.Add(RoomExpiry), room.ExpiresAt, time.Second)
}

func TestNewRoom_MissingParticipant(t *testing.T) {
	_, err := NewRoom(SessionTypeChat, "", "bob")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewRoom(SessionTypeChat, "alice", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRoomIsParticipant(t *testing.T) {
	room, err := NewRoom(SessionTypeVideo, "alice", "bob")
	require.NoError(t, err)

	assert.True(t, room.IsParticipant("alice"))
	assert.True(t, room.IsParticipant("bob"))
	assert.False(t, room.IsParticipant("mallory"))
	assert.False(t, room.IsParticipant(""))
}

func TestRoomIsTerminal(t *testing.T) {
	assert.False(t, (&Room{Status: RoomActive}).IsTerminal())
	assert.True(t, (&Room{Status: RoomClosed}).IsTerminal())
	assert.True(t, (&Room{Status: RoomExpired}).IsTerminal())
}

func TestNewMessages(t *testing.T) {
	text := NewTextMessage("room-1", "alice", "hello")
	assert.NotEmpty(t, text.ID)
	assert.Equal(t, MessageText, text.Kind)
	assert.Equal(t, "alice", text.SenderID)
	assert.Equal(t, text.CreatedAt.Add(MessageRetention), text.RetainUntil)

	system := NewSystemMessage("room-1", "Secure channel established.")
	assert.Equal(t, MessageSystem, system.Kind)
	assert.Empty(t, system.SenderID)
}
