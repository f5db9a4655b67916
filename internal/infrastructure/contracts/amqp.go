package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	OwnerID string `json:"ownerId"`
	Data    []byte `json:"data"`
}

// Routing keys - using consistent event/command patterns
const (
	EventSessionCreated = "session.created"
	EventSessionExpired = "session.expired"
	EventRoomPaired     = "room.paired"
	EventRoomJoined     = "room.joined"
	EventRoomClosed     = "room.closed"
	EventRoomExpired    = "room.expired"
)
