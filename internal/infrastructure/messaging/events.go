package messaging

import "github.com/termchat/termchat/internal/domain"

const (
	PairingQueue    = "pairing_audit"
	DeadLetterQueue = "dead_letter_queue"
)

type SessionEventData struct {
	Session domain.Session `json:"session"`
}

type RoomEventData struct {
	Room   domain.Room `json:"room"`
	Joined bool        `json:"joined,omitempty"`
}
