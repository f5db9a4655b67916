package rooms

import (
	"time"

	"github.com/termchat/termchat/internal/infrastructure/validate"
)

var (
	validateMateCode = validate.Field("mateCode",
		validate.Required(),
		validate.Length(6),
		validate.Matches(`^[A-Z0-9]+$`, "must contain only uppercase letters and digits"),
	)
	validateSessionID = validate.Field("sessionId",
		validate.Required(),
		validate.MaxLength(64),
	)
)

// connectRequest represents the request to pair against a mate code
type connectRequest struct {
	SessionID string `json:"sessionId" example:"550e8400-e29b-41d4-a716-446655440000" minLength:"1"` // Initiator's own session ID
}

// connectResponse represents the pairing result
type connectResponse struct {
	Outcome string       `json:"outcome" example:"CREATED" enum:"CREATED,JOINED_EXISTING"` // Whether a room was created or joined
	Room    roomResponse `json:"room"`                                                     // The bound room
}

// roomResponse represents detailed room information
type roomResponse struct {
	ID             string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"` // Unique room identifier
	Type           string     `json:"type" example:"CHAT" enum:"CHAT,VOICE,VIDEO"`       // Room type, equal to both sessions' type
	Status         string     `json:"status" example:"ACTIVE"`                           // Lifecycle status
	ParticipantIDs []string   `json:"participantIds"`                                    // The two participant user ids
	CreatedAt      time.Time  `json:"createdAt" example:"2024-01-01T12:00:00Z"`          // Room creation timestamp
	ExpiresAt      time.Time  `json:"expiresAt" example:"2024-01-01T14:00:00Z"`          // When the sweeper retires the room
	ClosedAt       *time.Time `json:"closedAt,omitempty"`                                // When the room was closed or expired
}

// messageResponse represents an archived chat message
type messageResponse struct {
	ID        string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440003"` // Unique message identifier
	SenderID  string    `json:"senderId,omitempty"`                                // Empty for system messages
	Content   string    `json:"content" example:"Hello, world!"`                   // Message content
	Kind      string    `json:"kind" example:"TEXT" enum:"TEXT,SYSTEM"`            // Message kind
	CreatedAt time.Time `json:"createdAt"`                                         // Message timestamp
}

// roomDetailResponse represents a room together with its chat history
type roomDetailResponse struct {
	roomResponse
	Messages []messageResponse `json:"messages"` // Archived chat in creation order
}
