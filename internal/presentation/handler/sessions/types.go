package sessions

import "time"

// sessionResponse represents a pairing session
type sessionResponse struct {
	SessionID   string     `json:"sessionId" example:"550e8400-e29b-41d4-a716-446655440000"` // Unique session identifier
	Code        string     `json:"code" example:"7F3QX1"`                                    // Code to share with the mate
	Type        string     `json:"type" example:"CHAT" enum:"CHAT,VOICE,VIDEO"`              // Session type
	Status      string     `json:"status" example:"WAITING"`                                 // Lifecycle status
	RoomID      string     `json:"roomId,omitempty"`                                         // Bound room once paired
	CreatedAt   time.Time  `json:"createdAt" example:"2024-01-01T12:00:00Z"`                 // Session creation timestamp
	ExpiresAt   time.Time  `json:"expiresAt" example:"2024-01-01T13:00:00Z"`                 // When the code stops being pairable
	ExpiresIn   int64      `json:"expiresIn" example:"3600"`                                 // Seconds until expiry
	CompletedAt *time.Time `json:"completedAt,omitempty"`                                    // When the session completed
}
