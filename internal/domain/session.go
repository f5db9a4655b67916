package domain

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	codeLength = 6

	codeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// SessionExpiry is how long a WAITING session stays pairable.
	SessionExpiry = 60 * time.Minute
)

var (
	codeCharsetLen = big.NewInt(int64(len(codeChars)))

	ErrSessionNotFound   = errors.New("session not found")
	ErrCodeTaken         = errors.New("session code already taken")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrTypeMismatch      = errors.New("session types must match")
	ErrInvalidInput      = errors.New("invalid input")
)

type SessionType string

const (
	SessionTypeChat  SessionType = "CHAT"
	SessionTypeVoice SessionType = "VOICE"
	SessionTypeVideo SessionType = "VIDEO"
)

// ParseSessionType normalizes a raw session type string.
func ParseSessionType(raw string) (SessionType, error) {
	switch SessionType(strings.ToUpper(strings.TrimSpace(raw))) {
	case SessionTypeChat:
		return SessionTypeChat, nil
	case SessionTypeVoice:
		return SessionTypeVoice, nil
	case SessionTypeVideo:
		return SessionTypeVideo, nil
	}
	return "", ErrInvalidInput
}

type SessionStatus string

const (
	SessionWaiting   SessionStatus = "WAITING"
	SessionActive    SessionStatus = "ACTIVE"
	SessionExpired   SessionStatus = "EXPIRED"
	SessionCompleted SessionStatus = "COMPLETED"
)

// Session is a one-sided, short-lived intent to be paired, addressed
// by a human-shareable code. The code is unique among WAITING sessions;
// RoomID is set exactly when the session is ACTIVE or COMPLETED.
type Session struct {
	ID          string        `bson:"_id" json:"id"`
	OwnerID     string        `bson:"owner_id" json:"ownerId"`
	Code        string        `bson:"code" json:"code"`
	Type        SessionType   `bson:"type" json:"type"`
	Status      SessionStatus `bson:"status" json:"status"`
	RoomID      string        `bson:"room_id,omitempty" json:"roomId,omitempty"`
	CreatedAt   time.Time     `bson:"created_at" json:"createdAt"`
	ExpiresAt   time.Time     `bson:"expires_at" json:"expiresAt"`
	CompletedAt *time.Time    `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
}

type SessionRepository interface {
	// Create persists a new WAITING session. Returns ErrCodeTaken when
	// another WAITING session already holds the same code.
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	// GetByCode resolves a code against non-terminal sessions only; a
	// code consumed by pairing still resolves (to the ACTIVE session)
	// but an expired or completed one never does.
	GetByCode(ctx context.Context, code string) (*Session, error)
	GetByRoomID(ctx context.Context, roomID string) ([]Session, error)

	// Activate transitions WAITING -> ACTIVE and binds the room id.
	// The update is conditional on the current status so two racing
	// callers cannot both win.
	Activate(ctx context.Context, id, roomID string) (*Session, error)
	// Expire transitions WAITING -> EXPIRED.
	Expire(ctx context.Context, id string) (*Session, error)
	// Complete transitions ACTIVE -> COMPLETED and stamps CompletedAt.
	Complete(ctx context.Context, id string) (*Session, error)

	// FindExpired returns WAITING sessions whose ExpiresAt is before now.
	FindExpired(ctx context.Context, now time.Time) ([]Session, error)
}

func NewSession(ownerID string, sessionType SessionType) (*Session, error) {
	if ownerID == "" {
		return nil, ErrInvalidInput
	}

	code, err := generateSessionCode()
	if err != nil {
		return nil, err
	}

	now := time.Now()

	return &Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Code:      code,
		Type:      sessionType,
		Status:    SessionWaiting,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionExpiry),
	}, nil
}

// CanTransition reports whether the session state machine permits
// moving to the target status. WAITING is initial; EXPIRED and
// COMPLETED are terminal.
func (s *Session) CanTransition(target SessionStatus) bool {
	switch s.Status {
	case SessionWaiting:
		return target == SessionActive || target == SessionExpired
	case SessionActive:
		return target == SessionCompleted
	default:
		return false
	}
}

func (s *Session) IsTerminal() bool {
	return s.Status == SessionExpired || s.Status == SessionCompleted
}

func generateSessionCode() (string, error) {
	var sb strings.Builder
	sb.Grow(codeLength)

	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, codeCharsetLen)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeChars[n.Int64()])
	}

	return sb.String(), nil
}
