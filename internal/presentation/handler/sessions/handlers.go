package sessions

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/termchat/termchat/internal/application/sessions"
	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/infrastructure/json"
	"github.com/termchat/termchat/internal/presentation/utils"
)

type Handler struct {
	registry *sessions.Registry
}

func NewHandler(registry *sessions.Registry) *Handler {
	return &Handler{
		registry: registry,
	}
}

// CreateSessionHandler godoc
// @Summary      Open a pairing session
// @Description  Issues a WAITING session with a shareable pairing code for the authenticated user
// @Tags         sessions
// @Produce      json
// @Param        sessionType path string true "Session type (CHAT, VOICE or VIDEO)"
// @Success      201 {object} sessionResponse "Session opened"
// @Failure      400 {object} map[string]interface{} "Bad request - unknown session type"
// @Failure      401 {object} map[string]interface{} "Unauthorized - missing authentication"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Security     BearerAuth
// @Router       /sessions/{sessionType} [post]
func (h *Handler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := utils.UserID(r.Context())
	sessionType := chi.URLParam(r, "sessionType")
	if sessionType == "" {
		json.WriteValidationError(w, errors.New("session type is missing"))
		return
	}

	session, err := h.registry.Open(r.Context(), userID, sessionType)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			json.WriteBadRequestError(w, "Unknown session type")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	json.Write(w, http.StatusCreated, toSessionResponse(session))
}

// GetSessionHandler godoc
// @Summary      Get a pairing session
// @Description  Returns the session when it belongs to the authenticated user; used to poll for pairing
// @Tags         sessions
// @Produce      json
// @Param        sessionId path string true "Session ID"
// @Success      200 {object} sessionResponse "Session details"
// @Failure      400 {object} map[string]interface{} "Bad request - missing session ID"
// @Failure      404 {object} map[string]interface{} "Session not found"
// @Security     BearerAuth
// @Router       /sessions/{sessionId} [get]
func (h *Handler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := utils.UserID(r.Context())
	sessionID := chi.URLParam(r, "sessionId")
	if sessionID == "" {
		json.WriteValidationError(w, errors.New("session ID is missing"))
		return
	}

	session, err := h.registry.GetByID(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			json.WriteError(w, http.StatusNotFound, err, "Session not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	// Foreign sessions look like missing ones so session ids cannot be
	// probed across users.
	if session.OwnerID != userID {
		json.WriteError(w, http.StatusNotFound, domain.ErrSessionNotFound, "Session not found")
		return
	}

	json.Write(w, http.StatusOK, toSessionResponse(session))
}

func toSessionResponse(session *domain.Session) sessionResponse {
	expiresIn := int64(time.Until(session.ExpiresAt).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}

	return sessionResponse{
		SessionID:   session.ID,
		Code:        session.Code,
		Type:        string(session.Type),
		Status:      string(session.Status),
		RoomID:      session.RoomID,
		CreatedAt:   session.CreatedAt,
		ExpiresAt:   session.ExpiresAt,
		ExpiresIn:   expiresIn,
		CompletedAt: session.CompletedAt,
	}
}
