package rooms

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/termchat/termchat/internal/application/pairing"
	"github.com/termchat/termchat/internal/application/rooms"
	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/infrastructure/json"
	"github.com/termchat/termchat/internal/infrastructure/logging"
	"github.com/termchat/termchat/internal/infrastructure/ws"
	"github.com/termchat/termchat/internal/presentation/utils"
)

type Handler struct {
	registry    *rooms.Registry
	coordinator *pairing.Coordinator
	gateway     *ws.Gateway
	sendBuffer  int
	logger      logging.Logger
}

func NewHandler(
	registry *rooms.Registry,
	coordinator *pairing.Coordinator,
	gateway *ws.Gateway,
	sendBuffer int,
	logger logging.Logger,
) *Handler {
	return &Handler{
		registry:    registry,
		coordinator: coordinator,
		gateway:     gateway,
		sendBuffer:  sendBuffer,
		logger:      logger,
	}
}

// ConnectHandler godoc
// @Summary      Pair against a mate code
// @Description  Binds the caller's session and the mate's session into one active room. When a concurrent pairing already bound the mate, the caller joins that room instead.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        mateCode path string true "Pairing code shared by the mate"
// @Param        request body connectRequest true "Initiator session"
// @Success      201 {object} connectResponse "Room created or joined"
// @Failure      400 {object} map[string]interface{} "Bad request - validation error"
// @Failure      404 {object} map[string]interface{} "Session or code not found"
// @Failure      409 {object} map[string]interface{} "Conflict - session not pairable or type mismatch"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Security     BearerAuth
// @Router       /rooms/connect/{mateCode} [post]
func (h *Handler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	mateCode := chi.URLParam(r, "mateCode")
	if err := validateMateCode(mateCode); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	var req connectRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if err := validateSessionID(req.SessionID); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	result, err := h.coordinator.Pair(r.Context(), req.SessionID, mateCode)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			json.WriteError(w, http.StatusNotFound, err, "No pairable session for that code")
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrRoomNotActive):
			json.WriteError(w, http.StatusConflict, err, "Session is not pairable")
		case errors.Is(err, domain.ErrTypeMismatch):
			json.WriteError(w, http.StatusConflict, err, "Session types must match")
		case errors.Is(err, domain.ErrInvalidInput):
			json.WriteBadRequestError(w, "Cannot pair a session against its own code")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	json.Write(w, http.StatusCreated, connectResponse{
		Outcome: string(result.Outcome),
		Room:    toRoomResponse(result.Room),
	})
}

// GetRoomHandler godoc
// @Summary      Get room details
// @Description  Returns the room and its archived chat for a participant
// @Tags         rooms
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Success      200 {object} roomDetailResponse "Room details"
// @Failure      400 {object} map[string]interface{} "Bad request - missing room ID"
// @Failure      403 {object} map[string]interface{} "Forbidden - not a participant"
// @Failure      404 {object} map[string]interface{} "Room not found"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Security     BearerAuth
// @Router       /rooms/{roomId} [get]
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	userID := utils.UserID(r.Context())

	room, err := h.registry.Get(r.Context(), roomID, userID)
	if err != nil {
		writeRoomError(w, err)
		return
	}

	messages, err := h.registry.History(r.Context(), roomID, userID)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	mappedMessages := make([]messageResponse, len(messages))
	for i, message := range messages {
		mappedMessages[i] = messageResponse{
			ID:        message.ID,
			SenderID:  message.SenderID,
			Content:   message.Content,
			Kind:      string(message.Kind),
			CreatedAt: message.CreatedAt,
		}
	}

	json.Write(w, http.StatusOK, roomDetailResponse{
		roomResponse: toRoomResponse(room),
		Messages:     mappedMessages,
	})
}

// CloseRoomHandler godoc
// @Summary      Close a room
// @Description  Retires an active room on behalf of a participant and completes its sessions
// @Tags         rooms
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Success      204 "Room closed"
// @Failure      400 {object} map[string]interface{} "Bad request - missing room ID"
// @Failure      403 {object} map[string]interface{} "Forbidden - not a participant"
// @Failure      404 {object} map[string]interface{} "Room not found"
// @Failure      409 {object} map[string]interface{} "Conflict - room already closed or expired"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Security     BearerAuth
// @Router       /rooms/{roomId}/close [post]
func (h *Handler) CloseRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	userID := utils.UserID(r.Context())

	if _, err := h.coordinator.Close(r.Context(), roomID, userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomNotActive):
			json.WriteError(w, http.StatusConflict, err, "Room is already closed or expired")
		default:
			writeRoomError(w, err)
		}
		return
	}

	h.gateway.NotifyClosed(roomID)

	w.WriteHeader(http.StatusNoContent)
}

// AttachHandler godoc
// @Summary      Attach to a room's relay
// @Description  Upgrades to WebSocket and subscribes a participant to the room's chat, typing and signaling topics. The archived chat is replayed on attach.
// @Tags         rooms
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Success      101 {object} map[string]interface{} "Switching Protocols - WebSocket connection established"
// @Failure      400 {object} map[string]interface{} "Bad request - missing room ID"
// @Failure      403 {object} map[string]interface{} "Forbidden - not a participant"
// @Failure      404 {object} map[string]interface{} "Room not found"
// @Security     BearerAuth
// @Router       /rooms/{roomId}/attach [get]
func (h *Handler) AttachHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	userID := utils.UserID(r.Context())

	// Authorization happens before the upgrade so a non-participant
	// never holds a socket into the room.
	room, err := h.registry.Get(r.Context(), roomID, userID)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	if room.IsTerminal() {
		json.WriteError(w, http.StatusConflict, domain.ErrRoomNotActive, "Room is already closed or expired")
		return
	}

	conn, err := h.gateway.Upgrade(w, r)
	if err != nil {
		return
	}

	client := ws.NewClient(conn, userID, roomID, h.sendBuffer, h.logger)
	h.gateway.Register() <- client

	go client.WriteMessage()
	go client.ReadMessage(h.gateway)
}

func writeRoomError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		json.WriteError(w, http.StatusNotFound, err, "Room not found")
	case errors.Is(err, domain.ErrUnauthorized):
		json.WriteError(w, http.StatusForbidden, err, "You are not a participant")
	default:
		json.WriteInternalError(w, err)
	}
}

func toRoomResponse(room *domain.Room) roomResponse {
	return roomResponse{
		ID:             room.ID,
		Type:           string(room.Type),
		Status:         string(room.Status),
		ParticipantIDs: room.ParticipantIDs,
		CreatedAt:      room.CreatedAt,
		ExpiresAt:      room.ExpiresAt,
		ClosedAt:       room.ClosedAt,
	}
}
