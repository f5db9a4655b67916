package ws

import (
	"errors"
	"sync"

	"github.com/termchat/termchat/internal/infrastructure/metrics"
)

var (
	ErrRoomNotFound   = errors.New("room has no subscribers")
	ErrClientNotFound = errors.New("client not found")
)

// WSRoom is the live subscriber set for one room. It holds no state
// beyond connections; history lives in the message archive.
type WSRoom struct {
	ID      string             `json:"id"`
	Clients map[string]*Client `json:"clients"`
}

type RoomManager struct {
	rooms map[string]*WSRoom // roomID → WSRoom
	mu    sync.RWMutex
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*WSRoom),
	}
}

func (rm *RoomManager) AddClient(cl *Client) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[cl.RoomID]
	if !ok {
		room = &WSRoom{
			ID:      cl.RoomID,
			Clients: make(map[string]*Client),
		}
		rm.rooms[cl.RoomID] = room
	}

	if _, exists := room.Clients[cl.UserID]; !exists {
		room.Clients[cl.UserID] = cl
		metrics.RelaySubscribers.Inc()
	}
}

func (rm *RoomManager) RemoveClient(cl *Client) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if room, ok := rm.rooms[cl.RoomID]; ok {
		if existing, ok := room.Clients[cl.UserID]; ok && existing == cl {
			delete(room.Clients, cl.UserID)
			cl.shutdown()
			metrics.RelaySubscribers.Dec()

			if len(room.Clients) == 0 {
				delete(rm.rooms, cl.RoomID)
			}
		}
	}
}

func (rm *RoomManager) GetRoom(roomID string) (*WSRoom, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	r, ok := rm.rooms[roomID]
	return r, ok
}

// BroadcastToRoom delivers at most once per live subscriber. Slow
// subscribers lose the event rather than stalling the room.
func (rm *RoomManager) BroadcastToRoom(msg *WSMessage) error {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, ok := rm.rooms[msg.RoomID]
	if !ok {
		return ErrRoomNotFound
	}

	for _, cl := range room.Clients {
		select {
		case cl.Message <- msg:
		default:
			metrics.RelayDropped.WithLabelValues(metrics.DropSlowClient).Inc()
		}
	}
	return nil
}
