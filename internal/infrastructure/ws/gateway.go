package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/infrastructure/logging"
	"github.com/termchat/termchat/internal/infrastructure/metrics"
)

const archiveTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Gateway authorizes and fans out relay events per room. Unauthorized
// events are dropped without a response so room existence is never
// confirmed to non-participants.
type Gateway struct {
	roomMgr    *RoomManager
	register   chan *Client
	unregister chan *Client
	inbound    chan *InboundEvent

	rooms    domain.RoomRepository
	messages domain.MessageRepository
	logger   logging.Logger
}

func NewGateway(rooms domain.RoomRepository, messages domain.MessageRepository, logger logging.Logger) *Gateway {
	return &Gateway{
		roomMgr:    NewRoomManager(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *InboundEvent, 256),
		rooms:      rooms,
		messages:   messages,
		logger:     logger,
	}
}

func (g *Gateway) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

func (g *Gateway) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			g.logger.Info(logging.IO, logging.Relay, "relay gateway stopped", nil)
			return

		case cl := <-g.register:
			g.roomMgr.AddClient(cl)
			go g.hydrate(cl)

		case cl := <-g.unregister:
			g.roomMgr.RemoveClient(cl)

		case ev := <-g.inbound:
			g.handleEvent(ctx, ev)
		}
	}
}

func (g *Gateway) Register() chan<- *Client {
	return g.register
}

func (g *Gateway) Unregister() chan<- *Client {
	return g.unregister
}

func (g *Gateway) Inbound() chan<- *InboundEvent {
	return g.inbound
}

// hydrate replays the archived chat to a fresh subscriber. Only chat is
// replayed; typing and signaling have no history.
func (g *Gateway) hydrate(cl *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	messages, err := g.messages.GetByRoomID(ctx, cl.RoomID)
	if err != nil {
		g.logger.Warn(logging.Internal, logging.Archive, "failed to hydrate room history", map[logging.ExtraKey]any{
			logging.RoomID:       cl.RoomID,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	for _, m := range messages {
		// The client may have unregistered while the archive read was
		// in flight; stop replaying once its write pump is gone.
		select {
		case <-cl.done:
			return
		default:
		}

		select {
		case cl.Message <- NewChatEvent(m):
		default:
			return
		}
	}
}

func (g *Gateway) handleEvent(ctx context.Context, ev *InboundEvent) {
	room, err := g.rooms.GetByID(ctx, ev.RoomID)
	if err != nil {
		metrics.RelayDropped.WithLabelValues(metrics.DropUnauthorized).Inc()
		return
	}
	if room.IsTerminal() {
		metrics.RelayDropped.WithLabelValues(metrics.DropRoomClosed).Inc()
		return
	}
	if !room.IsParticipant(ev.SenderID) {
		metrics.RelayDropped.WithLabelValues(metrics.DropUnauthorized).Inc()
		g.logger.Warn(logging.IO, logging.Relay, "dropped event from non-participant", map[logging.ExtraKey]any{
			logging.RoomID: ev.RoomID,
			logging.UserID: ev.SenderID,
		})
		return
	}

	switch {
	case ev.Topic == TopicMessages:
		g.relayChat(ev)

	case ev.Topic == TopicTyping:
		g.broadcast(NewTypingEvent(ev.RoomID, ev.SenderID))

	case IsSignalTopic(ev.Topic):
		g.broadcast(NewSignalEvent(ev.Topic, ev.RoomID, ev.SenderID, ev.Payload))

	default:
		metrics.RelayDropped.WithLabelValues(metrics.DropMalformed).Inc()
		return
	}

	metrics.RelayEvents.WithLabelValues(ev.Topic).Inc()
}

// relayChat broadcasts immediately and archives off the event loop. A
// slow or failing store holds up neither this room nor any other.
func (g *Gateway) relayChat(ev *InboundEvent) {
	message := domain.NewTextMessage(ev.RoomID, ev.SenderID, ev.Content)

	go g.archiveChat(message)

	g.broadcast(NewChatEvent(*message))
}

func (g *Gateway) archiveChat(message *domain.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	if err := g.messages.Create(ctx, message); err != nil {
		g.logger.Warn(logging.Internal, logging.Archive, "failed to archive chat message", map[logging.ExtraKey]any{
			logging.RoomID:       message.RoomID,
			logging.ErrorMessage: err.Error(),
		})
	}
}

// NotifyClosed tells live subscribers the room is gone so they can tear
// down instead of waiting on a dead relay.
func (g *Gateway) NotifyClosed(roomID string) {
	g.broadcast(NewError(roomID, "Room closed."))
}

func (g *Gateway) broadcast(msg *WSMessage) {
	if err := g.roomMgr.BroadcastToRoom(msg); err != nil {
		g.logger.Debugf("broadcast to room %s: %v", msg.RoomID, err)
	}
}
