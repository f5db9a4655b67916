package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/termchat/termchat/internal/infrastructure/logging"
	"github.com/termchat/termchat/internal/infrastructure/metrics"
)

type Client struct {
	conn    *connWrapper
	Message chan *WSMessage
	UserID  string `json:"userId"`
	RoomID  string `json:"roomId"`

	done    chan struct{}
	closing sync.Once

	logger logging.Logger
}

func NewClient(conn *websocket.Conn, userID, roomID string, sendBuffer int, logger logging.Logger) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 64 // buffered to avoid dead-locks on slow clients
	}
	return &Client{
		conn:    newConnWrapper(conn),
		Message: make(chan *WSMessage, sendBuffer),
		UserID:  userID,
		RoomID:  roomID,
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// shutdown stops the write pump. The Message channel stays open so a
// hydration still in flight can never send on a closed channel.
func (c *Client) shutdown() {
	c.closing.Do(func() {
		close(c.done)
	})
}

func (c *Client) ReadMessage(gw *Gateway) {
	defer func() {
		gw.Unregister() <- c
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn(logging.IO, logging.Relay, "ws read error", map[logging.ExtraKey]any{
					logging.UserID:       c.UserID,
					logging.ErrorMessage: err.Error(),
				})
			}
			break
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			metrics.RelayDropped.WithLabelValues(metrics.DropMalformed).Inc()
			continue
		}

		gw.Inbound() <- &InboundEvent{
			RoomID:   c.RoomID,
			SenderID: c.UserID,
			Topic:    frame.Topic,
			Content:  frame.Content,
			Payload:  frame.Payload,
		}
	}
}

func (c *Client) WriteMessage() {
	defer func() {
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.Message:
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn(logging.IO, logging.Relay, "ws write error", map[logging.ExtraKey]any{
					logging.UserID:       c.UserID,
					logging.ErrorMessage: err.Error(),
				})
				return
			}
		}
	}
}
