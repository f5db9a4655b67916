package events

import (
	"context"
	"encoding/json"

	"github.com/rabbitmq/amqp091-go"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/infrastructure/contracts"
	"github.com/termchat/termchat/internal/infrastructure/logging"
	"github.com/termchat/termchat/internal/infrastructure/messaging"
)

// auditConsumer turns pairing lifecycle events into audit log entries.
type auditConsumer struct {
	rabbitmq  *messaging.RabbitMQ
	auditRepo domain.PairingAuditRepository
	logger    logging.Logger
}

func NewAuditConsumer(rabbitmq *messaging.RabbitMQ, auditRepo domain.PairingAuditRepository, logger logging.Logger) *auditConsumer {
	return &auditConsumer{
		rabbitmq:  rabbitmq,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

func (c *auditConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.PairingQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		var message contracts.AmqpMessage
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			c.logger.Error(logging.RabbitMQ, logging.Archive, "failed to unmarshal envelope", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
			return err
		}

		auditLog, err := c.toAuditLog(msg.RoutingKey, message.Data)
		if err != nil {
			c.logger.Error(logging.RabbitMQ, logging.Archive, "failed to decode event payload", map[logging.ExtraKey]any{
				logging.Topic:        msg.RoutingKey,
				logging.ErrorMessage: err.Error(),
			})
			return err
		}
		if auditLog == nil {
			// Unknown routing key, ack and move on.
			return nil
		}

		if err := c.auditRepo.Log(ctx, auditLog); err != nil {
			c.logger.Error(logging.RabbitMQ, logging.Archive, "failed to write audit log", map[logging.ExtraKey]any{
				logging.Topic:        msg.RoutingKey,
				logging.ErrorMessage: err.Error(),
			})
			return err
		}

		return nil
	})
}

func (c *auditConsumer) toAuditLog(routingKey string, data []byte) (*domain.PairingAuditLog, error) {
	switch routingKey {
	case contracts.EventSessionCreated, contracts.EventSessionExpired:
		var payload messaging.SessionEventData
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if routingKey == contracts.EventSessionCreated {
			return domain.NewSessionCreatedLog(payload.Session.ID, payload.Session.Type, payload.Session.ExpiresAt), nil
		}
		return domain.NewSessionExpiredLog(payload.Session.ID), nil

	case contracts.EventRoomPaired, contracts.EventRoomJoined:
		var payload messaging.RoomEventData
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return domain.NewRoomPairedLog(payload.Room.ID, payload.Room.Type, payload.Joined), nil

	case contracts.EventRoomClosed, contracts.EventRoomExpired:
		var payload messaging.RoomEventData
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return domain.NewRoomClosedLog(payload.Room.ID, routingKey == contracts.EventRoomExpired), nil
	}

	return nil, nil
}
