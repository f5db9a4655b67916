package events

import (
	"context"
	"encoding/json"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/infrastructure/contracts"
	"github.com/termchat/termchat/internal/infrastructure/messaging"
)

type PairingPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewPairingPublisher(rabbitmq *messaging.RabbitMQ) *PairingPublisher {
	return &PairingPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *PairingPublisher) PublishSessionCreated(ctx context.Context, session domain.Session) error {
	payload := messaging.SessionEventData{
		Session: session,
	}

	sessionEventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, contracts.EventSessionCreated, contracts.AmqpMessage{
		OwnerID: session.OwnerID,
		Data:    sessionEventJSON,
	})
}

func (p *PairingPublisher) PublishSessionExpired(ctx context.Context, session domain.Session) error {
	payload := messaging.SessionEventData{
		Session: session,
	}

	sessionEventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, contracts.EventSessionExpired, contracts.AmqpMessage{
		OwnerID: session.OwnerID,
		Data:    sessionEventJSON,
	})
}

func (p *PairingPublisher) PublishRoomPaired(ctx context.Context, room domain.Room, joined bool) error {
	payload := messaging.RoomEventData{
		Room:   room,
		Joined: joined,
	}

	roomEventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	routingKey := contracts.EventRoomPaired
	if joined {
		routingKey = contracts.EventRoomJoined
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		OwnerID: room.ParticipantIDs[0],
		Data:    roomEventJSON,
	})
}

func (p *PairingPublisher) PublishRoomClosed(ctx context.Context, room domain.Room) error {
	payload := messaging.RoomEventData{
		Room: room,
	}

	roomEventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, contracts.EventRoomClosed, contracts.AmqpMessage{
		OwnerID: room.ParticipantIDs[0],
		Data:    roomEventJSON,
	})
}

func (p *PairingPublisher) PublishRoomExpired(ctx context.Context, room domain.Room) error {
	payload := messaging.RoomEventData{
		Room: room,
	}

	roomEventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, contracts.EventRoomExpired, contracts.AmqpMessage{
		OwnerID: room.ParticipantIDs[0],
		Data:    roomEventJSON,
	})
}
