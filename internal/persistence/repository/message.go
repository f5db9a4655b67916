package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/persistence/db"
)

// messageRepository is append-only. Eviction past retain_until belongs
// to the collection's TTL index, never to application code.
type messageRepository struct {
	db *mongo.Database
}

func NewMessageRepository(database *mongo.Database) domain.MessageRepository {
	return &messageRepository{
		db: database,
	}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	if message == nil || message.ID == "" || message.RoomID == "" {
		return domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.MessagesCollection)

	_, err := collection.InsertOne(ctx, message)
	return err
}

func (r *messageRepository) GetByRoomID(ctx context.Context, roomID string) ([]domain.Message, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.MessagesCollection)

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := collection.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []domain.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}
