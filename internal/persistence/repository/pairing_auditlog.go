package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/persistence/db"
)

type pairingAuditLogRepository struct {
	db *mongo.Database
}

func NewPairingAuditLogRepository(database *mongo.Database) domain.PairingAuditRepository {
	return &pairingAuditLogRepository{
		db: database,
	}
}

func (r *pairingAuditLogRepository) Log(ctx context.Context, log *domain.PairingAuditLog) error {
	collection := r.db.Collection(db.PairingAuditCollection)

	_, err := collection.InsertOne(ctx, log)
	return err
}

func (r *pairingAuditLogRepository) GetByRoomID(ctx context.Context, roomID string, limit int) ([]domain.PairingAuditLog, error) {
	collection := r.db.Collection(db.PairingAuditCollection)

	filter := bson.M{"room_id": roomID}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.PairingAuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *pairingAuditLogRepository) GetByEventType(ctx context.Context, eventType domain.PairingEventType, from time.Time, to time.Time) ([]domain.PairingAuditLog, error) {
	collection := r.db.Collection(db.PairingAuditCollection)

	filter := bson.M{
		"event_type": eventType,
		"timestamp": bson.M{
			"$gte": from,
			"$lte": to,
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.PairingAuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *pairingAuditLogRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.PairingAuditCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(7776000), // 90 days TTL
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
