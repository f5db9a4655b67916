package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/persistence/db"
)

// EnsureIndexes creates the indexes the lifecycle semantics rely on:
// the partial unique code index that makes WAITING codes collide at the
// store, and the TTL index that evicts messages past retain_until.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	sessionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "code", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.SessionWaiting}),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "expires_at", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "room_id", Value: 1}},
		},
	}
	if _, err := database.Collection(db.SessionsCollection).Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return err
	}

	roomIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "expires_at", Value: 1},
			},
		},
	}
	if _, err := database.Collection(db.RoomsCollection).Indexes().CreateMany(ctx, roomIndexes); err != nil {
		return err
	}

	messageIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "created_at", Value: 1},
			},
		},
		{
			Keys:    bson.D{{Key: "retain_until", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	if _, err := database.Collection(db.MessagesCollection).Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return err
	}

	return nil
}
