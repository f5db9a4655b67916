package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/persistence/db"
)

type roomRepository struct {
	db *mongo.Database
}

func NewRoomRepository(database *mongo.Database) domain.RoomRepository {
	return &roomRepository{
		db: database,
	}
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	if room == nil || room.ID == "" {
		return domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.RoomsCollection)

	_, err := collection.InsertOne(ctx, room)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrRoomAlreadyExists
	}

	return err
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.RoomsCollection)

	var room domain.Room
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	return &room, nil
}

func (r *roomRepository) Close(ctx context.Context, id string) (*domain.Room, error) {
	return r.transition(ctx, id, domain.RoomClosed)
}

func (r *roomRepository) MarkExpired(ctx context.Context, id string) (*domain.Room, error) {
	return r.transition(ctx, id, domain.RoomExpired)
}

// transition retires an ACTIVE room. The update is conditional on the
// current status so a close racing a sweep settles on a single outcome.
func (r *roomRepository) transition(ctx context.Context, id string, target domain.RoomStatus) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.RoomsCollection)

	filter := bson.M{
		"_id":    id,
		"status": domain.RoomActive,
	}
	update := bson.M{
		"$set": bson.M{
			"status":    target,
			"closed_at": time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var room domain.Room
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		count, countErr := collection.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return nil, countErr
		}
		if count == 0 {
			return nil, domain.ErrRoomNotFound
		}
		return nil, domain.ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	return &room, nil
}

func (r *roomRepository) FindExpired(ctx context.Context, now time.Time) ([]domain.Room, error) {
	collection := r.db.Collection(db.RoomsCollection)

	filter := bson.M{
		"status":     domain.RoomActive,
		"expires_at": bson.M{"$lt": now},
	}

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []domain.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}

	return rooms, nil
}
