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

type sessionRepository struct {
	db *mongo.Database
}

func NewSessionRepository(database *mongo.Database) domain.SessionRepository {
	return &sessionRepository{
		db: database,
	}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" || session.Code == "" {
		return domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.SessionsCollection)

	// Code uniqueness among WAITING sessions is enforced by a partial
	// unique index, so a collision surfaces as a duplicate key error.
	_, err := collection.InsertOne(ctx, session)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrCodeTaken
	}

	return err
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.SessionsCollection)

	var session domain.Session
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *sessionRepository) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	if code == "" {
		return nil, domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.SessionsCollection)

	filter := bson.M{
		"code": code,
		"status": bson.M{
			"$in": []domain.SessionStatus{domain.SessionWaiting, domain.SessionActive},
		},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var session domain.Session
	err := collection.FindOne(ctx, filter, opts).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *sessionRepository) GetByRoomID(ctx context.Context, roomID string) ([]domain.Session, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.SessionsCollection)

	cursor, err := collection.Find(ctx, bson.M{"room_id": roomID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []domain.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionRepository) Activate(ctx context.Context, id, roomID string) (*domain.Session, error) {
	if id == "" || roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	update := bson.M{
		"$set": bson.M{
			"status":  domain.SessionActive,
			"room_id": roomID,
		},
	}

	return r.transition(ctx, id, domain.SessionWaiting, update)
}

func (r *sessionRepository) Expire(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	update := bson.M{
		"$set": bson.M{
			"status": domain.SessionExpired,
		},
	}

	return r.transition(ctx, id, domain.SessionWaiting, update)
}

func (r *sessionRepository) Complete(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	update := bson.M{
		"$set": bson.M{
			"status":       domain.SessionCompleted,
			"completed_at": time.Now(),
		},
	}

	return r.transition(ctx, id, domain.SessionActive, update)
}

// transition performs a conditional update keyed on the expected prior
// status. Losing a race yields ErrInvalidTransition, never a double win.
func (r *sessionRepository) transition(ctx context.Context, id string, expected domain.SessionStatus, update bson.M) (*domain.Session, error) {
	collection := r.db.Collection(db.SessionsCollection)

	filter := bson.M{
		"_id":    id,
		"status": expected,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var session domain.Session
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Either the session is missing or it is no longer in the
		// expected status.
		count, countErr := collection.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return nil, countErr
		}
		if count == 0 {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *sessionRepository) FindExpired(ctx context.Context, now time.Time) ([]domain.Session, error) {
	collection := r.db.Collection(db.SessionsCollection)

	filter := bson.M{
		"status":     domain.SessionWaiting,
		"expires_at": bson.M{"$lt": now},
	}

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []domain.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}

	return sessions, nil
}
