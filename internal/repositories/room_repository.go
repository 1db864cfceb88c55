package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/moyeo-app/moyeo/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrRoomNotFound is returned when a room id does not resolve to a
// chatroom document.
var ErrRoomNotFound = fmt.Errorf("chatroom not found")

// RoomRepository defines the interface for chatroom data operations
type RoomRepository interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoomByID(ctx context.Context, id string) (*models.Room, error)
	FindDirectByKey(ctx context.Context, dmKey string) (*models.Room, error)
	GetRoomsByParticipant(ctx context.Context, userID uint) ([]models.Room, error)
	TouchActivity(ctx context.Context, id string, at time.Time) error
}

// MongoRoomRepository implements RoomRepository for MongoDB
type MongoRoomRepository struct {
	collection *mongo.Collection
}

// NewMongoRoomRepository creates a new MongoRoomRepository
func NewMongoRoomRepository(db *mongo.Database) *MongoRoomRepository {
	return &MongoRoomRepository{collection: db.Collection("chatrooms")}
}

// CreateRoom creates a new chatroom in MongoDB
func (r *MongoRoomRepository) CreateRoom(ctx context.Context, room *models.Room) error {
	room.ID = primitive.NewObjectID()
	room.CreatedAt = time.Now()
	room.UpdatedAt = room.CreatedAt
	if room.LastMessageAt.IsZero() {
		room.LastMessageAt = room.CreatedAt
	}
	_, err := r.collection.InsertOne(ctx, room)
	return err
}

// GetRoomByID retrieves a chatroom by ID from MongoDB
func (r *MongoRoomRepository) GetRoomByID(ctx context.Context, id string) (*models.Room, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrRoomNotFound
	}

	var room models.Room
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&room)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// FindDirectByKey retrieves a direct room by its deterministic pair key
func (r *MongoRoomRepository) FindDirectByKey(ctx context.Context, dmKey string) (*models.Room, error) {
	var room models.Room
	err := r.collection.FindOne(ctx, bson.M{"kind": models.RoomDirect, "dm_key": dmKey}).Decode(&room)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// GetRoomsByParticipant retrieves rooms containing the user, most recently
// active first. Block filtering happens in the registry, not here.
func (r *MongoRoomRepository) GetRoomsByParticipant(ctx context.Context, userID uint) ([]models.Room, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}, {Key: "updated_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"participants": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []models.Room
	if err = cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// TouchActivity updates the room's last activity timestamp
func (r *MongoRoomRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrRoomNotFound
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$set": bson.M{"last_message_at": at, "updated_at": time.Now()},
	})
	return err
}
