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

var ErrMessageNotFound = fmt.Errorf("message not found")

// MessageSearchQuery describes an admin/member search over message bodies.
type MessageSearchQuery struct {
	Text           string
	Room           string
	ExcludeAuthors []uint
	Skip           int64
	Limit          int64
}

// MessageRepository defines the interface for chat message data operations
type MessageRepository interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessageByID(ctx context.Context, id string) (*models.Message, error)
	GetMessagesByRoom(ctx context.Context, roomID string, limit int64) ([]models.Message, error)
	GetLatestMessage(ctx context.Context, roomID string) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	AppendEdit(ctx context.Context, id string, newBody string, edit models.MessageEdit) error
	SearchMessages(ctx context.Context, query MessageSearchQuery) ([]models.Message, int64, error)
}

// MongoMessageRepository implements MessageRepository for MongoDB
type MongoMessageRepository struct {
	collection *mongo.Collection
}

// NewMongoMessageRepository creates a new MongoMessageRepository and
// ensures the text index used by body search.
func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	repo := &MongoMessageRepository{collection: db.Collection("messages")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "room", Value: 1}, {Key: "time", Value: -1}}},
		{Keys: bson.D{{Key: "body", Value: "text"}}},
	}
	if _, err := repo.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// index creation is best-effort; queries still work unindexed
		fmt.Printf("message index creation failed: %v\n", err)
	}
	return repo
}

// CreateMessage persists a message with a server-assigned timestamp
func (r *MongoMessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	if message.Time.IsZero() {
		message.Time = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, message)
	return err
}

// GetMessageByID retrieves a message by ID from MongoDB
func (r *MongoMessageRepository) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrMessageNotFound
	}

	var message models.Message
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// GetMessagesByRoom retrieves up to limit messages of a room in send order
func (r *MongoMessageRepository) GetMessagesByRoom(ctx context.Context, roomID string, limit int64) ([]models.Message, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "time", Value: 1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"room": roomID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// GetLatestMessage returns the newest message of a room, or nil when the
// room has none left.
func (r *MongoMessageRepository) GetLatestMessage(ctx context.Context, roomID string) (*models.Message, error) {
	findOptions := options.FindOne().SetSort(bson.D{{Key: "time", Value: -1}})
	var message models.Message
	err := r.collection.FindOne(ctx, bson.M{"room": roomID}, findOptions).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// DeleteMessage removes a message document
func (r *MongoMessageRepository) DeleteMessage(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrMessageNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// AppendEdit swaps the body and appends one entry to the edit trail. The
// trail itself is never rewritten.
func (r *MongoMessageRepository) AppendEdit(ctx context.Context, id string, newBody string, edit models.MessageEdit) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrMessageNotFound
	}
	update := bson.M{
		"$set":  bson.M{"body": newBody, "edited_at": edit.EditedAt},
		"$push": bson.M{"edit_history": edit},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// SearchMessages runs a $text search over message bodies, optionally
// scoped to a room and excluding blocked authors.
func (r *MongoMessageRepository) SearchMessages(ctx context.Context, query MessageSearchQuery) ([]models.Message, int64, error) {
	filter := bson.M{"$text": bson.M{"$search": query.Text}}
	if query.Room != "" {
		filter["room"] = query.Room
	}
	if len(query.ExcludeAuthors) > 0 {
		filter["author_id"] = bson.M{"$nin": query.ExcludeAuthors}
	}

	findOptions := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSkip(query.Skip).
		SetLimit(query.Limit)

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, 0, err
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}
