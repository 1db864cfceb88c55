package repositories

import (
	"context"
	"time"

	"github.com/moyeo-app/moyeo/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReportRepository defines the interface for message report operations
type ReportRepository interface {
	CreateReport(ctx context.Context, report *models.Report) error
	HasReport(ctx context.Context, reporterID uint, contentID primitive.ObjectID, contentType string) (bool, error)
}

// MongoReportRepository implements ReportRepository for MongoDB
type MongoReportRepository struct {
	collection *mongo.Collection
}

// NewMongoReportRepository creates a new MongoReportRepository
func NewMongoReportRepository(db *mongo.Database) *MongoReportRepository {
	return &MongoReportRepository{collection: db.Collection("reports")}
}

// CreateReport persists a new report
func (r *MongoReportRepository) CreateReport(ctx context.Context, report *models.Report) error {
	report.ID = primitive.NewObjectID()
	report.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, report)
	return err
}

// HasReport reports whether the reporter already reported this content
func (r *MongoReportRepository) HasReport(ctx context.Context, reporterID uint, contentID primitive.ObjectID, contentType string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"reporter_id":  reporterID,
		"content_id":   contentID,
		"content_type": contentType,
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
