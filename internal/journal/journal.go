package journal

import (
	"context"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionName = "payment_captures"
	retention      = 365 * 24 * 60 * 60 // seconds
)

// MongoJournal stores capture attempts for later diagnosis. It is not a source
// of truth for payment state.
type MongoJournal struct {
	collection *mongo.Collection
}

func NewMongoJournal(db *mongo.Database) *MongoJournal {
	return &MongoJournal{collection: db.Collection(collectionName)}
}

func (j *MongoJournal) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "recorded_at", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "recorded_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(retention),
		},
	}

	if _, err := j.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (j *MongoJournal) Record(ctx context.Context, rec domain.CaptureRecord) error {
	if _, err := j.collection.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to record capture: %w", err)
	}
	return nil
}

// ListByOrder returns the attempts for orderID, oldest first.
func (j *MongoJournal) ListByOrder(ctx context.Context, orderID string) ([]domain.CaptureRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}})
	cursor, err := j.collection.Find(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list captures: %w", err)
	}
	defer cursor.Close(ctx)

	recs := []domain.CaptureRecord{}
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode captures: %w", err)
	}
	return recs, nil
}

func (j *MongoJournal) Ping(ctx context.Context) error {
	return j.collection.Database().Client().Ping(ctx, nil)
}
