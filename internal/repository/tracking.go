package repository

import (
	"context"

	"parcel-delivery-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoTrackingRepository struct {
	col *mongo.Collection
}

func NewMongoTrackingRepository(db *mongo.Database) *MongoTrackingRepository {
	return &MongoTrackingRepository{col: db.Collection(TrackingCollection)}
}

func (m *MongoTrackingRepository) Insert(ctx context.Context, e *model.TrackingEvent) error {
	res, err := m.col.InsertOne(ctx, e)
	if err != nil {
		return classify(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		e.ID = id
	}
	return nil
}

// ListByTrackingID returns the parcel's history, oldest first.
func (m *MongoTrackingRepository) ListByTrackingID(ctx context.Context, trackingID string) ([]*model.TrackingEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := m.col.Find(ctx, bson.M{"tracking_id": trackingID}, opts)
	if err != nil {
		return nil, classify(err)
	}
	return decodeAll[model.TrackingEvent](ctx, cur)
}
