package repository

import (
	"context"
	"regexp"

	"parcel-delivery-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRiderRepository struct {
	col *mongo.Collection
}

func NewMongoRiderRepository(db *mongo.Database) *MongoRiderRepository {
	return &MongoRiderRepository{col: db.Collection(RidersCollection)}
}

func (m *MongoRiderRepository) Insert(ctx context.Context, r *model.Rider) error {
	res, err := m.col.InsertOne(ctx, r)
	if err != nil {
		return classify(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		r.ID = id
	}
	return nil
}

func (m *MongoRiderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Rider, error) {
	var res model.Rider
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&res); err != nil {
		return nil, classify(err)
	}
	return &res, nil
}

func (m *MongoRiderRepository) FindByEmail(ctx context.Context, email string) (*model.Rider, error) {
	var res model.Rider
	if err := m.col.FindOne(ctx, bson.M{"email": email}).Decode(&res); err != nil {
		return nil, classify(err)
	}
	return &res, nil
}

// ListByDistrict matches the whole district name, ignoring case.
// An empty status lists riders in every status.
func (m *MongoRiderRepository) ListByDistrict(ctx context.Context, district string, status model.RiderStatus) ([]*model.Rider, error) {
	filter := bson.M{
		"district": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(district) + "$", Options: "i"},
	}
	if status != "" {
		filter["status"] = status
	}
	cur, err := m.col.Find(ctx, filter)
	if err != nil {
		return nil, classify(err)
	}
	return decodeAll[model.Rider](ctx, cur)
}

func (m *MongoRiderRepository) ListByStatus(ctx context.Context, status model.RiderStatus) ([]*model.Rider, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, classify(err)
	}
	return decodeAll[model.Rider](ctx, cur)
}

func (m *MongoRiderRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status model.RiderStatus) (int64, int64, error) {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return 0, 0, classify(err)
	}
	return res.MatchedCount, res.ModifiedCount, nil
}

func (m *MongoRiderRepository) SetWorkStatus(ctx context.Context, id primitive.ObjectID, ws model.WorkStatus) (int64, int64, error) {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"work_status": ws}})
	if err != nil {
		return 0, 0, classify(err)
	}
	return res.MatchedCount, res.ModifiedCount, nil
}

func (m *MongoRiderRepository) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, classify(err)
	}
	return res.DeletedCount, nil
}
