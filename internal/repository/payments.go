package repository

import (
	"context"

	"parcel-delivery-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoPaymentRepository struct {
	col *mongo.Collection
}

func NewMongoPaymentRepository(db *mongo.Database) *MongoPaymentRepository {
	return &MongoPaymentRepository{col: db.Collection(PaymentsCollection)}
}

// Insert appends a payment. A repeated transaction id yields ErrDuplicate
// through the unique index.
func (m *MongoPaymentRepository) Insert(ctx context.Context, p *model.Payment) error {
	res, err := m.col.InsertOne(ctx, p)
	if err != nil {
		return classify(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = id
	}
	return nil
}

func (m *MongoPaymentRepository) FindByTransactionID(ctx context.Context, txID string) (*model.Payment, error) {
	var res model.Payment
	if err := m.col.FindOne(ctx, bson.M{"transaction_id": txID}).Decode(&res); err != nil {
		return nil, classify(err)
	}
	return &res, nil
}

// List returns payments newest first; an empty email lists everything.
func (m *MongoPaymentRepository) List(ctx context.Context, email string) ([]*model.Payment, error) {
	filter := bson.M{}
	if email != "" {
		filter["email"] = email
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})

	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	return decodeAll[model.Payment](ctx, cur)
}
