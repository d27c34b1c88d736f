package repository

import (
	"context"
	"time"

	"parcel-delivery-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ParcelFilter narrows a parcel listing. Zero values are ignored.
type ParcelFilter struct {
	CreatedBy      string
	DeliveryStatus model.DeliveryStatus
	PaymentStatus  model.PaymentStatus
	AssignedRider  string
}

func (f ParcelFilter) toBSON() bson.M {
	q := bson.M{}
	if f.CreatedBy != "" {
		q["created_by"] = f.CreatedBy
	}
	if f.DeliveryStatus != "" {
		q["delivery_status"] = f.DeliveryStatus
	}
	if f.PaymentStatus != "" {
		q["payment_status"] = f.PaymentStatus
	}
	if f.AssignedRider != "" {
		q["assigned_rider_email"] = f.AssignedRider
	}
	return q
}

type MongoParcelRepository struct {
	col *mongo.Collection
}

func NewMongoParcelRepository(db *mongo.Database) *MongoParcelRepository {
	return &MongoParcelRepository{col: db.Collection(ParcelsCollection)}
}

func (m *MongoParcelRepository) Insert(ctx context.Context, p *model.Parcel) error {
	res, err := m.col.InsertOne(ctx, p)
	if err != nil {
		return classify(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = id
	}
	return nil
}

func (m *MongoParcelRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Parcel, error) {
	var res model.Parcel
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&res); err != nil {
		return nil, classify(err)
	}
	return &res, nil
}

// List returns matching parcels, newest first.
func (m *MongoParcelRepository) List(ctx context.Context, f ParcelFilter) ([]*model.Parcel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "creation_date", Value: -1}})
	cur, err := m.col.Find(ctx, f.toBSON(), opts)
	if err != nil {
		return nil, classify(err)
	}
	return decodeAll[model.Parcel](ctx, cur)
}

func (m *MongoParcelRepository) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, classify(err)
	}
	return res.DeletedCount, nil
}

// Assign links rider to the parcel and moves it in transit. The update only
// matches while the parcel is unassigned (or already held by the same rider)
// and not yet delivered, so concurrent reassignment loses the race instead of
// overwriting.
func (m *MongoParcelRepository) Assign(ctx context.Context, parcelID primitive.ObjectID, rider *model.Rider, at time.Time) (int64, int64, error) {
	filter := bson.M{
		"_id":             parcelID,
		"assigned_rider":  bson.M{"$in": bson.A{nil, rider.ID}},
		"delivery_status": bson.M{"$in": bson.A{model.DeliveryNotCollected, model.DeliveryInTransit}},
	}
	update := bson.M{
		"$set": bson.M{
			"delivery_status":      model.DeliveryInTransit,
			"assigned_rider":       rider.ID,
			"assigned_rider_email": rider.Email,
			"assigned_at":          at,
		},
	}

	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, 0, classify(err)
	}
	return res.MatchedCount, res.ModifiedCount, nil
}

func (m *MongoParcelRepository) MarkPaid(ctx context.Context, id primitive.ObjectID) (int64, int64, error) {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"payment_status": model.PaymentPaid}})
	if err != nil {
		return 0, 0, classify(err)
	}
	return res.MatchedCount, res.ModifiedCount, nil
}

// MarkDelivered closes an in-transit parcel held by riderID.
func (m *MongoParcelRepository) MarkDelivered(ctx context.Context, parcelID, riderID primitive.ObjectID) (int64, error) {
	filter := bson.M{
		"_id":             parcelID,
		"assigned_rider":  riderID,
		"delivery_status": model.DeliveryInTransit,
	}
	res, err := m.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"delivery_status": model.DeliveryDelivered}})
	if err != nil {
		return 0, classify(err)
	}
	return res.ModifiedCount, nil
}

// CountInTransit counts parcels the rider still has to deliver.
func (m *MongoParcelRepository) CountInTransit(ctx context.Context, riderID primitive.ObjectID) (int64, error) {
	n, err := m.col.CountDocuments(ctx, bson.M{
		"assigned_rider":  riderID,
		"delivery_status": model.DeliveryInTransit,
	})
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}
