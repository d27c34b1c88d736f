package repository

import (
	"context"
	"time"

	"parcel-delivery-service/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type indexDef struct {
	collection string
	model      mongo.IndexModel
}

func indexDefs() []indexDef {
	return []indexDef{
		{UsersCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		}},
		{RidersCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("rider_email_unique").SetUnique(true),
		}},
		{RidersCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "district", Value: 1}},
			Options: options.Index().SetName("status_district"),
		}},
		{ParcelsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "created_by", Value: 1}, {Key: "creation_date", Value: -1}},
			Options: options.Index().SetName("created_by_creation_date"),
		}},
		{ParcelsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "assigned_rider", Value: 1}, {Key: "delivery_status", Value: 1}},
			Options: options.Index().SetName("assigned_rider_delivery_status"),
		}},
		{PaymentsCollection, mongo.IndexModel{
			Keys: bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().
				SetName("transaction_id_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"transaction_id": bson.M{"$exists": true},
				}),
		}},
		{TrackingCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "tracking_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("tracking_id_date"),
		}},
	}
}

// EnsureIndexes creates every index the repositories rely on. Failures are
// logged and the first one is returned; startup treats it as a warning.
func EnsureIndexes(db *mongo.Database, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var firstErr error
	for _, ix := range indexDefs() {
		name := ""
		if ix.model.Options != nil && ix.model.Options.Name != nil {
			name = *ix.model.Options.Name
		}
		if _, err := db.Collection(ix.collection).Indexes().CreateOne(ctx, ix.model); err != nil {
			log.Warn("index creation failed", "collection", ix.collection, "index", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Debug("index ensured", "collection", ix.collection, "index", name)
	}
	return firstErr
}
