package repository

import (
	"context"
	"regexp"
	"time"

	"parcel-delivery-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{col: db.Collection(UsersCollection)}
}

func (m *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.Identity, error) {
	var res model.Identity
	if err := m.col.FindOne(ctx, bson.M{"email": email}).Decode(&res); err != nil {
		return nil, classify(err)
	}
	return &res, nil
}

// FindByEmailPattern returns the first identity whose email contains pattern,
// ignoring case. No sort is applied, so ties resolve in natural order.
func (m *MongoUserRepository) FindByEmailPattern(ctx context.Context, pattern string) (*model.Identity, error) {
	filter := bson.M{"email": primitive.Regex{Pattern: regexp.QuoteMeta(pattern), Options: "i"}}

	var res model.Identity
	if err := m.col.FindOne(ctx, filter).Decode(&res); err != nil {
		return nil, classify(err)
	}
	return &res, nil
}

// UpsertLogin creates the identity with the default role on first login and
// otherwise only touches last_log_in.
func (m *MongoUserRepository) UpsertLogin(ctx context.Context, profile model.Identity, now time.Time) (bool, error) {
	onInsert := bson.M{
		"role":       model.RoleUser,
		"created_at": now,
	}
	if profile.Name != "" {
		onInsert["name"] = profile.Name
	}
	if profile.Photo != "" {
		onInsert["photo"] = profile.Photo
	}

	update := bson.M{
		"$setOnInsert": onInsert,
		"$set":         bson.M{"last_log_in": now},
	}
	opts := options.Update().SetUpsert(true)

	res, err := m.col.UpdateOne(ctx, bson.M{"email": profile.Email}, update, opts)
	if err != nil {
		return false, classify(err)
	}
	return res.UpsertedCount > 0, nil
}

// SetRole overwrites the role of the identity with the given email.
func (m *MongoUserRepository) SetRole(ctx context.Context, email string, role model.Role) (int64, int64, error) {
	res, err := m.col.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return 0, 0, classify(err)
	}
	return res.MatchedCount, res.ModifiedCount, nil
}

// SetRoleUnlessAdmin is SetRole for rider lifecycle changes; it never demotes
// an admin.
func (m *MongoUserRepository) SetRoleUnlessAdmin(ctx context.Context, email string, role model.Role) (int64, error) {
	filter := bson.M{
		"email": email,
		"role":  bson.M{"$ne": model.RoleAdmin},
	}
	res, err := m.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return 0, classify(err)
	}
	return res.ModifiedCount, nil
}
