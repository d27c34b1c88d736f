package service

import (
	"context"
	"time"

	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Interfaces the Mongo repositories satisfy.

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.Identity, error)
	FindByEmailPattern(ctx context.Context, pattern string) (*model.Identity, error)
	UpsertLogin(ctx context.Context, profile model.Identity, now time.Time) (bool, error)
	SetRole(ctx context.Context, email string, role model.Role) (int64, int64, error)
	SetRoleUnlessAdmin(ctx context.Context, email string, role model.Role) (int64, error)
}

type ParcelRepository interface {
	Insert(ctx context.Context, p *model.Parcel) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Parcel, error)
	List(ctx context.Context, f repository.ParcelFilter) ([]*model.Parcel, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	Assign(ctx context.Context, parcelID primitive.ObjectID, rider *model.Rider, at time.Time) (int64, int64, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID) (int64, int64, error)
	MarkDelivered(ctx context.Context, parcelID, riderID primitive.ObjectID) (int64, error)
	CountInTransit(ctx context.Context, riderID primitive.ObjectID) (int64, error)
}

type RiderRepository interface {
	Insert(ctx context.Context, r *model.Rider) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Rider, error)
	FindByEmail(ctx context.Context, email string) (*model.Rider, error)
	ListByDistrict(ctx context.Context, district string, status model.RiderStatus) ([]*model.Rider, error)
	ListByStatus(ctx context.Context, status model.RiderStatus) ([]*model.Rider, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status model.RiderStatus) (int64, int64, error)
	SetWorkStatus(ctx context.Context, id primitive.ObjectID, ws model.WorkStatus) (int64, int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

type PaymentRepository interface {
	Insert(ctx context.Context, p *model.Payment) error
	FindByTransactionID(ctx context.Context, txID string) (*model.Payment, error)
	List(ctx context.Context, email string) ([]*model.Payment, error)
}

type TrackingRepository interface {
	Insert(ctx context.Context, e *model.TrackingEvent) error
	ListByTrackingID(ctx context.Context, trackingID string) ([]*model.TrackingEvent, error)
}

// TxRunner executes fn as one unit of work against the store.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher emits domain events after a state change is committed.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

// NopPublisher drops every event; used when no message bus is configured.
var NopPublisher EventPublisher = nopPublisher{}

// Caller is the authenticated principal a request runs as.
type Caller struct {
	Email string
	Name  string
	Role  model.Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == model.RoleAdmin
}
