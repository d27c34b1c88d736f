// models.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of roles an identity may hold. RoleNone stands for
// "no identity record", which never satisfies a role check.
type Role string

const (
	RoleNone  Role = ""
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleRider Role = "rider"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleRider:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole maps free text onto the enum; anything unknown becomes RoleNone.
func ParseRole(s string) Role {
	r := Role(s)
	if r.IsValid() {
		return r
	}
	return RoleNone
}

// Satisfies reports whether r grants access to an operation requiring required.
// Admin satisfies every role and any valid role satisfies RoleUser.
func (r Role) Satisfies(required Role) bool {
	if !r.IsValid() {
		return false
	}
	if r == RoleAdmin || required == RoleUser {
		return true
	}
	return r == required
}

type DeliveryStatus string

const (
	DeliveryNotCollected DeliveryStatus = "not_collected"
	DeliveryInTransit    DeliveryStatus = "in_transit"
	DeliveryDelivered    DeliveryStatus = "delivered"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type RiderStatus string

const (
	RiderPending RiderStatus = "pending"
	RiderActive  RiderStatus = "active"
)

type WorkStatus string

const (
	WorkIdle       WorkStatus = "idle"
	WorkInDelivery WorkStatus = "in_delivery"
)

// Identity is a user record keyed by email.
type Identity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email     string             `bson:"email" json:"email"`
	Name      string             `bson:"name,omitempty" json:"name,omitempty"`
	Photo     string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Role      Role               `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	LastLogIn time.Time          `bson:"last_log_in" json:"last_log_in"`
}

type Parcel struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Title              string              `bson:"title" json:"title"`
	Type               string              `bson:"type" json:"type"`
	Weight             float64             `bson:"weight,omitempty" json:"weight,omitempty"`
	SenderName         string              `bson:"sender_name" json:"sender_name"`
	SenderContact      string              `bson:"sender_contact,omitempty" json:"sender_contact,omitempty"`
	SenderDistrict     string              `bson:"sender_district" json:"sender_district"`
	SenderAddress      string              `bson:"sender_address,omitempty" json:"sender_address,omitempty"`
	ReceiverName       string              `bson:"receiver_name" json:"receiver_name"`
	ReceiverContact    string              `bson:"receiver_contact,omitempty" json:"receiver_contact,omitempty"`
	ReceiverDistrict   string              `bson:"receiver_district" json:"receiver_district"`
	ReceiverAddress    string              `bson:"receiver_address,omitempty" json:"receiver_address,omitempty"`
	Cost               float64             `bson:"cost" json:"cost"`
	TrackingID         string              `bson:"tracking_id" json:"tracking_id"`
	CreatedBy          string              `bson:"created_by" json:"created_by"`
	DeliveryStatus     DeliveryStatus      `bson:"delivery_status" json:"delivery_status"`
	PaymentStatus      PaymentStatus       `bson:"payment_status" json:"payment_status"`
	AssignedRider      *primitive.ObjectID `bson:"assigned_rider,omitempty" json:"assigned_rider,omitempty"`
	AssignedRiderEmail string              `bson:"assigned_rider_email,omitempty" json:"assigned_rider_email,omitempty"`
	AssignedAt         *time.Time          `bson:"assigned_at,omitempty" json:"assigned_at,omitempty"`
	CreationDate       time.Time           `bson:"creation_date" json:"creation_date"`
}

type Rider struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	District   string             `bson:"district" json:"district"`
	Region     string             `bson:"region,omitempty" json:"region,omitempty"`
	Status     RiderStatus        `bson:"status" json:"status"`
	WorkStatus WorkStatus         `bson:"work_status" json:"work_status"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// Payment is append-only.
type Payment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	TransactionID string             `bson:"transaction_id" json:"transactionId"`
	Amount        float64            `bson:"amount" json:"amount"`
	Email         string             `bson:"email" json:"email"`
	ParcelID      primitive.ObjectID `bson:"parcel_id" json:"parcelId"`
	Date          time.Time          `bson:"date" json:"date"`
}

// TrackingEvent is append-only.
type TrackingEvent struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	TrackingID string             `bson:"tracking_id" json:"trackingId"`
	Status     string             `bson:"status" json:"status"`
	Date       time.Time          `bson:"date" json:"date"`
	Location   string             `bson:"location,omitempty" json:"location,omitempty"`
	Note       string             `bson:"note,omitempty" json:"note,omitempty"`
}
