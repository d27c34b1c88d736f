// dto.go
package dto

import "time"

// CreateParcelRequest is the body of POST /parcels. Server-owned fields
// (created_by, statuses, assignment) are never read from the client.
type CreateParcelRequest struct {
	Title            string  `json:"title" binding:"required"`
	Type             string  `json:"type" binding:"required,oneof=document non-document"`
	Weight           float64 `json:"weight" binding:"gte=0"`
	SenderName       string  `json:"sender_name" binding:"required"`
	SenderContact    string  `json:"sender_contact"`
	SenderDistrict   string  `json:"sender_district" binding:"required"`
	SenderAddress    string  `json:"sender_address"`
	ReceiverName     string  `json:"receiver_name" binding:"required"`
	ReceiverContact  string  `json:"receiver_contact"`
	ReceiverDistrict string  `json:"receiver_district" binding:"required"`
	ReceiverAddress  string  `json:"receiver_address"`
	Cost             float64 `json:"cost" binding:"gte=0"`
	TrackingID       string  `json:"tracking_id"`
}

type AssignRiderRequest struct {
	ParcelID string `json:"parcelId" binding:"required"`
	RiderID  string `json:"riderId" binding:"required"`
}

// PaymentIntentRequest carries the amount in major currency units.
type PaymentIntentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

type SavePaymentRequest struct {
	TransactionID string     `json:"transactionId" binding:"required"`
	Amount        float64    `json:"amount" binding:"required,gt=0"`
	Email         string     `json:"email" binding:"omitempty,email"`
	ParcelID      string     `json:"parcelId" binding:"required"`
	Date          *time.Time `json:"date"`
}

type TrackingRequest struct {
	TrackingID string     `json:"trackingId" binding:"required"`
	Status     string     `json:"status" binding:"required"`
	Date       *time.Time `json:"date"`
	Location   string     `json:"location"`
	Note       string     `json:"note"`
}

// UpsertUserRequest is sent by the client after every sign-in.
type UpsertUserRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

type UpdateRoleRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=user admin rider"`
}

type RiderApplicationRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
	District string `json:"district" binding:"required"`
	Region   string `json:"region"`
}
