package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parcel-delivery-service/internal/logger"
	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Routing keys for the domain events the coordinator emits.
const (
	EventParcelAssigned   = "parcel.assigned"
	EventParcelDelivered  = "parcel.delivered"
	EventRiderApproved    = "rider.approved"
	EventRiderDeactivated = "rider.deactivated"
	EventRiderRemoved     = "rider.removed"
	EventPaymentRecorded  = "payment.recorded"
	EventRoleChanged      = "user.role_changed"
)

type AssignResult struct {
	ParcelModified int64 `json:"parcelModified"`
	RiderModified  int64 `json:"riderModified"`
}

type RiderStatusResult struct {
	RiderModified int64 `json:"riderModified"`
	UserModified  int64 `json:"userModified"`
}

type PaymentResult struct {
	Payment         *model.Payment `json:"payment"`
	AlreadyRecorded bool           `json:"alreadyRecorded"`
	ParcelModified  int64          `json:"parcelModified"`
}

type DeliveryResult struct {
	ParcelModified int64 `json:"parcelModified"`
	RiderReleased  bool  `json:"riderReleased"`
}

// Coordinator performs the writes that must change two records together.
// Every step is written so re-running the whole operation after a partial
// failure converges on the same end state.
type Coordinator struct {
	parcels  ParcelRepository
	riders   RiderRepository
	users    UserRepository
	payments PaymentRepository
	tx       TxRunner
	events   EventPublisher
	log      logger.Logger
	now      func() time.Time
}

func NewCoordinator(parcels ParcelRepository, riders RiderRepository, users UserRepository, payments PaymentRepository, tx TxRunner, events EventPublisher, log logger.Logger) *Coordinator {
	if events == nil {
		events = NopPublisher
	}
	if log == nil {
		log = logger.L()
	}
	return &Coordinator{
		parcels:  parcels,
		riders:   riders,
		users:    users,
		payments: payments,
		tx:       tx,
		events:   events,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func parseID(hex, what string) (primitive.ObjectID, error) {
	id, err := repository.ParseID(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid %s", ErrBadRequest, what)
	}
	return id, nil
}

// AssignRider puts the parcel in transit with the rider and marks the rider
// busy. The rider is only touched once the parcel write matched.
func (c *Coordinator) AssignRider(ctx context.Context, parcelHex, riderHex string) (*AssignResult, error) {
	parcelID, err := parseID(parcelHex, "parcelId")
	if err != nil {
		return &AssignResult{}, err
	}
	riderID, err := parseID(riderHex, "riderId")
	if err != nil {
		return &AssignResult{}, err
	}

	var rider *model.Rider
	res := &AssignResult{}
	err = c.tx.Run(ctx, func(ctx context.Context) error {
		*res = AssignResult{}

		r, err := c.riders.FindByID(ctx, riderID)
		if err != nil {
			return storeErr(err, "rider")
		}
		if r.Status != model.RiderActive {
			return fmt.Errorf("%w: rider is %s", ErrConflict, r.Status)
		}
		rider = r

		matched, modified, err := c.parcels.Assign(ctx, parcelID, r, c.now())
		if err != nil {
			return storeErr(err, "parcel")
		}
		if matched == 0 {
			p, err := c.parcels.FindByID(ctx, parcelID)
			if err != nil {
				return storeErr(err, "parcel")
			}
			if p.DeliveryStatus == model.DeliveryDelivered {
				return fmt.Errorf("%w: parcel already delivered", ErrConflict)
			}
			return fmt.Errorf("%w: parcel already assigned to another rider", ErrConflict)
		}
		res.ParcelModified = modified

		_, riderModified, err := c.riders.SetWorkStatus(ctx, riderID, model.WorkInDelivery)
		if err != nil {
			return storeErr(err, "rider")
		}
		res.RiderModified = riderModified
		return nil
	})
	if err != nil {
		return res, err
	}

	c.log.Info("rider assigned", "parcel_id", parcelHex, "rider_id", riderHex,
		"parcel_modified", res.ParcelModified, "rider_modified", res.RiderModified)
	c.emit(ctx, EventParcelAssigned, map[string]any{
		"parcelId":   parcelHex,
		"riderId":    riderHex,
		"riderEmail": rider.Email,
	})
	return res, nil
}

// ApproveRider activates the rider and grants the rider role.
func (c *Coordinator) ApproveRider(ctx context.Context, riderHex string) (*RiderStatusResult, error) {
	return c.setRiderStatus(ctx, riderHex, model.RiderActive, model.RoleRider, EventRiderApproved)
}

// DeactivateRider returns the rider to pending and the identity to user.
func (c *Coordinator) DeactivateRider(ctx context.Context, riderHex string) (*RiderStatusResult, error) {
	return c.setRiderStatus(ctx, riderHex, model.RiderPending, model.RoleUser, EventRiderDeactivated)
}

func (c *Coordinator) setRiderStatus(ctx context.Context, riderHex string, status model.RiderStatus, role model.Role, event string) (*RiderStatusResult, error) {
	riderID, err := parseID(riderHex, "rider id")
	if err != nil {
		return &RiderStatusResult{}, err
	}

	var email string
	res := &RiderStatusResult{}
	err = c.tx.Run(ctx, func(ctx context.Context) error {
		*res = RiderStatusResult{}

		rider, err := c.riders.FindByID(ctx, riderID)
		if err != nil {
			return storeErr(err, "rider")
		}
		// Both writes target the email read here.
		email = rider.Email

		// An active rider must be backed by an identity that can hold the
		// rider role; check before the rider write.
		if status == model.RiderActive {
			if _, err := c.users.FindByEmail(ctx, email); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%w: rider %s has no identity record", ErrConflict, email)
				}
				return storeErr(err, "identity")
			}
		}

		matched, modified, err := c.riders.SetStatus(ctx, riderID, status)
		if err != nil {
			return storeErr(err, "rider")
		}
		if matched == 0 {
			return fmt.Errorf("%w: rider", ErrNotFound)
		}
		res.RiderModified = modified

		userModified, err := c.users.SetRoleUnlessAdmin(ctx, email, role)
		if err != nil {
			return storeErr(err, "identity")
		}
		res.UserModified = userModified
		return nil
	})
	if err != nil {
		return res, err
	}

	c.log.Info("rider status changed", "rider_id", riderHex, "email", email, "status", status, "role", role)
	c.emit(ctx, event, map[string]any{"riderId": riderHex, "email": email, "status": status})
	return res, nil
}

// RemoveRider deletes the rider record and drops the rider role so an
// identity never keeps the role without an active rider behind it.
func (c *Coordinator) RemoveRider(ctx context.Context, riderHex string) (*RiderStatusResult, error) {
	riderID, err := parseID(riderHex, "rider id")
	if err != nil {
		return &RiderStatusResult{}, err
	}

	var email string
	res := &RiderStatusResult{}
	err = c.tx.Run(ctx, func(ctx context.Context) error {
		*res = RiderStatusResult{}

		rider, err := c.riders.FindByID(ctx, riderID)
		if err != nil {
			return storeErr(err, "rider")
		}
		email = rider.Email
		if rider.WorkStatus == model.WorkInDelivery {
			return fmt.Errorf("%w: rider has parcels in delivery", ErrConflict)
		}

		deleted, err := c.riders.Delete(ctx, riderID)
		if err != nil {
			return storeErr(err, "rider")
		}
		if deleted == 0 {
			return fmt.Errorf("%w: rider", ErrNotFound)
		}
		res.RiderModified = deleted

		userModified, err := c.users.SetRoleUnlessAdmin(ctx, email, model.RoleUser)
		if err != nil {
			return storeErr(err, "identity")
		}
		res.UserModified = userModified
		return nil
	})
	if err != nil {
		return res, err
	}

	c.emit(ctx, EventRiderRemoved, map[string]any{"riderId": riderHex, "email": email})
	return res, nil
}

// CompleteDelivery lets the assigned rider close a parcel. The rider goes back
// to idle once nothing else is in transit with them.
func (c *Coordinator) CompleteDelivery(ctx context.Context, caller Caller, parcelHex string) (*DeliveryResult, error) {
	parcelID, err := parseID(parcelHex, "parcel id")
	if err != nil {
		return &DeliveryResult{}, err
	}

	var riderID primitive.ObjectID
	res := &DeliveryResult{}
	err = c.tx.Run(ctx, func(ctx context.Context) error {
		*res = DeliveryResult{}

		parcel, err := c.parcels.FindByID(ctx, parcelID)
		if err != nil {
			return storeErr(err, "parcel")
		}
		if parcel.AssignedRider == nil {
			return fmt.Errorf("%w: parcel has no rider", ErrConflict)
		}
		if !caller.IsAdmin() && parcel.AssignedRiderEmail != caller.Email {
			return fmt.Errorf("%w: parcel is assigned to another rider", ErrForbidden)
		}
		riderID = *parcel.AssignedRider

		modified, err := c.parcels.MarkDelivered(ctx, parcelID, riderID)
		if err != nil {
			return storeErr(err, "parcel")
		}
		if modified == 0 && parcel.DeliveryStatus != model.DeliveryDelivered {
			return fmt.Errorf("%w: parcel is %s", ErrConflict, parcel.DeliveryStatus)
		}
		res.ParcelModified = modified

		remaining, err := c.parcels.CountInTransit(ctx, riderID)
		if err != nil {
			return storeErr(err, "parcel")
		}
		if remaining == 0 {
			if _, _, err := c.riders.SetWorkStatus(ctx, riderID, model.WorkIdle); err != nil {
				return storeErr(err, "rider")
			}
			res.RiderReleased = true
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	c.emit(ctx, EventParcelDelivered, map[string]any{"parcelId": parcelHex, "riderId": riderID.Hex()})
	return res, nil
}

// ConfirmPayment records the payment and marks the parcel paid. Replaying the
// same transaction id does not add a second record; it only re-drives the
// parcel update.
func (c *Coordinator) ConfirmPayment(ctx context.Context, payment *model.Payment) (*PaymentResult, error) {
	res := &PaymentResult{Payment: payment}
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		res.AlreadyRecorded = false
		res.ParcelModified = 0

		if _, err := c.parcels.FindByID(ctx, payment.ParcelID); err != nil {
			return storeErr(err, "parcel")
		}

		existing, err := c.payments.FindByTransactionID(ctx, payment.TransactionID)
		switch {
		case err == nil:
			res.Payment = existing
			res.AlreadyRecorded = true
		case errors.Is(err, repository.ErrNotFound):
			if err := c.payments.Insert(ctx, payment); err != nil {
				if !errors.Is(err, repository.ErrDuplicate) {
					return storeErr(err, "payment")
				}
				res.AlreadyRecorded = true
			}
		default:
			return storeErr(err, "payment")
		}

		_, modified, err := c.parcels.MarkPaid(ctx, res.Payment.ParcelID)
		if err != nil {
			return storeErr(err, "parcel")
		}
		res.ParcelModified = modified
		return nil
	})
	if err != nil {
		return res, err
	}

	if !res.AlreadyRecorded {
		c.emit(ctx, EventPaymentRecorded, map[string]any{
			"transactionId": payment.TransactionID,
			"parcelId":      payment.ParcelID.Hex(),
			"email":         payment.Email,
			"amount":        payment.Amount,
		})
	}
	return res, nil
}

// ChangeRole sets an identity's role without breaking the rider pairing: the
// rider role needs an active rider record, and an active rider cannot be
// turned back into a plain user here (DeactivateRider does that).
func (c *Coordinator) ChangeRole(ctx context.Context, email string, role model.Role) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, fmt.Errorf("%w: email is required", ErrBadRequest)
	}
	if !role.IsValid() {
		return 0, fmt.Errorf("%w: unknown role %q", ErrBadRequest, role)
	}

	var modified int64
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		modified = 0

		if _, err := c.users.FindByEmail(ctx, email); err != nil {
			return storeErr(err, "identity")
		}

		activeRider := false
		rider, err := c.riders.FindByEmail(ctx, email)
		switch {
		case err == nil:
			activeRider = rider.Status == model.RiderActive
		case !errors.Is(err, repository.ErrNotFound):
			return storeErr(err, "rider")
		}

		switch {
		case role == model.RoleRider && !activeRider:
			return fmt.Errorf("%w: %s has no active rider record, approve the application instead", ErrConflict, email)
		case role == model.RoleUser && activeRider:
			return fmt.Errorf("%w: %s is an active rider, deactivate the rider first", ErrConflict, email)
		}

		matched, m, err := c.users.SetRole(ctx, email, role)
		if err != nil {
			return storeErr(err, "identity")
		}
		if matched == 0 {
			return fmt.Errorf("%w: identity", ErrNotFound)
		}
		modified = m
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.log.Info("role changed", "email", email, "role", role, "modified", modified)
	if modified > 0 {
		c.emit(ctx, EventRoleChanged, map[string]any{"email": email, "role": role})
	}
	return modified, nil
}

func (c *Coordinator) emit(ctx context.Context, key string, payload any) {
	if err := c.events.Publish(ctx, key, payload); err != nil {
		c.log.Warn("event publish failed", "event", key, "error", err)
	}
}
