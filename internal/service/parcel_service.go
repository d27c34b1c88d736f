package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parcel-delivery-service/internal/dto"
	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/repository"

	"github.com/google/uuid"
)

type ParcelService struct {
	repo ParcelRepository
	now  func() time.Time
}

func NewParcelService(r ParcelRepository) *ParcelService {
	return &ParcelService{repo: r, now: func() time.Time { return time.Now().UTC() }}
}

// List returns parcels visible to the caller, newest first. Admins see all
// parcels (optionally narrowed by ownerEmail); everyone else only their own.
func (s *ParcelService) List(ctx context.Context, caller Caller, ownerEmail string) ([]*model.Parcel, error) {
	f := repository.ParcelFilter{CreatedBy: caller.Email}
	if caller.IsAdmin() {
		f.CreatedBy = ownerEmail
	}
	out, err := s.repo.List(ctx, f)
	return out, storeErr(err, "parcels")
}

// ListAwaitingPickup lists paid parcels that no rider has collected yet.
func (s *ParcelService) ListAwaitingPickup(ctx context.Context) ([]*model.Parcel, error) {
	out, err := s.repo.List(ctx, repository.ParcelFilter{
		DeliveryStatus: model.DeliveryNotCollected,
		PaymentStatus:  model.PaymentPaid,
	})
	return out, storeErr(err, "parcels")
}

// ListAssigned lists parcels assigned to the calling rider.
func (s *ParcelService) ListAssigned(ctx context.Context, caller Caller) ([]*model.Parcel, error) {
	out, err := s.repo.List(ctx, repository.ParcelFilter{AssignedRider: caller.Email})
	return out, storeErr(err, "parcels")
}

// Get returns one parcel. Owners, admins and the assigned rider may read it.
func (s *ParcelService) Get(ctx context.Context, caller Caller, idHex string) (*model.Parcel, error) {
	id, err := parseID(idHex, "parcel id")
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "parcel")
	}
	if !canSeeParcel(caller, p) {
		return nil, fmt.Errorf("%w: parcel belongs to another user", ErrForbidden)
	}
	return p, nil
}

func canSeeParcel(caller Caller, p *model.Parcel) bool {
	return caller.IsAdmin() || p.CreatedBy == caller.Email ||
		(p.AssignedRiderEmail != "" && p.AssignedRiderEmail == caller.Email)
}

func (s *ParcelService) Create(ctx context.Context, caller Caller, req dto.CreateParcelRequest) (*model.Parcel, error) {
	trackingID := strings.TrimSpace(req.TrackingID)
	if trackingID == "" {
		trackingID = newTrackingID()
	}

	p := &model.Parcel{
		Title:            strings.TrimSpace(req.Title),
		Type:             req.Type,
		Weight:           req.Weight,
		SenderName:       strings.TrimSpace(req.SenderName),
		SenderContact:    strings.TrimSpace(req.SenderContact),
		SenderDistrict:   strings.TrimSpace(req.SenderDistrict),
		SenderAddress:    strings.TrimSpace(req.SenderAddress),
		ReceiverName:     strings.TrimSpace(req.ReceiverName),
		ReceiverContact:  strings.TrimSpace(req.ReceiverContact),
		ReceiverDistrict: strings.TrimSpace(req.ReceiverDistrict),
		ReceiverAddress:  strings.TrimSpace(req.ReceiverAddress),
		Cost:             req.Cost,
		TrackingID:       trackingID,
		CreatedBy:        caller.Email,
		DeliveryStatus:   model.DeliveryNotCollected,
		PaymentStatus:    model.PaymentUnpaid,
		CreationDate:     s.now(),
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, storeErr(err, "parcel")
	}
	return p, nil
}

// Delete removes a parcel owned by the caller (or any parcel for admins).
// Parcels already handed to a rider cannot be deleted.
func (s *ParcelService) Delete(ctx context.Context, caller Caller, idHex string) error {
	id, err := parseID(idHex, "parcel id")
	if err != nil {
		return err
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storeErr(err, "parcel")
	}
	if !caller.IsAdmin() && p.CreatedBy != caller.Email {
		return fmt.Errorf("%w: parcel belongs to another user", ErrForbidden)
	}
	if p.AssignedRider != nil && p.DeliveryStatus == model.DeliveryInTransit {
		return fmt.Errorf("%w: parcel is in transit", ErrConflict)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return storeErr(err, "parcel")
	}
	if deleted == 0 {
		return fmt.Errorf("%w: parcel", ErrNotFound)
	}
	return nil
}

func newTrackingID() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "PCL-" + raw[:12]
}
