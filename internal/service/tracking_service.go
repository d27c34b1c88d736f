package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parcel-delivery-service/internal/dto"
	"parcel-delivery-service/internal/model"
)

type TrackingService struct {
	repo TrackingRepository
	now  func() time.Time
}

func NewTrackingService(r TrackingRepository) *TrackingService {
	return &TrackingService{repo: r, now: func() time.Time { return time.Now().UTC() }}
}

// Record appends a tracking event. A missing date means "now".
func (s *TrackingService) Record(ctx context.Context, req dto.TrackingRequest) (*model.TrackingEvent, error) {
	trackingID := strings.TrimSpace(req.TrackingID)
	status := strings.TrimSpace(req.Status)
	if trackingID == "" || status == "" {
		return nil, fmt.Errorf("%w: trackingId and status are required", ErrBadRequest)
	}

	date := s.now()
	if req.Date != nil && !req.Date.IsZero() {
		date = req.Date.UTC()
	}

	e := &model.TrackingEvent{
		TrackingID: trackingID,
		Status:     status,
		Date:       date,
		Location:   strings.TrimSpace(req.Location),
		Note:       strings.TrimSpace(req.Note),
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return nil, storeErr(err, "tracking event")
	}
	return e, nil
}

func (s *TrackingService) History(ctx context.Context, trackingID string) ([]*model.TrackingEvent, error) {
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return nil, fmt.Errorf("%w: tracking id is required", ErrBadRequest)
	}
	out, err := s.repo.ListByTrackingID(ctx, trackingID)
	return out, storeErr(err, "tracking events")
}
