package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parcel-delivery-service/internal/dto"
	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/repository"
)

type RiderService struct {
	repo RiderRepository
	now  func() time.Time
}

func NewRiderService(r RiderRepository) *RiderService {
	return &RiderService{repo: r, now: func() time.Time { return time.Now().UTC() }}
}

// Apply files a rider application for the caller. It always starts pending
// and idle; approval is a separate admin step.
func (s *RiderService) Apply(ctx context.Context, caller Caller, req dto.RiderApplicationRequest) (*model.Rider, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = caller.Email
	}
	if email != caller.Email && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: cannot apply on behalf of another user", ErrForbidden)
	}

	_, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: rider application already exists", ErrConflict)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storeErr(err, "rider")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = caller.Name
	}
	r := &model.Rider{
		Name:       name,
		Email:      email,
		Phone:      strings.TrimSpace(req.Phone),
		District:   strings.TrimSpace(req.District),
		Region:     strings.TrimSpace(req.Region),
		Status:     model.RiderPending,
		WorkStatus: model.WorkIdle,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Insert(ctx, r); err != nil {
		return nil, storeErr(err, "rider application")
	}
	return r, nil
}

// ListByDistrict matches the district name exactly, ignoring case.
func (s *RiderService) ListByDistrict(ctx context.Context, district, status string) ([]*model.Rider, error) {
	district = strings.TrimSpace(district)
	if district == "" {
		return nil, fmt.Errorf("%w: district query is required", ErrBadRequest)
	}
	st := model.RiderStatus(strings.TrimSpace(status))
	if st != "" && st != model.RiderPending && st != model.RiderActive {
		return nil, fmt.Errorf("%w: unknown rider status %q", ErrBadRequest, status)
	}
	out, err := s.repo.ListByDistrict(ctx, district, st)
	return out, storeErr(err, "riders")
}

func (s *RiderService) ListPending(ctx context.Context) ([]*model.Rider, error) {
	out, err := s.repo.ListByStatus(ctx, model.RiderPending)
	return out, storeErr(err, "riders")
}

func (s *RiderService) ListActive(ctx context.Context) ([]*model.Rider, error) {
	out, err := s.repo.ListByStatus(ctx, model.RiderActive)
	return out, storeErr(err, "riders")
}
