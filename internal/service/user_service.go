package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parcel-delivery-service/internal/dto"
	"parcel-delivery-service/internal/model"
)

type UserService struct {
	repo UserRepository
	now  func() time.Time
}

func NewUserService(r UserRepository) *UserService {
	return &UserService{repo: r, now: func() time.Time { return time.Now().UTC() }}
}

// UpsertLogin registers the identity on first login (role user) or refreshes
// its last login time. The role of an existing identity is never changed.
func (s *UserService) UpsertLogin(ctx context.Context, req dto.UpsertUserRequest) (bool, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return false, fmt.Errorf("%w: email is required", ErrBadRequest)
	}
	created, err := s.repo.UpsertLogin(ctx, model.Identity{
		Email: email,
		Name:  strings.TrimSpace(req.Name),
		Photo: strings.TrimSpace(req.Photo),
	}, s.now())
	return created, storeErr(err, "identity")
}

// Search finds one identity by partial, case-insensitive email.
func (s *UserService) Search(ctx context.Context, pattern string) (*model.Identity, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, fmt.Errorf("%w: email query is required", ErrBadRequest)
	}
	u, err := s.repo.FindByEmailPattern(ctx, pattern)
	if err != nil {
		return nil, storeErr(err, "identity")
	}
	return u, nil
}
